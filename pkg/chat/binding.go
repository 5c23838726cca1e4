package chat

// ContextBinding scopes a conversation to a course module and a
// selection of content items. It is a value: rebinding replaces the
// whole binding, it never merges with the previous one, because
// content selection is module-scoped.
type ContextBinding struct {
	ModuleRef  string
	ContentIDs []string
}

// Bind constructs a binding. Duplicate content ids are collapsed while
// the first-seen order is preserved (order matters for display only).
func Bind(moduleRef string, contentIDs []string) ContextBinding {
	seen := make(map[string]struct{}, len(contentIDs))
	deduped := make([]string, 0, len(contentIDs))
	for _, id := range contentIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return ContextBinding{ModuleRef: moduleRef, ContentIDs: deduped}
}

// HasContext reports whether sending is allowed: a bound module, at
// least one content item, or an already active session all qualify.
func HasContext(b ContextBinding, sessionActive bool) bool {
	return b.ModuleRef != "" || len(b.ContentIDs) > 0 || sessionActive
}

// IsEmpty reports whether the binding carries nothing at all.
func (b ContextBinding) IsEmpty() bool {
	return b.ModuleRef == "" && len(b.ContentIDs) == 0
}
