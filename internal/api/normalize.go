package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// The backend is not consistent about field names: content items come
// back as fileId/fileName from the module listing but id/name from the
// direct lookup, sessions use sessionId in some responses and id in
// others, and so on. Every accessor below tries the known spellings in
// order and settles on the first non-empty match.

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstInt(m map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return 0
}

func firstTime(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		s, ok := m[k].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func firstStringSlice(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		raw, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// decodeList accepts either a bare JSON array or an object wrapping
// the array under one of the given keys, and returns the element maps.
func decodeList(raw json.RawMessage, wrapperKeys ...string) ([]map[string]any, error) {
	var bare []map[string]any
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode list payload: %w", err)
	}
	for _, k := range wrapperKeys {
		inner, ok := wrapped[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &bare); err != nil {
			return nil, fmt.Errorf("decode %q list: %w", k, err)
		}
		return bare, nil
	}
	return nil, fmt.Errorf("no list found under keys %v", wrapperKeys)
}

func decodeObject(raw json.RawMessage, wrapperKeys ...string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode object payload: %w", err)
	}
	// Some endpoints wrap the resource in an envelope.
	for _, k := range wrapperKeys {
		if inner, ok := m[k].(map[string]any); ok {
			return inner, nil
		}
	}
	return m, nil
}

func normalizeModule(m map[string]any) Module {
	return Module{
		ID:   firstString(m, "id", "moduleId", "module_id"),
		Code: firstString(m, "code", "moduleCode", "module_code"),
		Name: firstString(m, "name", "moduleName", "title"),
	}
}

func normalizeContentRef(m map[string]any) ContentRef {
	return ContentRef{
		ID:       firstString(m, "fileId", "id", "documentId", "document_id"),
		Title:    firstString(m, "fileName", "name", "documentName", "document_name", "title"),
		Type:     firstString(m, "fileType", "type", "contentType"),
		ModuleID: firstString(m, "moduleId", "module_id", "module"),
	}
}

func normalizeSessionSummary(m map[string]any) SessionSummary {
	return SessionSummary{
		ID:           firstString(m, "id", "sessionId", "session_id"),
		Title:        firstString(m, "title", "sessionTitle", "name"),
		ModuleRef:    firstString(m, "moduleId", "module_id", "module", "moduleCode"),
		ContentIDs:   firstStringSlice(m, "contentIds", "content_ids", "documentIds", "document_ids"),
		Preview:      firstString(m, "lastMessage", "last_message", "preview"),
		MessageCount: firstInt(m, "messageCount", "message_count"),
		CreatedAt:    firstTime(m, "createdAt", "created_at"),
		UpdatedAt:    firstTime(m, "updatedAt", "updated_at"),
	}
}

func normalizeWireMessage(m map[string]any) WireMessage {
	return WireMessage{
		ID:        firstString(m, "id", "messageId", "message_id"),
		Role:      firstString(m, "role", "sender"),
		Content:   firstString(m, "content", "text", "message"),
		CreatedAt: firstTime(m, "createdAt", "created_at", "timestamp"),
	}
}
