package tutorchat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tutorchat-dev/tutorchat/internal/api"
	"github.com/tutorchat-dev/tutorchat/internal/observability"
	"github.com/tutorchat-dev/tutorchat/pkg/chat"
	"github.com/tutorchat-dev/tutorchat/pkg/content"
	"github.com/tutorchat-dev/tutorchat/pkg/session"
	pkgobs "github.com/tutorchat-dev/tutorchat/pkg/observability"
)

// ErrNoContext is returned by Send when the conversation has no bound
// module, no selected content and no active session.
var ErrNoContext = errors.New("no study context bound; select a module or content first")

// State is the orchestrator's readiness state.
type State string

const (
	// StateDraft means no persisted session is active. Sending from
	// a draft creates the session.
	StateDraft State = "draft"
	// StateNotReady means an activation is underway.
	StateNotReady State = "not_ready"
	// StateReady means metadata, module label, resolved context and
	// history have all settled for the active session.
	StateReady State = "ready"
)

// View is the immutable snapshot exposed to callers. It is rebuilt on
// every call; mutating it has no effect on the engine.
type View struct {
	State       State
	SessionID   string
	ModuleLabel string
	Binding     chat.ContextBinding
	Context     []content.Resolved
	Messages    []chat.Message
	HasContext  bool
}

// SessionFetcher fetches one session's live metadata.
type SessionFetcher interface {
	GetSession(ctx context.Context, sessionID string) (*api.SessionSummary, error)
}

// Orchestrator is the single owner of the active session pointer. It
// sequences the store, resolver and dispatcher so rapid navigation
// never produces redundant loads or lets a stale activation overwrite
// a newer one.
type Orchestrator struct {
	fetcher    SessionFetcher
	store      *session.Store
	resolver   *content.Resolver
	dispatcher *chat.Dispatcher

	mu         sync.Mutex
	generation uint64
	modules    []api.Module

	state        State
	active       string
	binding      chat.ContextBinding
	contextItems []content.Resolved
	moduleLabel  string
	settled      bool
}

// NewOrchestrator wires the orchestrator. The module list is passed in
// explicitly; label resolution is a pure local lookup.
func NewOrchestrator(fetcher SessionFetcher, store *session.Store, resolver *content.Resolver, dispatcher *chat.Dispatcher, modules []api.Module) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		modules:    modules,
		state:      StateDraft,
		settled:    true,
	}
}

// SetModules replaces the module list used for label lookups.
func (o *Orchestrator) SetModules(modules []api.Module) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.modules = modules
}

// Activate makes the given session the active conversation. An empty
// sessionID activates a draft scoped by the hints. Activating the
// already-active, fully settled session is a no-op.
//
// Overlapping activations are resolved by generation: the last-issued
// call wins and slower, earlier calls discard their results.
func (o *Orchestrator) Activate(ctx context.Context, sessionID, moduleHint string, contentIDsHint []string) (View, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "orchestrator.activate",
		attribute.String("session.id", sessionID))
	var retErr error
	defer func() { observability.EndSpan(span, retErr) }()

	o.mu.Lock()
	if sessionID != "" && sessionID == o.active && o.settled {
		o.mu.Unlock()
		pkgobs.RecordActivation("noop", time.Since(start))
		return o.View(), nil
	}
	o.generation++
	gen := o.generation
	o.state = StateNotReady
	o.settled = false
	o.mu.Unlock()

	o.dispatcher.Reset()

	if sessionID == "" {
		binding := chat.Bind(moduleHint, contentIDsHint)
		items := o.resolver.Resolve(ctx, binding.ContentIDs, o.snapshotModules())
		o.commitDraft(gen, binding, items)
		pkgobs.RecordActivation("draft", time.Since(start))
		return o.View(), nil
	}

	summary, err := o.lookupSession(ctx, sessionID)
	if summary == nil {
		// A deep link to a deleted session falls back to a clean
		// draft rather than erroring the whole conversation.
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			log.Printf("[Orchestrator] session %s lookup failed: %v", sessionID, err)
		}
		o.commitDraft(gen, chat.ContextBinding{}, nil)
		pkgobs.RecordActivation("draft", time.Since(start))
		return o.View(), nil
	}

	label := o.moduleLabelFor(summary.ModuleRef)

	var items []content.Resolved
	if len(summary.ContentIDs) > 0 {
		items = o.resolver.Resolve(ctx, summary.ContentIDs, o.snapshotModules())
	}

	// A newer activation has taken over; do not touch the
	// dispatcher or commit anything.
	if !o.isCurrent(gen) {
		pkgobs.RecordActivation("superseded", time.Since(start))
		return o.View(), nil
	}

	history, histErr := o.dispatcher.FetchHistory(ctx, sessionID)
	if histErr != nil {
		log.Printf("[Orchestrator] history load for %s failed: %v", sessionID, histErr)
	}

	// The fetched transcript is only installed if this activation is
	// still the newest one; a slower, earlier activation that
	// completes late must not overwrite the winner's state.
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		pkgobs.RecordActivation("superseded", time.Since(start))
		return o.View(), nil
	}
	o.dispatcher.InstallHistory(sessionID, history)
	o.active = sessionID
	o.binding = chat.Bind(summary.ModuleRef, summary.ContentIDs)
	o.contextItems = items
	o.moduleLabel = label
	o.state = StateReady
	o.settled = true
	o.mu.Unlock()

	pkgobs.RecordActivation("ready", time.Since(start))
	return o.View(), nil
}

// Send dispatches text within the active conversation. In the draft
// state the first confirmed send promotes the draft to a persisted
// session and the orchestrator adopts its id.
func (o *Orchestrator) Send(ctx context.Context, text string) (*chat.SendResult, error) {
	ctx, span := observability.StartSpan(ctx, "orchestrator.send")
	var retErr error
	defer func() { observability.EndSpan(span, retErr) }()

	o.mu.Lock()
	sessionID := o.active
	binding := o.binding
	o.mu.Unlock()

	if !chat.HasContext(binding, sessionID != "") {
		retErr = ErrNoContext
		return nil, ErrNoContext
	}

	res, err := o.dispatcher.Send(ctx, sessionID, binding, text)
	if err != nil {
		retErr = err
		return nil, err
	}

	if res.Created {
		o.mu.Lock()
		o.active = res.SessionID
		o.state = StateReady
		o.settled = true
		o.mu.Unlock()
	}
	return res, nil
}

// NewConversation resets to a clean draft: no id, empty context, empty
// history. Nothing from the previous session carries over.
func (o *Orchestrator) NewConversation() View {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.mu.Unlock()

	o.dispatcher.Reset()
	o.commitDraft(gen, chat.ContextBinding{}, nil)
	return o.View()
}

// DeleteConversation removes a session. Deleting the active session
// resets the orchestrator to the draft state.
func (o *Orchestrator) DeleteConversation(ctx context.Context, sessionID string) error {
	if err := o.store.Remove(ctx, sessionID); err != nil {
		return err
	}
	o.dispatcher.Forget(sessionID)

	o.mu.Lock()
	wasActive := o.active == sessionID
	o.mu.Unlock()
	if wasActive {
		o.NewConversation()
	}
	return nil
}

// RebindContext replaces the draft's binding wholesale and re-resolves
// the displayed context. A persisted session's server-side binding is
// fixed at creation; rebinding only affects what the next draft send
// would create.
func (o *Orchestrator) RebindContext(ctx context.Context, moduleRef string, contentIDs []string) View {
	binding := chat.Bind(moduleRef, contentIDs)
	items := o.resolver.Resolve(ctx, binding.ContentIDs, o.snapshotModules())

	o.mu.Lock()
	o.binding = binding
	o.contextItems = items
	o.moduleLabel = o.moduleLabelForLocked(moduleRef)
	o.mu.Unlock()
	return o.View()
}

// View returns the current snapshot.
func (o *Orchestrator) View() View {
	msgs := o.dispatcher.Messages()

	o.mu.Lock()
	defer o.mu.Unlock()

	items := make([]content.Resolved, len(o.contextItems))
	copy(items, o.contextItems)

	return View{
		State:       o.state,
		SessionID:   o.active,
		ModuleLabel: o.moduleLabel,
		Binding:     o.binding,
		Context:     items,
		Messages:    msgs,
		HasContext:  chat.HasContext(o.binding, o.active != ""),
	}
}

// lookupSession prefers live metadata and degrades to the cached
// summary when the backend is unreachable.
func (o *Orchestrator) lookupSession(ctx context.Context, sessionID string) (*api.SessionSummary, error) {
	summary, err := o.fetcher.GetSession(ctx, sessionID)
	if err == nil {
		return summary, nil
	}
	if errors.Is(err, api.ErrNotFound) {
		return nil, err
	}
	if cached, ok := o.store.Get(ctx, sessionID); ok {
		return cached, nil
	}
	return nil, err
}

func (o *Orchestrator) commitDraft(gen uint64, binding chat.ContextBinding, items []content.Resolved) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return
	}
	o.active = ""
	o.binding = binding
	o.contextItems = items
	o.moduleLabel = o.moduleLabelForLocked(binding.ModuleRef)
	o.state = StateDraft
	o.settled = true
}

func (o *Orchestrator) isCurrent(gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return gen == o.generation
}

func (o *Orchestrator) snapshotModules() []api.Module {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]api.Module, len(o.modules))
	copy(out, o.modules)
	return out
}

func (o *Orchestrator) moduleLabelFor(moduleRef string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.moduleLabelForLocked(moduleRef)
}

// moduleLabelForLocked resolves a module reference to its display name
// by id or code, defaulting to the raw reference. Callers hold o.mu.
func (o *Orchestrator) moduleLabelForLocked(moduleRef string) string {
	if moduleRef == "" {
		return ""
	}
	for _, m := range o.modules {
		if m.ID == moduleRef || m.Code == moduleRef {
			return m.Name
		}
	}
	return moduleRef
}
