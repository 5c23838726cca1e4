package chat

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tutorchat-dev/tutorchat/internal/api"
	"github.com/tutorchat-dev/tutorchat/pkg/observability"
	"github.com/tutorchat-dev/tutorchat/pkg/session"
)

// draftKey is the rate limit key used before a session exists.
const draftKey = "draft"

// titleTimeout bounds the background title generation call.
const titleTimeout = 30 * time.Second

// Backend is the subset of the platform API the dispatcher needs.
type Backend interface {
	ListMessages(ctx context.Context, sessionID string) ([]api.WireMessage, error)
	SendMessage(ctx context.Context, sessionID, text string) (*api.ExchangeResult, error)
	GenerateTitle(ctx context.Context, sessionID string) (string, error)
}

// SendResult reports a confirmed exchange.
type SendResult struct {
	// SessionID is the session the exchange landed in. It differs
	// from the requested session when a draft was promoted.
	SessionID string

	// Created reports whether this send promoted a draft into a
	// real session.
	Created bool

	UserMessage      Message
	AssistantMessage Message
}

// Dispatcher owns the message transcript of the active conversation
// and pushes outgoing messages through validation, rate limiting and
// the exchange round trip.
type Dispatcher struct {
	backend Backend
	store   *session.Store
	limiter *sendLimiter

	mu        sync.Mutex
	msgs      []Message
	loadedFor string
	sending   bool
}

// NewDispatcher creates a dispatcher. A non-positive sendInterval
// falls back to DefaultSendInterval.
func NewDispatcher(backend Backend, store *session.Store, sendInterval time.Duration) *Dispatcher {
	return &Dispatcher{
		backend: backend,
		store:   store,
		limiter: newSendLimiter(sendInterval),
	}
}

// FetchHistory fetches the transcript for sessionID without touching
// dispatcher state. The caller decides whether the result is still
// wanted and commits it with InstallHistory; a fetch whose activation
// lost a navigation race is simply dropped. Fetching the session that
// is already installed returns the current transcript without a
// network call, so duplicate navigation events do not refetch.
func (d *Dispatcher) FetchHistory(ctx context.Context, sessionID string) ([]Message, error) {
	d.mu.Lock()
	if d.loadedFor == sessionID {
		out := make([]Message, len(d.msgs))
		copy(out, d.msgs)
		d.mu.Unlock()
		return out, nil
	}
	d.mu.Unlock()

	wire, err := d.backend.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", sessionID, err)
	}

	msgs := make([]Message, 0, len(wire))
	for _, w := range wire {
		msgs = append(msgs, fromWire(w))
	}
	return msgs, nil
}

// InstallHistory replaces the transcript with a fetched one.
func (d *Dispatcher) InstallHistory(sessionID string, msgs []Message) {
	d.mu.Lock()
	d.msgs = msgs
	d.loadedFor = sessionID
	d.mu.Unlock()
}

// Reset clears the transcript, returning the dispatcher to the draft
// state.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.msgs = nil
	d.loadedFor = ""
	d.mu.Unlock()
}

// Forget drops rate limiter state for a deleted session.
func (d *Dispatcher) Forget(sessionID string) {
	d.limiter.forget(sessionID)
}

// Messages returns a copy of the current transcript.
func (d *Dispatcher) Messages() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.msgs))
	copy(out, d.msgs)
	return out
}

// Send validates and dispatches text. An empty sessionID means the
// conversation is still a draft; the session is created first with
// the given binding and the result carries the new id.
//
// On a confirmed exchange the optimistic local entry is replaced in
// place by the backend's pair. On a failed exchange the local entry
// stays in the transcript marked pending.
func (d *Dispatcher) Send(ctx context.Context, sessionID string, binding ContextBinding, text string) (*SendResult, error) {
	if err := validateText(text); err != nil {
		observability.RecordSend("rejected")
		return nil, err
	}

	d.mu.Lock()
	if d.sending {
		d.mu.Unlock()
		return nil, ErrSendInFlight
	}
	d.sending = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.sending = false
		d.mu.Unlock()
	}()

	key := sessionID
	if key == "" {
		key = draftKey
	}
	if !d.limiter.allow(key) {
		observability.RecordSend("rate_limited")
		return nil, ErrRateLimited
	}

	created := false
	if sessionID == "" {
		summary, err := d.store.Create(ctx, binding.ModuleRef, binding.ContentIDs)
		if err != nil {
			observability.RecordSend("failed")
			return nil, err
		}
		sessionID = summary.ID
		created = true
		d.limiter.adopt(draftKey, sessionID)

		d.mu.Lock()
		d.loadedFor = sessionID
		d.mu.Unlock()
	}

	local := newLocalMessage(text)
	d.mu.Lock()
	d.msgs = append(d.msgs, local)
	d.mu.Unlock()

	start := time.Now()
	exchange, err := d.backend.SendMessage(ctx, sessionID, text)
	if err != nil {
		observability.RecordSend("failed")
		return nil, fmt.Errorf("sending message: %w", err)
	}

	userMsg := fromWire(exchange.UserMessage)
	assistantMsg := fromWire(exchange.AssistantMessage)

	d.mu.Lock()
	d.splice(local.LocalID, userMsg, assistantMsg)
	d.mu.Unlock()

	d.store.RecordExchange(ctx, sessionID, assistantMsg.Content)
	observability.RecordSend("confirmed")
	observability.RecordExchangeDuration(time.Since(start))

	d.maybeGenerateTitle(sessionID)

	return &SendResult{
		SessionID:        sessionID,
		Created:          created,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// splice replaces the optimistic entry identified by localID with the
// confirmed user message and inserts the assistant reply right after
// it. Messages that landed in between are preserved. If the entry is
// gone (transcript was reset), the pair is appended instead.
func (d *Dispatcher) splice(localID string, userMsg, assistantMsg Message) {
	for i := range d.msgs {
		if d.msgs[i].LocalID == localID {
			rest := make([]Message, len(d.msgs[i+1:]))
			copy(rest, d.msgs[i+1:])
			d.msgs = append(d.msgs[:i], userMsg, assistantMsg)
			d.msgs = append(d.msgs, rest...)
			return
		}
	}
	d.msgs = append(d.msgs, userMsg, assistantMsg)
}

// maybeGenerateTitle kicks off background title generation for
// sessions still carrying the placeholder title. Failures are logged
// and never surfaced; the placeholder simply stays.
func (d *Dispatcher) maybeGenerateTitle(sessionID string) {
	summary, ok := d.store.Get(context.Background(), sessionID)
	if ok && summary.Title != session.PlaceholderTitle {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
		defer cancel()

		title, err := d.backend.GenerateTitle(ctx, sessionID)
		if err != nil {
			log.Printf("[MessageDispatcher] title generation for %s failed: %v", sessionID, err)
			return
		}
		if title == "" {
			return
		}
		d.store.SetTitle(ctx, sessionID, title)
	}()
}
