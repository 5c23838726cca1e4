package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

// PlaceholderTitle is the title a session carries until the backend
// generates a real one from the opening exchange.
const PlaceholderTitle = "New conversation"

// previewLimit caps last-message previews, in runes.
const previewLimit = 80

// ErrCreationFailed wraps a failure to persist a new session. Callers
// must not proceed to send a message when creation fails.
var ErrCreationFailed = errors.New("session creation failed")

// Backend is the slice of the REST collaborator the store needs.
type Backend interface {
	ListSessions(ctx context.Context) ([]api.SessionSummary, error)
	CreateSession(ctx context.Context, moduleRef string, contentIDs []string) (*api.SessionSummary, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Store owns the known session summaries. Reads prefer live backend
// data and fall back to the cache; local mutations (preview updates,
// title adoption) never call the backend, which maintains its own
// copies independently.
type Store struct {
	backend Backend
	cache   SummaryCache
}

// NewStore creates a session store. A nil cache defaults to the
// in-process one.
func NewStore(backend Backend, cache SummaryCache) *Store {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Store{backend: backend, cache: cache}
}

// List fetches session summaries from the backend. On failure the
// previously cached listing is returned alongside the error:
// stale-but-available beats empty.
func (s *Store) List(ctx context.Context) ([]api.SessionSummary, error) {
	summaries, err := s.backend.ListSessions(ctx)
	if err != nil {
		cached, cacheErr := s.cache.Snapshot(ctx)
		if cacheErr != nil {
			log.Printf("[SessionStore] cache snapshot failed: %v", cacheErr)
		}
		return cached, err
	}

	for i := range summaries {
		if summaries[i].Title == "" {
			summaries[i].Title = PlaceholderTitle
		}
	}
	if err := s.cache.Replace(ctx, summaries); err != nil {
		log.Printf("[SessionStore] cache replace failed: %v", err)
	}
	return summaries, nil
}

// Cached returns the cached listing without touching the backend.
func (s *Store) Cached(ctx context.Context) []api.SessionSummary {
	cached, err := s.cache.Snapshot(ctx)
	if err != nil {
		log.Printf("[SessionStore] cache snapshot failed: %v", err)
		return nil
	}
	return cached
}

// Get returns the cached summary for one session, if known.
func (s *Store) Get(ctx context.Context, sessionID string) (*api.SessionSummary, bool) {
	for _, summary := range s.Cached(ctx) {
		if summary.ID == sessionID {
			return &summary, true
		}
	}
	return nil, false
}

// Create persists a new session bound to the given context. Failures
// wrap ErrCreationFailed; the caller must abort whatever triggered
// the creation.
func (s *Store) Create(ctx context.Context, moduleRef string, contentIDs []string) (*api.SessionSummary, error) {
	summary, err := s.backend.CreateSession(ctx, moduleRef, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}
	if summary.Title == "" {
		summary.Title = PlaceholderTitle
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}
	if summary.UpdatedAt.IsZero() {
		summary.UpdatedAt = summary.CreatedAt
	}

	if err := s.cache.Upsert(ctx, *summary); err != nil {
		log.Printf("[SessionStore] cache upsert failed: %v", err)
	}
	return summary, nil
}

// Remove deletes a session, optimistically: the entry leaves the
// cached listing immediately and is restored if the backend refuses.
func (s *Store) Remove(ctx context.Context, sessionID string) error {
	removed, err := s.cache.Remove(ctx, sessionID)
	if err != nil {
		log.Printf("[SessionStore] cache remove failed: %v", err)
	}

	if err := s.backend.DeleteSession(ctx, sessionID); err != nil {
		if removed != nil {
			if restoreErr := s.cache.Upsert(ctx, *removed); restoreErr != nil {
				log.Printf("[SessionStore] restore after failed delete: %v", restoreErr)
			}
		}
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// RecordExchange applies the local-only summary update after a
// confirmed message exchange: new preview, two more messages, fresh
// UpdatedAt. The backend keeps its own preview; this never calls it.
func (s *Store) RecordExchange(ctx context.Context, sessionID, previewText string) {
	summary, ok := s.Get(ctx, sessionID)
	if !ok {
		return
	}
	summary.Preview = TruncatePreview(previewText)
	summary.MessageCount += 2
	summary.UpdatedAt = time.Now().UTC()
	if err := s.cache.Upsert(ctx, *summary); err != nil {
		log.Printf("[SessionStore] cache upsert failed: %v", err)
	}
}

// SetTitle records a generated title locally.
func (s *Store) SetTitle(ctx context.Context, sessionID, title string) {
	if title == "" {
		return
	}
	summary, ok := s.Get(ctx, sessionID)
	if !ok {
		return
	}
	summary.Title = title
	if err := s.cache.Upsert(ctx, *summary); err != nil {
		log.Printf("[SessionStore] cache upsert failed: %v", err)
	}
}

// Close releases the cache.
func (s *Store) Close() error {
	return s.cache.Close()
}

// TruncatePreview shortens text to the preview limit on a rune
// boundary.
func TruncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit-1]) + "…"
}
