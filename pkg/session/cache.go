// Package session owns the set of known conversation summaries:
// listing, creation, optimistic deletion, and the local-only updates
// that follow a message exchange. The full message history of a
// session lives elsewhere; this package never touches it.
package session

import (
	"context"
	"sort"
	"sync"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

// SummaryCache keeps the last known session listing so a failed
// refresh degrades to stale-but-available data instead of an empty
// screen. Implementations must be safe for concurrent use.
type SummaryCache interface {
	// Snapshot returns the cached summaries, most recently updated
	// first.
	Snapshot(ctx context.Context) ([]api.SessionSummary, error)

	// Replace swaps the entire cached listing.
	Replace(ctx context.Context, summaries []api.SessionSummary) error

	// Upsert inserts or overwrites one summary, keyed by id.
	Upsert(ctx context.Context, summary api.SessionSummary) error

	// Remove deletes one summary and returns it, so an optimistic
	// removal can be rolled back. Returns nil if the id is unknown.
	Remove(ctx context.Context, sessionID string) (*api.SessionSummary, error)

	// Close releases any resources held by the cache.
	Close() error
}

// memoryCache is the default in-process SummaryCache.
type memoryCache struct {
	mu        sync.RWMutex
	summaries map[string]api.SessionSummary
}

// NewMemoryCache creates an in-process summary cache.
func NewMemoryCache() SummaryCache {
	return &memoryCache{summaries: make(map[string]api.SessionSummary)}
}

func (c *memoryCache) Snapshot(_ context.Context) ([]api.SessionSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]api.SessionSummary, 0, len(c.summaries))
	for _, s := range c.summaries {
		out = append(out, s)
	}
	sortSummaries(out)
	return out, nil
}

func (c *memoryCache) Replace(_ context.Context, summaries []api.SessionSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.summaries = make(map[string]api.SessionSummary, len(summaries))
	for _, s := range summaries {
		c.summaries[s.ID] = s
	}
	return nil
}

func (c *memoryCache) Upsert(_ context.Context, summary api.SessionSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[summary.ID] = summary
	return nil
}

func (c *memoryCache) Remove(_ context.Context, sessionID string) (*api.SessionSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.summaries[sessionID]
	if !ok {
		return nil, nil
	}
	delete(c.summaries, sessionID)
	return &s, nil
}

func (c *memoryCache) Close() error { return nil }

// sortSummaries orders a listing most recently updated first, with id
// as the tiebreak so the order is stable.
func sortSummaries(summaries []api.SessionSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
