// Package content resolves content identifiers attached to a
// conversation into displayable references.
//
// Resolution is tiered. Module listings are consulted first since a
// single listing call covers every file in the module. Identifiers
// not found in any listing are fetched directly, which also catches
// files that were moved out of their module. Anything still missing
// gets a placeholder so the conversation can render its context
// without blocking on a lost file.
package content

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tutorchat-dev/tutorchat/internal/api"
	"github.com/tutorchat-dev/tutorchat/pkg/observability"
)

// PlaceholderTitle labels content that could not be resolved.
const PlaceholderTitle = "File unavailable"

// maxConcurrentFetches bounds parallel backend calls per resolution.
const maxConcurrentFetches = 8

// Resolved is one content identifier after resolution.
type Resolved struct {
	api.ContentRef

	// Orphaned marks content located outside the conversation's
	// known modules, or not located at all.
	Orphaned bool
}

// Backend is the subset of the platform API the resolver needs.
type Backend interface {
	ListModuleContent(ctx context.Context, moduleID string) ([]api.ContentRef, error)
	GetContent(ctx context.Context, contentID string) (*api.ContentRef, error)
}

// Resolver maps content identifiers to references.
type Resolver struct {
	backend Backend
}

// NewResolver creates a resolver over the given backend.
func NewResolver(backend Backend) *Resolver {
	return &Resolver{backend: backend}
}

// Resolve resolves contentIDs against the given modules. The result
// preserves the order of contentIDs and always has one entry per
// input identifier. Backend failures degrade individual entries to
// placeholders rather than failing the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, contentIDs []string, modules []api.Module) []Resolved {
	if len(contentIDs) == 0 {
		return nil
	}

	index := r.indexModules(ctx, modules)

	// Direct fetches for whatever the module listings missed.
	var (
		mu     sync.Mutex
		direct = make(map[string]*api.ContentRef)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, id := range contentIDs {
		if _, ok := index[id]; ok {
			continue
		}
		id := id
		g.Go(func() error {
			ref, err := r.backend.GetContent(gctx, id)
			if err != nil {
				if err != api.ErrNotFound {
					log.Printf("[ContentResolver] direct fetch %s failed: %v", id, err)
				}
				return nil
			}
			mu.Lock()
			direct[id] = ref
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Resolved, 0, len(contentIDs))
	for _, id := range contentIDs {
		switch {
		case index[id] != nil:
			observability.RecordResolution("module")
			out = append(out, Resolved{ContentRef: *index[id]})
		case direct[id] != nil:
			observability.RecordResolution("direct")
			out = append(out, Resolved{ContentRef: *direct[id], Orphaned: true})
		default:
			observability.RecordResolution("placeholder")
			out = append(out, Resolved{
				ContentRef: api.ContentRef{ID: id, Title: PlaceholderTitle},
				Orphaned:   true,
			})
		}
	}
	return out
}

// indexModules lists every module's content in parallel and returns
// an id index. A failed listing contributes nothing; its files fall
// through to direct fetch.
func (r *Resolver) indexModules(ctx context.Context, modules []api.Module) map[string]*api.ContentRef {
	var (
		mu    sync.Mutex
		index = make(map[string]*api.ContentRef)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, m := range modules {
		m := m
		g.Go(func() error {
			refs, err := r.backend.ListModuleContent(gctx, m.ID)
			if err != nil {
				log.Printf("[ContentResolver] listing module %s failed: %v", m.ID, err)
				return nil
			}
			mu.Lock()
			for i := range refs {
				ref := refs[i]
				if _, exists := index[ref.ID]; !exists {
					index[ref.ID] = &ref
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return index
}
