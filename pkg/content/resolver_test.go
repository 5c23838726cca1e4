package content

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tutorchat-dev/tutorchat/internal/api"
)

type fakeContentBackend struct {
	mu sync.Mutex

	moduleContent map[string][]api.ContentRef
	content       map[string]*api.ContentRef

	listErr map[string]error

	listCalls map[string]int
	getCalls  map[string]int
}

func newFakeContentBackend() *fakeContentBackend {
	return &fakeContentBackend{
		moduleContent: make(map[string][]api.ContentRef),
		content:       make(map[string]*api.ContentRef),
		listErr:       make(map[string]error),
		listCalls:     make(map[string]int),
		getCalls:      make(map[string]int),
	}
}

func (f *fakeContentBackend) ListModuleContent(_ context.Context, moduleID string) ([]api.ContentRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls[moduleID]++
	if err := f.listErr[moduleID]; err != nil {
		return nil, err
	}
	return f.moduleContent[moduleID], nil
}

func (f *fakeContentBackend) GetContent(_ context.Context, contentID string) (*api.ContentRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls[contentID]++
	if ref, ok := f.content[contentID]; ok {
		return ref, nil
	}
	return nil, api.ErrNotFound
}

func TestResolve_ModuleListingWins(t *testing.T) {
	backend := newFakeContentBackend()
	backend.moduleContent["m1"] = []api.ContentRef{
		{ID: "f1", Title: "Lecture 1", ModuleID: "m1"},
		{ID: "f2", Title: "Lecture 2", ModuleID: "m1"},
	}
	resolver := NewResolver(backend)

	got := resolver.Resolve(context.Background(), []string{"f1", "f2"}, []api.Module{{ID: "m1"}})

	if len(got) != 2 {
		t.Fatalf("Resolve() len = %d, want 2", len(got))
	}
	if got[0].Title != "Lecture 1" || got[0].Orphaned {
		t.Errorf("got[0] = %+v, want resolved non-orphaned Lecture 1", got[0])
	}
	if backend.getCalls["f1"] != 0 {
		t.Errorf("GetContent(f1) called %d times, want 0", backend.getCalls["f1"])
	}
}

func TestResolve_DirectFetchIsOrphaned(t *testing.T) {
	backend := newFakeContentBackend()
	backend.content["f9"] = &api.ContentRef{ID: "f9", Title: "Moved notes"}
	resolver := NewResolver(backend)

	got := resolver.Resolve(context.Background(), []string{"f9"}, []api.Module{{ID: "m1"}})

	if len(got) != 1 {
		t.Fatalf("Resolve() len = %d, want 1", len(got))
	}
	if got[0].Title != "Moved notes" || !got[0].Orphaned {
		t.Errorf("got[0] = %+v, want orphaned Moved notes", got[0])
	}
}

func TestResolve_MissingGetsPlaceholder(t *testing.T) {
	backend := newFakeContentBackend()
	resolver := NewResolver(backend)

	got := resolver.Resolve(context.Background(), []string{"ghost"}, nil)

	if len(got) != 1 {
		t.Fatalf("Resolve() len = %d, want 1", len(got))
	}
	if got[0].Title != PlaceholderTitle || !got[0].Orphaned || got[0].ID != "ghost" {
		t.Errorf("got[0] = %+v, want placeholder for ghost", got[0])
	}
}

func TestResolve_FailedListingFallsThroughToDirect(t *testing.T) {
	backend := newFakeContentBackend()
	backend.listErr["m1"] = errors.New("listing down")
	backend.content["f1"] = &api.ContentRef{ID: "f1", Title: "Lecture 1", ModuleID: "m1"}
	resolver := NewResolver(backend)

	got := resolver.Resolve(context.Background(), []string{"f1"}, []api.Module{{ID: "m1"}})

	if len(got) != 1 || got[0].Title != "Lecture 1" {
		t.Fatalf("Resolve() = %+v, want Lecture 1 via direct fetch", got)
	}
	if !got[0].Orphaned {
		t.Error("direct fetch result should be marked orphaned")
	}
}

func TestResolve_PreservesInputOrder(t *testing.T) {
	backend := newFakeContentBackend()
	backend.moduleContent["m1"] = []api.ContentRef{
		{ID: "a", Title: "A"},
		{ID: "c", Title: "C"},
	}
	backend.content["b"] = &api.ContentRef{ID: "b", Title: "B"}
	resolver := NewResolver(backend)

	got := resolver.Resolve(context.Background(), []string{"c", "b", "a", "x"}, []api.Module{{ID: "m1"}})

	want := []string{"C", "B", "A", PlaceholderTitle}
	if len(got) != len(want) {
		t.Fatalf("Resolve() len = %d, want %d", len(got), len(want))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("got[%d].Title = %q, want %q", i, got[i].Title, title)
		}
	}
}

func TestResolve_EmptyInput(t *testing.T) {
	resolver := NewResolver(newFakeContentBackend())
	if got := resolver.Resolve(context.Background(), nil, nil); got != nil {
		t.Errorf("Resolve(nil) = %v, want nil", got)
	}
}
