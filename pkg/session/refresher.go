package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher periodically refreshes the session listing so the cached
// summaries stay warm between explicit navigations. Failures are
// logged and retried on the next tick; the stale cache keeps serving
// in the meantime.
type Refresher struct {
	store *Store
	c     *cron.Cron
}

// NewRefresher schedules a background refresh using a cron spec such
// as "@every 5m".
func NewRefresher(store *Store, schedule string) (*Refresher, error) {
	r := &Refresher{
		store: store,
		c:     cron.New(),
	}

	if _, err := r.c.AddFunc(schedule, r.refresh); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the refresh schedule.
func (r *Refresher) Start() {
	r.c.Start()
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.c.Stop().Done()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := r.store.List(ctx); err != nil {
		log.Printf("[SessionStore] background refresh failed: %v", err)
	}
}
