package chat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultSendInterval is the minimum spacing between sends within one
// conversation.
const DefaultSendInterval = 1000 * time.Millisecond

// sendLimiter enforces a minimum inter-message interval per
// conversation. Violations are rejected outright, never queued.
type sendLimiter struct {
	interval time.Duration
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

func newSendLimiter(interval time.Duration) *sendLimiter {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	return &sendLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// allow reports whether a send keyed by the conversation may proceed
// now. The first send for a key always passes.
func (sl *sendLimiter) allow(key string) bool {
	sl.mu.Lock()
	limiter, ok := sl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(sl.interval), 1)
		sl.limiters[key] = limiter
	}
	sl.mu.Unlock()

	return limiter.Allow()
}

// adopt transfers a draft's limiter state to the session id the draft
// was promoted to, so the first persisted-session send does not get a
// fresh burst.
func (sl *sendLimiter) adopt(fromKey, toKey string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if limiter, ok := sl.limiters[fromKey]; ok {
		sl.limiters[toKey] = limiter
		delete(sl.limiters, fromKey)
	}
}

// forget drops the limiter for a deleted conversation.
func (sl *sendLimiter) forget(key string) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	delete(sl.limiters, key)
}
