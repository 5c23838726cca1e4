package chat

import (
	"testing"
	"time"
)

func TestSendLimiter_AllowsFirstThenThrottles(t *testing.T) {
	sl := newSendLimiter(time.Hour)

	if !sl.allow("s1") {
		t.Fatal("first allow should pass")
	}
	if sl.allow("s1") {
		t.Error("immediate second allow should be throttled")
	}
	if !sl.allow("s2") {
		t.Error("a different key has its own bucket")
	}
}

func TestSendLimiter_RefillsAfterInterval(t *testing.T) {
	sl := newSendLimiter(20 * time.Millisecond)

	if !sl.allow("s1") {
		t.Fatal("first allow should pass")
	}
	time.Sleep(30 * time.Millisecond)
	if !sl.allow("s1") {
		t.Error("allow after the interval should pass")
	}
}

func TestSendLimiter_AdoptTransfersState(t *testing.T) {
	sl := newSendLimiter(time.Hour)

	if !sl.allow("draft") {
		t.Fatal("draft allow should pass")
	}
	sl.adopt("draft", "sess-1")

	if sl.allow("sess-1") {
		t.Error("adopted key should carry the drained bucket")
	}
	if _, ok := sl.limiters["draft"]; ok {
		t.Error("draft key should be gone after adopt")
	}
}

func TestSendLimiter_ForgetResetsKey(t *testing.T) {
	sl := newSendLimiter(time.Hour)

	if !sl.allow("s1") {
		t.Fatal("first allow should pass")
	}
	sl.forget("s1")
	if !sl.allow("s1") {
		t.Error("forgotten key starts fresh")
	}
}
