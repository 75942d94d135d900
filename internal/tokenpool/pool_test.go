package tokenpool

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/deadbird/kpi-crawler/pkg/log"
)

func quotaHeaders(remaining int, resetAt time.Time) http.Header {
	h := http.Header{}
	h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	return h
}

func newTestPool(t *testing.T, tokens []string) *Pool {
	t.Helper()
	logger, _ := log.NewCslLogger()
	return NewPool(tokens, 5, logger)
}

func TestCurrentWithNoTokens(t *testing.T) {
	p := newTestPool(t, nil)
	if got := p.Current(); got != "" {
		t.Fatalf("expected empty token for anonymous pool, got %q", got)
	}
	if p.Exhausted() {
		t.Fatal("anonymous pool must never report exhausted")
	}
	// Observe/Rotate must be harmless no-ops.
	p.Observe(quotaHeaders(0, time.Now()))
	if p.Rotate() {
		t.Fatal("rotate on empty pool must be a no-op")
	}
}

func TestRotateRoundRobin(t *testing.T) {
	p := newTestPool(t, []string{"a", "b", "c"})
	if p.Size() != 3 {
		t.Fatalf("size = %d, want 3", p.Size())
	}
	want := []string{"b", "c", "a", "b"}
	for i, w := range want {
		if !p.Rotate() {
			t.Fatalf("rotate %d: expected active token to change", i)
		}
		if got := p.Current(); got != w {
			t.Fatalf("rotate %d: got token %q, want %q", i, got, w)
		}
	}
}

func TestRotateSingleTokenIsNoop(t *testing.T) {
	p := newTestPool(t, []string{"only"})
	if p.Rotate() {
		t.Fatal("single token pool must not report a rotation")
	}
	if got := p.Current(); got != "only" {
		t.Fatalf("got %q, want %q", got, "only")
	}
}

// Scenario B: credential A reports remaining at/below threshold, the
// pool must rotate to credential B before the next request.
func TestNearLimitTriggersRotation(t *testing.T) {
	p := newTestPool(t, []string{"a", "b"})
	reset := time.Now().Add(time.Hour)

	p.Observe(quotaHeaders(3, reset))
	if !p.NearLimit() {
		t.Fatal("remaining=3 with threshold 5 must report near limit")
	}
	p.Rotate()
	if got := p.Current(); got != "b" {
		t.Fatalf("after rotation got %q, want %q", got, "b")
	}
	if p.NearLimit() {
		t.Fatal("token b has no observed state and must not be near limit")
	}
}

func TestExhausted(t *testing.T) {
	p := newTestPool(t, []string{"a", "b"})
	reset := time.Now().Add(30 * time.Minute)

	p.Observe(quotaHeaders(2, reset))
	if p.Exhausted() {
		t.Fatal("pool with one unobserved token must not be exhausted")
	}

	p.Rotate()
	p.Observe(quotaHeaders(1, reset.Add(10*time.Minute)))
	if !p.Exhausted() {
		t.Fatal("all tokens below the low water mark must report exhausted")
	}
}

func TestSleepUntilEarliestReset(t *testing.T) {
	p := newTestPool(t, []string{"a", "b"})
	now := time.Unix(1_700_000_000, 0)
	p.nowFn = func() time.Time { return now }

	var slept time.Duration
	p.sleepFn = func(ctx context.Context, d time.Duration) { slept = d }

	// Token a resets in 10 minutes, token b in 2 minutes. The pool must
	// sleep until b's reset plus the margin.
	p.Observe(quotaHeaders(0, now.Add(10*time.Minute)))
	p.Rotate()
	p.Observe(quotaHeaders(1, now.Add(2*time.Minute)))

	p.SleepUntilEarliestReset(context.Background())
	want := 2*time.Minute + resetMargin
	if slept != want {
		t.Fatalf("slept %v, want %v", slept, want)
	}
}

func TestSleepFallbackWithoutResetInfo(t *testing.T) {
	p := newTestPool(t, []string{"a"})
	var slept time.Duration
	p.sleepFn = func(ctx context.Context, d time.Duration) { slept = d }

	p.SleepUntilEarliestReset(context.Background())
	if slept != fallbackSleep {
		t.Fatalf("slept %v, want fallback %v", slept, fallbackSleep)
	}
}

func TestSleepSkippedWhenResetInPast(t *testing.T) {
	p := newTestPool(t, []string{"a"})
	now := time.Unix(1_700_000_000, 0)
	p.nowFn = func() time.Time { return now }

	called := false
	p.sleepFn = func(ctx context.Context, d time.Duration) { called = true }

	p.Observe(quotaHeaders(0, now.Add(-2*time.Minute)))
	p.SleepUntilEarliestReset(context.Background())
	if called {
		t.Fatal("reset in the past must not sleep")
	}
}
