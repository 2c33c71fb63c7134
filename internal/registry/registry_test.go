package registry

import (
	"context"
	"testing"
	"time"
)

func TestResolveCreatesPairOnce(t *testing.T) {
	r := New(0)

	a := r.Resolve("client-1")
	if a.Processor == nil || a.Session == nil {
		t.Fatal("resolve returned incomplete pair")
	}
	b := r.Resolve("client-1")
	if a != b {
		t.Fatal("resolve created a second pair for the same client")
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
}

func TestLookupDoesNotCreate(t *testing.T) {
	r := New(0)

	if _, ok := r.Lookup("ghost"); ok {
		t.Fatal("lookup reported an unknown client")
	}
	if r.Len() != 0 {
		t.Fatalf("len = %d after lookup, want 0", r.Len())
	}

	r.Resolve("client-1")
	if _, ok := r.Lookup("client-1"); !ok {
		t.Fatal("lookup missed an existing client")
	}
}

func TestEvict(t *testing.T) {
	r := New(0)
	r.Resolve("client-1")
	r.Evict("client-1")
	r.Evict("client-1") // idempotent

	if r.Len() != 0 {
		t.Fatalf("len = %d after evict, want 0", r.Len())
	}
}

func TestSweepIdleRemovesOnlyStaleClients(t *testing.T) {
	r := New(5 * time.Minute)
	stale := r.Resolve("stale")
	r.Resolve("fresh")

	stale.lastSeen = time.Now().Add(-10 * time.Minute)

	removed := r.SweepIdle(time.Now())
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := r.Lookup("stale"); ok {
		t.Fatal("stale client survived the sweep")
	}
	if _, ok := r.Lookup("fresh"); !ok {
		t.Fatal("fresh client was swept")
	}
}

func TestResolveRefreshesActivity(t *testing.T) {
	r := New(5 * time.Minute)
	c := r.Resolve("client-1")
	c.lastSeen = time.Now().Add(-10 * time.Minute)

	// A frame arriving just before the sweep keeps the client alive.
	r.Resolve("client-1")
	if removed := r.SweepIdle(time.Now()); removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}

func TestRunSweepsUntilCanceled(t *testing.T) {
	r := New(time.Millisecond)
	c := r.Resolve("client-1")
	c.lastSeen = time.Now().Add(-time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(time.Second)
	for r.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper never removed the idle client")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
