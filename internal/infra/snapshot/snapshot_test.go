package snapshot_test

import (
	"testing"
	"time"

	"github.com/ledgeros/console-bfa-go/internal/infra/snapshot"
)

type countingObserver struct {
	stale, hits, misses int
}

func (c *countingObserver) IncrStaleDiscarded(string) { c.stale++ }
func (c *countingObserver) IncrSnapshotHit(string)    { c.hits++ }
func (c *countingObserver) IncrSnapshotMiss(string)   { c.misses++ }

func TestStore_ApplyAndGet(t *testing.T) {
	s := snapshot.New[string](5*time.Minute, nil)
	defer s.Close()

	seq := s.Begin("accounts")
	if !s.Apply("accounts", seq, "v1") {
		t.Fatal("expected first response to apply")
	}
	val, ok := s.Get("accounts")
	if !ok {
		t.Fatal("expected snapshot to exist")
	}
	if val != "v1" {
		t.Errorf("expected 'v1', got '%s'", val)
	}
}

func TestStore_GetMiss(t *testing.T) {
	obs := &countingObserver{}
	s := snapshot.New[string](5*time.Minute, obs)
	defer s.Close()

	if _, ok := s.Get("nonexistent"); ok {
		t.Fatal("expected miss for unknown view")
	}
	if obs.misses != 1 {
		t.Errorf("expected 1 miss, got %d", obs.misses)
	}
}

func TestStore_OutOfOrderResponseDiscarded(t *testing.T) {
	obs := &countingObserver{}
	s := snapshot.New[string](5*time.Minute, obs)
	defer s.Close()

	first := s.Begin("transactions")
	second := s.Begin("transactions")

	// The later fetch lands first.
	if !s.Apply("transactions", second, "filtered") {
		t.Fatal("expected newer response to apply")
	}
	if s.Apply("transactions", first, "unfiltered") {
		t.Fatal("expected older response to be discarded")
	}

	val, _ := s.Get("transactions")
	if val != "filtered" {
		t.Errorf("expected 'filtered', got '%s'", val)
	}
	if obs.stale != 1 {
		t.Errorf("expected 1 stale discard, got %d", obs.stale)
	}
}

func TestStore_InOrderResponsesBothApply(t *testing.T) {
	s := snapshot.New[int](5*time.Minute, nil)
	defer s.Close()

	a := s.Begin("loans")
	b := s.Begin("loans")
	if !s.Apply("loans", a, 1) || !s.Apply("loans", b, 2) {
		t.Fatal("expected in-order responses to apply")
	}
	if val, _ := s.Get("loans"); val != 2 {
		t.Errorf("expected 2, got %d", val)
	}
}

func TestStore_ViewsAreIndependent(t *testing.T) {
	s := snapshot.New[string](5*time.Minute, nil)
	defer s.Close()

	a := s.Begin("accounts")
	_ = s.Begin("accounts")
	g := s.Begin("gold")
	if !s.Apply("gold", g, "gold") {
		t.Fatal("a fetch on another view must not make this one stale")
	}
	if !s.Apply("accounts", a, "accounts") {
		t.Fatal("expected first landed response to apply")
	}
}

func TestStore_Expiration(t *testing.T) {
	s := snapshot.New[string](50*time.Millisecond, nil)
	defer s.Close()

	s.Apply("view", s.Begin("view"), "value")
	time.Sleep(100 * time.Millisecond)

	if _, ok := s.Get("view"); ok {
		t.Fatal("expected snapshot to be expired")
	}
}

func TestStore_InvalidateKeepsOrdering(t *testing.T) {
	s := snapshot.New[string](5*time.Minute, nil)
	defer s.Close()

	old := s.Begin("view")
	s.Apply("view", s.Begin("view"), "new")
	s.Invalidate("view")

	if _, ok := s.Get("view"); ok {
		t.Fatal("expected snapshot to be invalidated")
	}
	if s.Apply("view", old, "old") {
		t.Fatal("expected stale response to stay discarded after invalidate")
	}
}

func TestStore_Reset(t *testing.T) {
	s := snapshot.New[string](5*time.Minute, nil)
	defer s.Close()

	s.Apply("a", s.Begin("a"), "1")
	s.Apply("b", s.Begin("b"), "2")
	s.Reset()

	if _, ok := s.Get("a"); ok {
		t.Fatal("expected reset to clear a")
	}
	if _, ok := s.Get("b"); ok {
		t.Fatal("expected reset to clear b")
	}
}
