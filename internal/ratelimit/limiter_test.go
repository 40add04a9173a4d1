package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thecratehackers/crate-vote/internal/store"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(store.NewMemory(), map[string]int{"vote": 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "vote", "alice") {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if l.Allow(ctx, "vote", "alice") {
		t.Fatal("fourth hit should be denied")
	}
	// Different actor has its own window.
	if !l.Allow(ctx, "vote", "bob") {
		t.Fatal("bob should be allowed")
	}
}

func TestAllowNewWindowResets(t *testing.T) {
	m := store.NewMemory()
	l := New(m, map[string]int{"add": 1})
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }
	m.SetClock(func() time.Time { return now })
	ctx := context.Background()

	if !l.Allow(ctx, "add", "alice") {
		t.Fatal("first hit should be allowed")
	}
	if l.Allow(ctx, "add", "alice") {
		t.Fatal("second hit should be denied")
	}
	now = now.Add(61 * time.Second)
	if !l.Allow(ctx, "add", "alice") {
		t.Fatal("hit in next window should be allowed")
	}
}

func TestUnknownActionUnlimited(t *testing.T) {
	l := New(store.NewMemory(), map[string]int{})
	for i := 0; i < 50; i++ {
		if !l.Allow(context.Background(), "sneeze", "alice") {
			t.Fatal("unconfigured action should never be limited")
		}
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) IncrWindow(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func TestFailsOpenOnStoreError(t *testing.T) {
	l := New(failingStore{store.NewMemory()}, map[string]int{"vote": 1})
	for i := 0; i < 5; i++ {
		if !l.Allow(context.Background(), "vote", "alice") {
			t.Fatal("store failure must fail open")
		}
	}
}
