package cache

import (
	"testing"
	"time"
)

func TestCacheHitThenExpire(t *testing.T) {
	c := New()
	c.Set("playlist", []string{"a", "b"}, 30*time.Millisecond)

	v, ok := c.Get("playlist")
	if !ok {
		t.Fatal("expected hit")
	}
	if got := v.([]string); len(got) != 2 {
		t.Fatalf("got %+v", got)
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("playlist"); ok {
		t.Fatal("expected miss after ttl")
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit 1 miss", s)
	}
}

func TestCacheExplicitInvalidation(t *testing.T) {
	c := New()
	c.Set("playlist", 1, time.Minute)
	c.Set("leaderboard", 2, time.Minute)

	c.Delete("playlist", "leaderboard")
	if _, ok := c.Get("playlist"); ok {
		t.Fatal("playlist survived invalidation")
	}
	if _, ok := c.Get("leaderboard"); ok {
		t.Fatal("leaderboard survived invalidation")
	}
}

func TestCacheClear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Clear()
	if s := c.Stats(); s.Keys != 0 {
		t.Fatalf("keys = %d, want 0", s.Keys)
	}
}
