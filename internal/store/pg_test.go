package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/thecratehackers/crate-vote/internal/testutil"
)

func TestPGStoreRoundTrip(t *testing.T) {
	st, cleanup := testutil.OpenTestStore(t)
	defer cleanup()
	ctx := context.Background()

	added, err := st.SetAdd(ctx, "songs", "s1")
	if err != nil || !added {
		t.Fatalf("set add: added=%v err=%v", added, err)
	}
	added, err = st.SetAdd(ctx, "songs", "s1")
	if err != nil || added {
		t.Fatalf("duplicate set add: added=%v err=%v", added, err)
	}
	if has, err := st.SetHas(ctx, "songs", "s1"); err != nil || !has {
		t.Fatalf("set has: has=%v err=%v", has, err)
	}
	if n, err := st.SetCard(ctx, "songs"); err != nil || n != 1 {
		t.Fatalf("set card: n=%d err=%v", n, err)
	}
	removed, err := st.SetRemove(ctx, "songs", "s1")
	if err != nil || !removed {
		t.Fatalf("set remove: removed=%v err=%v", removed, err)
	}
	removed, err = st.SetRemove(ctx, "songs", "s1")
	if err != nil || removed {
		t.Fatalf("second remove: removed=%v err=%v", removed, err)
	}

	if n, err := st.IncrBy(ctx, "karma:alice", 4); err != nil || n != 4 {
		t.Fatalf("incr: n=%d err=%v", n, err)
	}
	if n, err := st.IncrBy(ctx, "karma:alice", -1); err != nil || n != 3 {
		t.Fatalf("decr: n=%d err=%v", n, err)
	}
	if n, err := st.Counter(ctx, "karma:missing"); err != nil || n != 0 {
		t.Fatalf("absent counter: n=%d err=%v", n, err)
	}

	if n, err := st.IncrWindow(ctx, "rl:vote:alice", time.Hour); err != nil || n != 1 {
		t.Fatalf("incr window: n=%d err=%v", n, err)
	}
	if n, err := st.IncrWindow(ctx, "rl:vote:alice", time.Hour); err != nil || n != 2 {
		t.Fatalf("incr window again: n=%d err=%v", n, err)
	}

	if err := st.PutValue(ctx, "song:s1", []byte(`{"id":"s1"}`)); err != nil {
		t.Fatalf("put value: %v", err)
	}
	v, ok, err := st.GetValue(ctx, "song:s1")
	if err != nil || !ok || string(v) != `{"id":"s1"}` {
		t.Fatalf("get value: v=%s ok=%v err=%v", v, ok, err)
	}

	if err := st.WipePrefix(ctx, "song:"); err != nil {
		t.Fatalf("wipe prefix: %v", err)
	}
	if _, ok, _ := st.GetValue(ctx, "song:s1"); ok {
		t.Fatal("value survived prefix wipe")
	}
	if n, _ := st.Counter(ctx, "karma:alice"); n != 3 {
		t.Fatalf("unrelated counter wiped, n=%d", n)
	}
}
