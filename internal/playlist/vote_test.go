package playlist

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestVoteToggleRoundTrip(t *testing.T) {
	c, _ := testCatalog(t)
	ctx := context.Background()
	addSong(t, c, "s1", "alice")

	if err := c.CastVote(ctx, "s1", "bob", DirUp, false); err != nil {
		t.Fatalf("cast: %v", err)
	}
	if score, _ := c.Score(ctx, "s1"); score != 1 {
		t.Fatalf("score = %d, want 1", score)
	}
	if err := c.RetractVote(ctx, "s1", "bob", DirUp); err != nil {
		t.Fatalf("retract: %v", err)
	}
	if score, _ := c.Score(ctx, "s1"); score != 0 {
		t.Fatalf("score after toggle off = %d, want 0", score)
	}
	if n, _ := c.UsedVotes(ctx, "bob", DirUp); n != 0 {
		t.Fatalf("used votes = %d, want 0", n)
	}
}

func TestVoteMutualExclusion(t *testing.T) {
	c, _ := testCatalog(t)
	ctx := context.Background()
	addSong(t, c, "s1", "alice")

	_ = c.CastVote(ctx, "s1", "bob", DirUp, false)
	if err := c.CastVote(ctx, "s1", "bob", DirDown, false); err != nil {
		t.Fatalf("flip: %v", err)
	}
	up, down, err := c.Membership(ctx, "s1", "bob")
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if up || !down {
		t.Fatalf("up=%v down=%v, want only down", up, down)
	}
	if score, _ := c.Score(ctx, "s1"); score != -1 {
		t.Fatalf("score = %d, want -1", score)
	}
	if n, _ := c.UsedVotes(ctx, "bob", DirUp); n != 0 {
		t.Fatalf("upvote quota not refunded on flip, used = %d", n)
	}
}

func TestVoteUnknownSong(t *testing.T) {
	c, _ := testCatalog(t)
	if err := c.CastVote(context.Background(), "nope", "bob", DirUp, false); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDoublePointsGhostCountsTwice(t *testing.T) {
	c, _ := testCatalog(t)
	ctx := context.Background()
	addSong(t, c, "s1", "alice")

	if err := c.CastVote(ctx, "s1", "bob", DirUp, true); err != nil {
		t.Fatalf("cast: %v", err)
	}
	if score, _ := c.Score(ctx, "s1"); score != 2 {
		t.Fatalf("double-points score = %d, want 2", score)
	}
	// The ghost does not count against the voter's quota.
	if n, _ := c.UsedVotes(ctx, "bob", DirUp); n != 1 {
		t.Fatalf("used votes = %d, want 1", n)
	}
	// Retracting the vote takes the ghost with it.
	if err := c.RetractVote(ctx, "s1", "bob", DirUp); err != nil {
		t.Fatalf("retract: %v", err)
	}
	if score, _ := c.Score(ctx, "s1"); score != 0 {
		t.Fatalf("score after retract = %d, want 0", score)
	}
}

func TestDoublePointsFlipClearsGhost(t *testing.T) {
	c, _ := testCatalog(t)
	ctx := context.Background()
	addSong(t, c, "s1", "alice")

	_ = c.CastVote(ctx, "s1", "bob", DirUp, true)
	if err := c.CastVote(ctx, "s1", "bob", DirDown, false); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if score, _ := c.Score(ctx, "s1"); score != -1 {
		t.Fatalf("score = %d, want -1 (boosted upvote fully cleared)", score)
	}
}

func TestConcurrentTogglesKeepScoreConsistent(t *testing.T) {
	c, _ := testCatalog(t)
	ctx := context.Background()
	addSong(t, c, "s1", "alice")

	const voters = 10
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := fmt.Sprintf("v%d", i)
			for j := 0; j < 25; j++ {
				_ = c.CastVote(ctx, "s1", actor, DirUp, false)
				_ = c.RetractVote(ctx, "s1", actor, DirUp)
			}
			_ = c.CastVote(ctx, "s1", actor, DirUp, false)
		}(i)
	}
	wg.Wait()

	if score, _ := c.Score(ctx, "s1"); score != voters {
		t.Fatalf("score = %d, want %d", score, voters)
	}
}
