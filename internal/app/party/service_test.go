package party

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/playlist"
	"github.com/thecratehackers/crate-vote/internal/store"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		PlaylistCapacity:    100,
		BaseSongLimit:       3,
		BaseUpvoteLimit:     5,
		BaseDownvoteLimit:   5,
		BaseDeleteLimit:     1,
		KarmaCap:            10,
		KarmaBonusCap:       5,
		KarmaAddCost:        2,
		KarmaRainAmount:     3,
		PresenceKarmaEvery:  time.Minute,
		KarmaRainCooldown:   5 * time.Minute,
		WatchKarmaSeconds:   300,
		SessionDuration:     time.Hour,
		BattleVoteWindow:    30 * time.Second,
		LightningWindow:     15 * time.Second,
		DeleteWindow:        time.Minute,
		DoublePointsWindow:  time.Minute,
		PruneScoreThreshold: -5,
		PruneGrace:          2 * time.Minute,
		VoteRatePerMin:      100,
		AddRatePerMin:       100,
		SearchRatePerMin:    100,
	}
}

// newTestService returns a service over the in-memory store with the session
// already started, so intents are not blocked by the lock.
func newTestService(t *testing.T, mutate ...func(*config.SessionConfig)) *Service {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	svc := NewService(store.NewMemory(), cfg)
	if err := svc.StartSession(context.Background(), time.Hour); err != nil {
		t.Fatalf("start session: %v", err)
	}
	return svc
}

func mustAdd(t *testing.T, svc *Service, actor, id string) {
	t.Helper()
	if _, err := svc.AddSong(context.Background(), actor, playlist.Song{ID: id, Name: "song " + id}); err != nil {
		t.Fatalf("add %s by %s: %v", id, actor, err)
	}
}

func mustScore(t *testing.T, svc *Service, id string, want int64) {
	t.Helper()
	got, err := svc.Catalog().Score(context.Background(), id)
	if err != nil {
		t.Fatalf("score %s: %v", id, err)
	}
	if got != want {
		t.Fatalf("score %s = %d, want %d", id, got, want)
	}
}

func TestLockedSessionRejectsIntents(t *testing.T) {
	svc := NewService(store.NewMemory(), testConfig())
	ctx := context.Background()

	if _, err := svc.AddSong(ctx, "alice", playlist.Song{ID: "s1"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("add on locked session: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("vote on locked session: %v", err)
	}
	if err := svc.DeleteSong(ctx, "s1", "alice"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("delete on locked session: %v", err)
	}
	if _, err := svc.VoteInBattle(ctx, "bob", "s1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("battle vote on locked session: %v", err)
	}
	if err := svc.UseWindowDelete(ctx, "bob", "s1"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("window delete on locked session: %v", err)
	}
}

func TestHostPermissionToggles(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")

	if err := svc.SetPermissions(ctx, false, true); err != nil {
		t.Fatalf("set permissions: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("vote with voting off: %v", err)
	}
	// Adding stays open.
	mustAdd(t, svc, "alice", "s2")

	if err := svc.SetPermissions(ctx, true, true); err != nil {
		t.Fatalf("set permissions: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("vote after re-enable: %v", err)
	}
}

func TestVoteToggleAndFlip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")

	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("upvote: %v", err)
	}
	mustScore(t, svc, "s1", 1)

	// Same direction again retracts.
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	mustScore(t, svc, "s1", 0)

	// Opposite direction flips cleanly.
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("upvote again: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirDown); err != nil {
		t.Fatalf("flip to down: %v", err)
	}
	mustScore(t, svc, "s1", -1)

	st, err := svc.UserStatus(ctx, "bob")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.UpvotesUsed != 0 || st.DownvotesUsed != 1 {
		t.Fatalf("status after flip = %+v", st)
	}
}

func TestAddSongMintsID(t *testing.T) {
	svc := newTestService(t)
	res, err := svc.AddSong(context.Background(), "alice", playlist.Song{Name: "untitled"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if res.SongID == "" {
		t.Fatal("expected a minted song id")
	}
	if _, err := svc.Catalog().Get(context.Background(), res.SongID); err != nil {
		t.Fatalf("get minted song: %v", err)
	}
}

func TestVoteUnknownSong(t *testing.T) {
	svc := newTestService(t)
	if err := svc.Vote(context.Background(), "ghost", "bob", playlist.DirUp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("vote on missing song: %v", err)
	}
}

func TestVoteQuotaExhausted(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SessionConfig) { cfg.BaseUpvoteLimit = 1 })
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")
	mustAdd(t, svc, "alice", "s2")

	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("first upvote: %v", err)
	}
	if err := svc.Vote(ctx, "s2", "bob", playlist.DirUp); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("over-quota upvote: %v", err)
	}
	// Retracting the first vote frees the slot.
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("retract: %v", err)
	}
	if err := svc.Vote(ctx, "s2", "bob", playlist.DirUp); err != nil {
		t.Fatalf("upvote after refund: %v", err)
	}
}

func TestBannedActor(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")

	if err := svc.Ban(ctx, "bob", true); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("banned vote: %v", err)
	}
	if _, err := svc.AddSong(ctx, "bob", playlist.Song{ID: "s2"}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("banned add: %v", err)
	}
	if err := svc.Ban(ctx, "bob", false); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("vote after unban: %v", err)
	}
}

func TestCapacityDisplacement(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SessionConfig) { cfg.PlaylistCapacity = 2 })
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")
	mustAdd(t, svc, "bob", "s2")
	if err := svc.Vote(ctx, "s1", "vic", playlist.DirUp); err != nil {
		t.Fatalf("vote: %v", err)
	}

	// s2 sits at zero and yields its slot.
	res, err := svc.AddSong(ctx, "carol", playlist.Song{ID: "s3"})
	if err != nil {
		t.Fatalf("add at capacity: %v", err)
	}
	if res.Displaced != "song s2" {
		t.Fatalf("displaced = %q, want the displaced song's name", res.Displaced)
	}

	// With every song in positive territory nothing can be displaced.
	if err := svc.Vote(ctx, "s3", "wen", playlist.DirUp); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := svc.AddSong(ctx, "dave", playlist.Song{ID: "s4"}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("add over full positive playlist: %v", err)
	}
}

func TestDeleteSongOwnerAndQuota(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")
	mustAdd(t, svc, "alice", "s2")

	if err := svc.DeleteSong(ctx, "s1", "bob"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("delete by non-owner: %v", err)
	}
	if err := svc.DeleteSong(ctx, "s1", "alice"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := svc.DeleteSong(ctx, "s2", "alice"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestVoteRateLimit(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SessionConfig) { cfg.VoteRatePerMin = 1 })
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")

	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second vote in window: %v", err)
	}
}

func TestDeleteWindowFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "sa")
	mustAdd(t, svc, "bob", "sb")
	mustAdd(t, svc, "bob", "sb2")

	// No deleting outside a window.
	if err := svc.UseWindowDelete(ctx, "alice", "sb"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete without window: %v", err)
	}
	if _, err := svc.StartDeleteWindow(ctx); err != nil {
		t.Fatalf("start window: %v", err)
	}

	// Contributors get exactly one delete.
	if err := svc.UseWindowDelete(ctx, "alice", "sb"); err != nil {
		t.Fatalf("window delete: %v", err)
	}
	if err := svc.UseWindowDelete(ctx, "alice", "sb2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("second window delete: %v", err)
	}

	// Spectators who added nothing get none.
	if err := svc.UseWindowDelete(ctx, "carol", "sb2"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("spectator window delete: %v", err)
	}

	if _, err := svc.Catalog().Get(ctx, "sb"); !errors.Is(err, playlist.ErrNotFound) {
		t.Fatalf("sb should be gone: %v", err)
	}
}

func TestDoublePointsDoublesNewVotes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")

	if _, err := svc.StartDoublePoints(ctx); err != nil {
		t.Fatalf("start double points: %v", err)
	}
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("vote: %v", err)
	}
	mustScore(t, svc, "s1", 2)

	st, err := svc.UserStatus(ctx, "bob")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.UpvotesUsed != 1 {
		t.Fatalf("doubled vote must cost one slot, status %+v", st)
	}

	// Retraction removes both points.
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("retract: %v", err)
	}
	mustScore(t, svc, "s1", 0)
}

func TestKarmaRain(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Presence(ctx, "alice", 0); err != nil {
		t.Fatalf("presence: %v", err)
	}
	if _, err := svc.Presence(ctx, "bob", 0); err != nil {
		t.Fatalf("presence: %v", err)
	}

	paid, err := svc.TriggerKarmaRain(ctx)
	if err != nil {
		t.Fatalf("rain: %v", err)
	}
	if paid != 2 {
		t.Fatalf("paid = %d, want 2", paid)
	}

	// Presence karma (1) plus rain (3) extends the allowances.
	st, err := svc.UserStatus(ctx, "alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.UpvotesLeft != 9 {
		t.Fatalf("upvotes left = %d, want 9", st.UpvotesLeft)
	}

	if _, err := svc.TriggerKarmaRain(ctx); !errors.Is(err, ErrConflict) {
		t.Fatalf("rain inside cooldown: %v", err)
	}
}

func TestPresenceWatchKarma(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Presence(ctx, "alice", 650)
	if err != nil {
		t.Fatalf("presence: %v", err)
	}
	if !res.PresenceKarma || res.WatchKarma != 2 {
		t.Fatalf("presence result = %+v", res)
	}

	// Re-reporting the same total pays nothing more.
	res, err = svc.Presence(ctx, "alice", 650)
	if err != nil {
		t.Fatalf("presence: %v", err)
	}
	if res.PresenceKarma || res.WatchKarma != 0 {
		t.Fatalf("repeat presence result = %+v", res)
	}
}

func TestBattleEndToEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.Modes().SetPicker(func(int) int { return 0 })

	owners := []string{"o1", "o2", "o3", "o4", "o5"}
	voters := []string{"v1", "v2", "v3", "v4", "v5"}
	for i, owner := range owners {
		mustAdd(t, svc, owner, owner+"-song")
		// Descending scores 5..1 pin the sort order and the top 3.
		for _, voter := range voters[:5-i] {
			if err := svc.Vote(ctx, owner+"-song", voter, playlist.DirUp); err != nil {
				t.Fatalf("seed vote: %v", err)
			}
		}
	}

	b, err := svc.StartVersusBattle(ctx)
	if err != nil {
		t.Fatalf("start battle: %v", err)
	}
	// Ranks 1-3 are protected; the deterministic picker lands on ranks 4+5.
	if b.SongA.ID != "o4-song" || b.SongB.ID != "o5-song" {
		t.Fatalf("contenders = %s vs %s", b.SongA.ID, b.SongB.ID)
	}

	if _, err := svc.StartVersusBattle(ctx); !errors.Is(err, ErrConflict) {
		t.Fatalf("second battle: %v", err)
	}

	b, err = svc.VoteInBattle(ctx, "v1", "o4-song")
	if err != nil {
		t.Fatalf("battle vote: %v", err)
	}
	if b.VotesA != 1 || b.VotesB != 0 {
		t.Fatalf("counts = %d/%d", b.VotesA, b.VotesB)
	}
	if _, err := svc.VoteInBattle(ctx, "v1", "o5-song"); !errors.Is(err, ErrConflict) {
		t.Fatalf("double battle vote: %v", err)
	}
	if _, err := svc.VoteInBattle(ctx, "v2", "o1-song"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("vote for non-contender: %v", err)
	}

	b, err = svc.ResolveBattle(ctx)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if b.WinnerID != "o4-song" || b.LoserID != "o5-song" {
		t.Fatalf("resolved = %+v", b)
	}

	// The loser is gone and blacklisted.
	if _, err := svc.Catalog().Get(ctx, "o5-song"); !errors.Is(err, playlist.ErrNotFound) {
		t.Fatalf("loser still present: %v", err)
	}
	if _, err := svc.AddSong(ctx, "o5", playlist.Song{ID: "o5-song"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("re-adding eliminated song: %v", err)
	}
}

func TestBattleVoteRateLimit(t *testing.T) {
	svc := newTestService(t, func(cfg *config.SessionConfig) { cfg.VoteRatePerMin = 1 })
	ctx := context.Background()
	svc.Modes().SetPicker(func(int) int { return 0 })

	owners := []string{"o1", "o2", "o3", "o4", "o5"}
	voters := []string{"v1", "v2", "v3", "v4", "v5"}
	for i, owner := range owners {
		mustAdd(t, svc, owner, owner+"-song")
		for _, voter := range voters[:5-i] {
			if err := svc.Vote(ctx, owner+"-song", voter, playlist.DirUp); err != nil {
				t.Fatalf("seed vote: %v", err)
			}
		}
	}
	if _, err := svc.StartVersusBattle(ctx); err != nil {
		t.Fatalf("start battle: %v", err)
	}

	if _, err := svc.VoteInBattle(ctx, "v1", "o4-song"); err != nil {
		t.Fatalf("first battle vote: %v", err)
	}
	if _, err := svc.VoteInBattle(ctx, "v1", "o5-song"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second battle vote in window: %v, want ErrRateLimited", err)
	}
	// Battle ballots ride their own limiter window, not the per-song one the
	// seed votes consumed.
	if _, err := svc.VoteInBattle(ctx, "v2", "o5-song"); err != nil {
		t.Fatalf("other voter: %v", err)
	}
}

func TestJanitorRankKarma(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("vote: %v", err)
	}

	svc.rankKarmaSweep(ctx)
	st, err := svc.UserStatus(ctx, "alice")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.UpvotesLeft != 6 {
		t.Fatalf("upvotes left = %d, want base+1 after top rank grant", st.UpvotesLeft)
	}

	// The grant is once per song.
	svc.rankKarmaSweep(ctx)
	st, _ = svc.UserStatus(ctx, "alice")
	if st.UpvotesLeft != 6 {
		t.Fatalf("upvotes left = %d after repeat sweep", st.UpvotesLeft)
	}
}

func TestResetSession(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("vote: %v", err)
	}
	svc.Feed().Append("marker", "", "", "")

	if err := svc.ResetSession(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	ranked, err := svc.SortedSongs(ctx)
	if err != nil {
		t.Fatalf("sorted: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("playlist not empty after reset: %+v", ranked)
	}
	if got := svc.Feed().Recent(); len(got) != 0 {
		t.Fatalf("activity not empty after reset: %+v", got)
	}

	// The timer was wiped too, so the session is locked again.
	state, err := svc.SessionState(ctx)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !state.Locked {
		t.Fatal("session should be locked after reset")
	}

	// Re-adding the same id starts from a clean slate.
	if err := svc.StartSession(ctx, time.Hour); err != nil {
		t.Fatalf("restart: %v", err)
	}
	mustAdd(t, svc, "alice", "s1")
	mustScore(t, svc, "s1", 0)
	st, _ := svc.UserStatus(ctx, "alice")
	if st.SongsLeft != 2 {
		t.Fatalf("songs left = %d, want base-1 after reset", st.SongsLeft)
	}
}

func TestActivityFeedRecordsIntents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, "alice", "s1")
	if err := svc.Vote(ctx, "s1", "bob", playlist.DirUp); err != nil {
		t.Fatalf("vote: %v", err)
	}

	events := svc.Feed().Recent()
	if len(events) != 2 {
		t.Fatalf("events = %+v", events)
	}
	if events[0].Kind != "song_added" || events[1].Kind != "upvote" {
		t.Fatalf("kinds = %s, %s", events[0].Kind, events[1].Kind)
	}
}
