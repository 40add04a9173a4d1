package quota

import (
	"context"

	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/karma"
	"github.com/thecratehackers/crate-vote/internal/playlist"
	"github.com/thecratehackers/crate-vote/internal/store"
)

// Status is what an actor is still allowed to do. God Mode (owning the
// current #1 song) lifts the vote and window-delete limits entirely.
type Status struct {
	SongsAdded    int  `json:"songs_added"`
	SongsLeft     int  `json:"songs_left"`
	UpvotesUsed   int  `json:"upvotes_used"`
	UpvotesLeft   int  `json:"upvotes_left"`
	DownvotesUsed int  `json:"downvotes_used"`
	DownvotesLeft int  `json:"downvotes_left"`
	DeletesUsed   int  `json:"deletes_used"`
	DeletesLeft   int  `json:"deletes_left"`
	Karma         int  `json:"karma"`
	GodMode       bool `json:"god_mode"`
}

// Manager combines base limits, used counters and karma bonuses into
// remaining allowances.
type Manager struct {
	store   store.Store
	ledger  *karma.Ledger
	catalog *playlist.Catalog
	cfg     config.SessionConfig
}

func New(st store.Store, led *karma.Ledger, cat *playlist.Catalog, cfg config.SessionConfig) *Manager {
	return &Manager{store: st, ledger: led, catalog: cat, cfg: cfg}
}

func (m *Manager) Status(ctx context.Context, actor string) (Status, error) {
	k, err := m.ledger.Karma(ctx, actor)
	if err != nil {
		return Status{}, err
	}
	bonus := m.ledger.Bonus(k)

	songsAdded, err := m.store.Counter(ctx, store.UserSongsKey(actor))
	if err != nil {
		return Status{}, err
	}
	deletesUsed, err := m.store.Counter(ctx, store.UserDeletesKey(actor))
	if err != nil {
		return Status{}, err
	}
	upUsed, err := m.catalog.UsedVotes(ctx, actor, playlist.DirUp)
	if err != nil {
		return Status{}, err
	}
	downUsed, err := m.catalog.UsedVotes(ctx, actor, playlist.DirDown)
	if err != nil {
		return Status{}, err
	}
	owner, ok, err := m.catalog.TopOwner(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		SongsAdded:    int(songsAdded),
		SongsLeft:     clampZero(m.cfg.BaseSongLimit + bonus - int(songsAdded)),
		UpvotesUsed:   int(upUsed),
		UpvotesLeft:   clampZero(m.cfg.BaseUpvoteLimit + bonus - int(upUsed)),
		DownvotesUsed: int(downUsed),
		DownvotesLeft: clampZero(m.cfg.BaseDownvoteLimit + bonus - int(downUsed)),
		DeletesUsed:   int(deletesUsed),
		DeletesLeft:   clampZero(m.cfg.BaseDeleteLimit - int(deletesUsed)),
		Karma:         k,
		GodMode:       ok && owner == actor,
	}
	return st, nil
}

// CanCastVote reports whether a vote landing in the given direction fits the
// actor's allowance. Toggle-offs skip this; flips consult it for the
// incoming direction only, the outgoing vote refunds its own side.
func (m *Manager) CanCastVote(ctx context.Context, actor string, dir playlist.Direction) (bool, error) {
	st, err := m.Status(ctx, actor)
	if err != nil {
		return false, err
	}
	if st.GodMode {
		return true, nil
	}
	if dir == playlist.DirUp {
		return st.UpvotesLeft > 0, nil
	}
	return st.DownvotesLeft > 0, nil
}

func (m *Manager) CanAddSong(ctx context.Context, actor string) (bool, error) {
	st, err := m.Status(ctx, actor)
	if err != nil {
		return false, err
	}
	return st.SongsLeft > 0, nil
}

// NoteSongAdded bumps the actor's add count and charges karma for any slot
// beyond the base allowance. Over-base slots exist only because karma paid
// for them, so the debit happens here, not at check time.
func (m *Manager) NoteSongAdded(ctx context.Context, actor string) (spentKarma bool, err error) {
	n, err := m.store.IncrBy(ctx, store.UserSongsKey(actor), 1)
	if err != nil {
		return false, err
	}
	if int(n) > m.cfg.BaseSongLimit {
		if _, err := m.ledger.Spend(ctx, actor, m.cfg.KarmaAddCost, "over_quota_add"); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (m *Manager) CanDeleteSong(ctx context.Context, actor string) (bool, error) {
	st, err := m.Status(ctx, actor)
	if err != nil {
		return false, err
	}
	return st.GodMode || st.DeletesLeft > 0, nil
}

func (m *Manager) NoteSongDeleted(ctx context.Context, actor string) error {
	_, err := m.store.IncrBy(ctx, store.UserDeletesKey(actor), 1)
	return err
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
