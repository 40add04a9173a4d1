package karma

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/store"
)

// Ledger is the per-actor karma economy: earned through presence, rank and
// watch time, spent on over-quota song adds, hard-capped.
type Ledger struct {
	store store.Store
	cfg   config.SessionConfig
}

func New(st store.Store, cfg config.SessionConfig) *Ledger {
	return &Ledger{store: st, cfg: cfg}
}

func (l *Ledger) Karma(ctx context.Context, actor string) (int, error) {
	n, err := l.store.Counter(ctx, store.KarmaKey(actor))
	return int(n), err
}

// Bonus converts raw karma into extra allowance slots. Capped even if raw
// karma somehow exceeds the ledger cap.
func (l *Ledger) Bonus(karma int) int {
	if karma < 0 {
		return 0
	}
	if karma > l.cfg.KarmaBonusCap {
		return l.cfg.KarmaBonusCap
	}
	return karma
}

// Earn credits karma and clamps at the cap. The clamp is a follow-up
// decrement rather than a transaction; a concurrent earn can overshoot for
// a moment, which Bonus tolerates.
func (l *Ledger) Earn(ctx context.Context, actor string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return l.Karma(ctx, actor)
	}
	n, err := l.store.IncrBy(ctx, store.KarmaKey(actor), int64(amount))
	if err != nil {
		return 0, err
	}
	if over := n - int64(l.cfg.KarmaCap); over > 0 {
		n, err = l.store.IncrBy(ctx, store.KarmaKey(actor), -over)
		if err != nil {
			return 0, err
		}
	}
	log.Debug().Str("actor", actor).Str("reason", reason).Int64("karma", n).Msg("karma earned")
	return int(n), nil
}

// Spend debits karma, clamping at zero if a concurrent spend raced us.
func (l *Ledger) Spend(ctx context.Context, actor string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return l.Karma(ctx, actor)
	}
	n, err := l.store.IncrBy(ctx, store.KarmaKey(actor), -int64(amount))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n, err = l.store.IncrBy(ctx, store.KarmaKey(actor), -n)
		if err != nil {
			return 0, err
		}
	}
	log.Debug().Str("actor", actor).Str("reason", reason).Int64("karma", n).Msg("karma spent")
	return int(n), nil
}

// GrantPresence pays one karma per cooldown window per actor.
func (l *Ledger) GrantPresence(ctx context.Context, actor string) (bool, error) {
	n, err := l.store.IncrWindow(ctx, store.RateKey("presence", actor), l.cfg.PresenceKarmaEvery)
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}
	_, err = l.Earn(ctx, actor, 1, "presence")
	return err == nil, err
}

// GrantTopRank pays one karma for holding a top-3 song, once per song id.
// Keying the grant set by song rather than actor keeps a song from paying
// twice when it drops out of the top 3 and climbs back.
func (l *Ledger) GrantTopRank(ctx context.Context, songID, owner string) (bool, error) {
	added, err := l.store.SetAdd(ctx, store.KeyTop3Granted, songID)
	if err != nil || !added {
		return false, err
	}
	_, err = l.Earn(ctx, owner, 1, "top3")
	return err == nil, err
}

// RecordWatch accepts the actor's accumulated watch seconds and pays one
// karma per full threshold not yet paid out.
func (l *Ledger) RecordWatch(ctx context.Context, actor string, totalSeconds int) (int, error) {
	if totalSeconds <= 0 || l.cfg.WatchKarmaSeconds <= 0 {
		return 0, nil
	}
	earned := totalSeconds / l.cfg.WatchKarmaSeconds
	if earned == 0 {
		return 0, nil
	}
	paidKey := store.UserWatchKey(actor) + ":paid"
	paid, err := l.store.Counter(ctx, paidKey)
	if err != nil {
		return 0, err
	}
	due := earned - int(paid)
	if due <= 0 {
		return 0, nil
	}
	if _, err := l.store.IncrBy(ctx, paidKey, int64(due)); err != nil {
		return 0, err
	}
	if _, err := l.Earn(ctx, actor, due, "watch"); err != nil {
		return 0, err
	}
	return due, nil
}

// Rain grants karma to every actor seen this session, at most once per
// cooldown. Returns the number of actors paid.
func (l *Ledger) Rain(ctx context.Context, now time.Time) (int, error) {
	n, err := l.store.IncrWindow(ctx, store.RateKey("rain"), l.cfg.KarmaRainCooldown)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, ErrRainCooldown
	}
	actors, err := l.store.SetMembers(ctx, store.KeyActors)
	if err != nil {
		return 0, err
	}
	for _, actor := range actors {
		if _, err := l.Earn(ctx, actor, l.cfg.KarmaRainAmount, "rain"); err != nil {
			return 0, err
		}
	}
	log.Info().Int("actors", len(actors)).Time("at", now).Msg("karma rain")
	return len(actors), nil
}
