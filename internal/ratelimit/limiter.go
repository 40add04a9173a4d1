package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/store"
)

const window = time.Minute

// Limiter enforces fixed-window per-actor action limits on top of the
// store's expiring counters. A store failure allows the action: a flaky
// backing store must degrade quota strictness, not take the session down.
type Limiter struct {
	store  store.Store
	limits map[string]int

	now func() time.Time
}

func New(st store.Store, limits map[string]int) *Limiter {
	return &Limiter{store: st, limits: limits, now: time.Now}
}

// Allow records one hit for (action, actor[, target]) and reports whether it
// fits the action's window limit. Unknown actions are unlimited.
func (l *Limiter) Allow(ctx context.Context, action, actor string, target ...string) bool {
	limit, ok := l.limits[action]
	if !ok || limit <= 0 {
		return true
	}
	bucket := l.now().Unix() / int64(window/time.Second)
	parts := append([]string{action, actor}, target...)
	parts = append(parts, strconv.FormatInt(bucket, 10))
	n, err := l.store.IncrWindow(ctx, store.RateKey(parts...), window)
	if err != nil {
		log.Warn().Err(err).Str("action", action).Str("actor", actor).
			Msg("rate limiter store failure, failing open")
		return true
	}
	return n <= int64(limit)
}
