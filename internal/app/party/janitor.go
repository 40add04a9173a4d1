package party

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const janitorSweepInterval = 5 * time.Second

// StartJanitor runs the background maintenance loops: the fast sweep drives
// lazy battle/window transitions even when nobody is polling, the slow tick
// prunes sunk songs and pays top-3 rank karma.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slowTicker := time.NewTicker(interval)
	sweepTicker := time.NewTicker(janitorSweepInterval)
	go func() {
		defer slowTicker.Stop()
		defer sweepTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-slowTicker.C:
				s.pruneSweep(ctx)
				s.rankKarmaSweep(ctx)
			case <-sweepTicker.C:
				s.modes.Sweep(ctx)
			}
		}
	}()
}

func (s *Service) pruneSweep(ctx context.Context) {
	removed, err := s.catalog.Prune(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("prune sweep failed")
		return
	}
	for _, song := range removed {
		s.feed.Append("song_pruned", "", song.ID, song.Name)
	}
}

// rankKarmaSweep pays the one-time top-3 grant to current leaders.
func (s *Service) rankKarmaSweep(ctx context.Context) {
	top, err := s.catalog.TopIDs(ctx, 3)
	if err != nil {
		log.Warn().Err(err).Msg("rank karma sweep failed")
		return
	}
	for _, id := range top {
		song, err := s.catalog.Get(ctx, id)
		if err != nil {
			continue // raced a delete
		}
		if _, err := s.ledger.GrantTopRank(ctx, id, song.Owner); err != nil {
			log.Warn().Err(err).Str("song_id", id).Msg("top rank grant failed")
		}
	}
}
