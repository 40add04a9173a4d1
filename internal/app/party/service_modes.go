package party

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thecratehackers/crate-vote/internal/karma"
	"github.com/thecratehackers/crate-vote/internal/modes"
	"github.com/thecratehackers/crate-vote/internal/playlist"
	"github.com/thecratehackers/crate-vote/internal/session"
)

// Host intents driving the time-boxed event modes. Each maps the mode
// engine's sentinels onto the service taxonomy so handlers only ever see
// one error vocabulary.

func (s *Service) StartDeleteWindow(ctx context.Context) (modes.Window, error) {
	w, err := s.modes.StartDeleteWindow(ctx)
	if err != nil {
		return modes.Window{}, mapModeErr("start delete window", err)
	}
	s.feed.Append("delete_window", "", "", "")
	return w, nil
}

// UseWindowDelete spends the actor's one chaos delete. God Mode actors are
// exempt from the one-shot rule.
func (s *Service) UseWindowDelete(ctx context.Context, actor, songID string) error {
	if actor == "" || songID == "" {
		return ErrInvalidRequest
	}
	if err := s.gate(ctx, actor, func(session.State) bool { return true }); err != nil {
		return err
	}
	st, err := s.quotas.Status(ctx, actor)
	if err != nil {
		return infra("user status", err)
	}
	if err := s.modes.UseWindowDelete(ctx, actor, songID, st.GodMode); err != nil {
		return mapModeErr("window delete", err)
	}
	s.feed.Append("chaos_delete", actor, songID, "")
	return nil
}

func (s *Service) DeleteWindowState(ctx context.Context) (modes.Window, bool, error) {
	w, active, err := s.modes.DeleteWindow(ctx)
	if err != nil {
		return modes.Window{}, false, infra("delete window state", err)
	}
	return w, active, nil
}

func (s *Service) StartVersusBattle(ctx context.Context) (modes.Battle, error) {
	b, err := s.modes.StartBattle(ctx)
	if err != nil {
		return modes.Battle{}, mapModeErr("start battle", err)
	}
	s.feed.Append("battle_started", "", b.SongA.ID+" vs "+b.SongB.ID, "")
	return b, nil
}

func (s *Service) VoteInBattle(ctx context.Context, actor, songID string) (modes.Battle, error) {
	if actor == "" || songID == "" {
		return modes.Battle{}, ErrInvalidRequest
	}
	if err := s.gate(ctx, actor, func(st session.State) bool { return st.CanVote }); err != nil {
		return modes.Battle{}, err
	}
	if !s.limiter.Allow(ctx, actionVote, actor, "battle") {
		return modes.Battle{}, ErrRateLimited
	}
	b, err := s.modes.VoteBattle(ctx, actor, songID)
	if err != nil {
		return modes.Battle{}, mapModeErr("battle vote", err)
	}
	s.noteActor(ctx, actor)
	return b, nil
}

func (s *Service) ResolveBattle(ctx context.Context) (modes.Battle, error) {
	b, err := s.modes.ResolveBattle(ctx)
	if err != nil {
		return modes.Battle{}, mapModeErr("resolve battle", err)
	}
	if b.Phase == modes.PhaseResolved {
		s.feed.Append("battle_resolved", "", b.WinnerID, "")
	}
	return b, nil
}

func (s *Service) StartLightningRound(ctx context.Context) (modes.Battle, error) {
	b, err := s.modes.StartLightning(ctx)
	if err != nil {
		return modes.Battle{}, mapModeErr("start lightning", err)
	}
	s.feed.Append("lightning_round", "", "", "")
	return b, nil
}

func (s *Service) BattleState(ctx context.Context) (modes.Battle, bool, error) {
	b, ok, err := s.modes.Battle(ctx)
	if err != nil {
		return modes.Battle{}, false, infra("battle state", err)
	}
	return b, ok, nil
}

func (s *Service) StartDoublePoints(ctx context.Context) (modes.Window, error) {
	w, err := s.modes.StartDoublePoints(ctx)
	if err != nil {
		return modes.Window{}, mapModeErr("start double points", err)
	}
	s.feed.Append("double_points", "", "", "")
	return w, nil
}

func (s *Service) DoublePointsState(ctx context.Context) (modes.Window, bool, error) {
	w, active, err := s.modes.DoublePoints(ctx)
	if err != nil {
		return modes.Window{}, false, infra("double points state", err)
	}
	return w, active, nil
}

// TriggerKarmaRain grants karma to everyone present, on a cooldown.
func (s *Service) TriggerKarmaRain(ctx context.Context) (int, error) {
	paid, err := s.ledger.Rain(ctx, time.Now())
	if err != nil {
		if errors.Is(err, karma.ErrRainCooldown) {
			return 0, fmt.Errorf("%s: %w", err, ErrConflict)
		}
		return 0, infra("karma rain", err)
	}
	s.feed.Append("karma_rain", "", "", "")
	return paid, nil
}

func mapModeErr(op string, err error) error {
	switch {
	case errors.Is(err, modes.ErrBattleRunning),
		errors.Is(err, modes.ErrAlreadyVoted),
		errors.Is(err, modes.ErrWindowRunning),
		errors.Is(err, modes.ErrDeleteUsed),
		errors.Is(err, modes.ErrSongProtected),
		errors.Is(err, modes.ErrWrongPhase),
		errors.Is(err, modes.ErrNotEnoughSongs):
		return fmt.Errorf("%s: %w", err, ErrConflict)
	case errors.Is(err, modes.ErrNoBattle),
		errors.Is(err, modes.ErrNotContender),
		errors.Is(err, modes.ErrNoWindow),
		errors.Is(err, playlist.ErrNotFound):
		return fmt.Errorf("%s: %w", err, ErrNotFound)
	case errors.Is(err, modes.ErrNotEligible):
		return fmt.Errorf("%s: %w", err, ErrPermissionDenied)
	default:
		return infra(op, err)
	}
}
