package modes

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/playlist"
	"github.com/thecratehackers/crate-vote/internal/store"
)

// StartDeleteWindow opens the chaos window: one free delete per eligible
// actor until it closes.
func (e *Engine) StartDeleteWindow(ctx context.Context) (Window, error) {
	if active, _, err := e.window(ctx, chaosKey); err != nil {
		return Window{}, err
	} else if active {
		return Window{}, ErrWindowRunning
	}
	if err := e.store.SetClear(ctx, chaosUsedKey); err != nil {
		return Window{}, err
	}
	w := Window{EndsAt: e.now().Add(e.cfg.DeleteWindow)}
	if err := e.putWindow(ctx, chaosKey, w); err != nil {
		return Window{}, err
	}
	log.Info().Time("ends_at", w.EndsAt).Msg("delete window opened")
	return w, nil
}

// UseWindowDelete spends an actor's one chaos delete on a song. God Mode
// actors are exempt from the one-per-window rule; battle contenders are
// protected; lurkers who contributed nothing cannot grief.
func (e *Engine) UseWindowDelete(ctx context.Context, actor, songID string, godMode bool) error {
	if active, _, err := e.window(ctx, chaosKey); err != nil {
		return err
	} else if !active {
		return ErrNoWindow
	}
	contributed, err := e.store.Counter(ctx, store.UserSongsKey(actor))
	if err != nil {
		return err
	}
	if contributed < 1 {
		return ErrNotEligible
	}
	if protected, err := e.InActiveBattle(ctx, songID); err != nil {
		return err
	} else if protected {
		return ErrSongProtected
	}
	if !godMode {
		fresh, err := e.store.SetAdd(ctx, chaosUsedKey, actor)
		if err != nil {
			return err
		}
		if !fresh {
			return ErrDeleteUsed
		}
	}
	if err := e.catalog.Remove(ctx, songID); err != nil {
		if err == playlist.ErrNotFound && !godMode {
			// Refund the spent slot rather than letting a raced delete
			// burn the actor's only chaos delete.
			_, _ = e.store.SetRemove(ctx, chaosUsedKey, actor)
		}
		return err
	}
	log.Info().Str("actor", actor).Str("song_id", songID).Msg("chaos delete")
	return nil
}

// DeleteWindow reports the active chaos window, if any.
func (e *Engine) DeleteWindow(ctx context.Context) (Window, bool, error) {
	active, w, err := e.window(ctx, chaosKey)
	return w, active, err
}

// StartDoublePoints opens the vote-weight multiplier window.
func (e *Engine) StartDoublePoints(ctx context.Context) (Window, error) {
	if active, _, err := e.window(ctx, dpKey); err != nil {
		return Window{}, err
	} else if active {
		return Window{}, ErrWindowRunning
	}
	w := Window{EndsAt: e.now().Add(e.cfg.DoublePointsWindow)}
	if err := e.putWindow(ctx, dpKey, w); err != nil {
		return Window{}, err
	}
	log.Info().Time("ends_at", w.EndsAt).Msg("double points started")
	return w, nil
}

// DoublePointsActive is consulted by the vote path on every new vote.
func (e *Engine) DoublePointsActive(ctx context.Context) (bool, error) {
	active, _, err := e.window(ctx, dpKey)
	return active, err
}

// DoublePoints reports the active multiplier window, if any.
func (e *Engine) DoublePoints(ctx context.Context) (Window, bool, error) {
	active, w, err := e.window(ctx, dpKey)
	return w, active, err
}

func (e *Engine) window(ctx context.Context, key string) (bool, Window, error) {
	raw, ok, err := e.store.GetValue(ctx, key)
	if err != nil || !ok {
		return false, Window{}, err
	}
	var w Window
	if err := json.Unmarshal(raw, &w); err != nil {
		return false, Window{}, err
	}
	return e.now().Before(w.EndsAt), w, nil
}

func (e *Engine) putWindow(ctx context.Context, key string, w Window) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return e.store.PutValue(ctx, key, raw)
}
