package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/store"
)

const (
	timerKey   = "session:timer"
	canVoteKey = "session:canvote"
	canAddKey  = "session:canadd"
)

// State is a point-in-time view of the session. Locked is derived from the
// timer: a running session is unlocked, everything else is locked. The host
// permission toggles are layered on top and survive start/stop.
type State struct {
	Running     bool          `json:"running"`
	Locked      bool          `json:"locked"`
	CanVote     bool          `json:"can_vote"`
	CanAddSongs bool          `json:"can_add_songs"`
	Duration    time.Duration `json:"duration"`
	EndsAt      *time.Time    `json:"ends_at,omitempty"`
	Remaining   time.Duration `json:"remaining"`
}

type timerRecord struct {
	Running  bool          `json:"running"`
	Duration time.Duration `json:"duration"`
	EndsAt   *time.Time    `json:"ends_at,omitempty"`
}

type Controller struct {
	store    store.Store
	duration time.Duration

	now func() time.Time
}

func New(st store.Store, defaultDuration time.Duration) *Controller {
	return &Controller{store: st, duration: defaultDuration, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Start begins (or restarts) the countdown and thereby unlocks the session.
func (c *Controller) Start(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = c.duration
	}
	ends := c.now().Add(d)
	return c.putTimer(ctx, timerRecord{Running: true, Duration: d, EndsAt: &ends})
}

// Stop halts the countdown and thereby locks the session.
func (c *Controller) Stop(ctx context.Context) error {
	rec, err := c.readTimer(ctx)
	if err != nil {
		return err
	}
	return c.putTimer(ctx, timerRecord{Running: false, Duration: rec.Duration})
}

// Reset returns the timer to the configured duration, stopped and locked.
func (c *Controller) Reset(ctx context.Context) error {
	return c.putTimer(ctx, timerRecord{Running: false, Duration: c.duration})
}

func (c *Controller) SetPermissions(ctx context.Context, canVote, canAddSongs bool) error {
	if err := c.store.PutValue(ctx, canVoteKey, boolValue(canVote)); err != nil {
		return err
	}
	return c.store.PutValue(ctx, canAddKey, boolValue(canAddSongs))
}

// State performs the lazy expiry transition: a reader that observes an
// elapsed end-time stops the timer before reporting, so a session can never
// be seen running past its end.
func (c *Controller) State(ctx context.Context) (State, error) {
	rec, err := c.readTimer(ctx)
	if err != nil {
		return State{}, err
	}
	now := c.now()
	if rec.Running && rec.EndsAt != nil && !now.Before(*rec.EndsAt) {
		rec = timerRecord{Running: false, Duration: rec.Duration}
		if err := c.putTimer(ctx, rec); err != nil {
			log.Warn().Err(err).Msg("session timer lazy stop failed")
		}
	}

	st := State{
		Running:     rec.Running,
		Locked:      !rec.Running,
		Duration:    rec.Duration,
		EndsAt:      rec.EndsAt,
		CanVote:     true,
		CanAddSongs: true,
	}
	if rec.Running && rec.EndsAt != nil {
		st.Remaining = rec.EndsAt.Sub(now)
	}
	if v, ok, err := c.store.GetValue(ctx, canVoteKey); err != nil {
		return State{}, err
	} else if ok {
		st.CanVote = parseBool(v)
	}
	if v, ok, err := c.store.GetValue(ctx, canAddKey); err != nil {
		return State{}, err
	} else if ok {
		st.CanAddSongs = parseBool(v)
	}
	return st, nil
}

func (c *Controller) readTimer(ctx context.Context) (timerRecord, error) {
	raw, ok, err := c.store.GetValue(ctx, timerKey)
	if err != nil {
		return timerRecord{}, err
	}
	if !ok {
		return timerRecord{Duration: c.duration}, nil
	}
	var rec timerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return timerRecord{Duration: c.duration}, nil
	}
	return rec, nil
}

func (c *Controller) putTimer(ctx context.Context, rec timerRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.store.PutValue(ctx, timerKey, raw)
}

func boolValue(b bool) []byte {
	if b {
		return []byte("1")
	}
	return []byte("0")
}

func parseBool(v []byte) bool {
	return len(v) == 1 && v[0] == '1'
}
