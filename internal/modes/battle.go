package modes

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/playlist"
	"github.com/thecratehackers/crate-vote/internal/store"
)

const (
	battleKey      = "mode:battle"
	battleVotesA   = "mode:battle:votes:a"
	battleVotesB   = "mode:battle:votes:b"
	battleVotedKey = "mode:battle:voted"
	chaosKey       = "mode:chaos"
	chaosUsedKey   = "mode:chaos:used"
	dpKey          = "mode:dp"
)

// Engine runs the time-boxed event modes on top of the catalog. All phase
// transitions are lazily driven by reads and by the janitor sweep; callers
// may race each other and the janitor, so transitions tolerate duplicates.
type Engine struct {
	store   store.Store
	catalog *playlist.Catalog
	cfg     config.SessionConfig

	now  func() time.Time
	pick func(n int) int
}

func NewEngine(st store.Store, cat *playlist.Catalog, cfg config.SessionConfig) *Engine {
	return &Engine{store: st, catalog: cat, cfg: cfg, now: time.Now, pick: rand.Intn}
}

// SetClock overrides the time source. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// SetPicker overrides the random candidate picker. Test hook.
func (e *Engine) SetPicker(pick func(n int) int) { e.pick = pick }

// StartBattle snapshots two random eligible songs and opens the voting
// phase. Songs in the current top 3 are protected from forced elimination.
func (e *Engine) StartBattle(ctx context.Context) (Battle, error) {
	if b, ok, err := e.Battle(ctx); err != nil {
		return Battle{}, err
	} else if ok && b.Phase != PhaseResolved {
		return Battle{}, ErrBattleRunning
	}

	candidates, err := e.eligibleCandidates(ctx)
	if err != nil {
		return Battle{}, err
	}
	if len(candidates) < 2 {
		return Battle{}, ErrNotEnoughSongs
	}
	i := e.pick(len(candidates))
	j := e.pick(len(candidates) - 1)
	if j >= i {
		j++
	}
	now := e.now()
	b := Battle{
		Phase:     PhaseVoting,
		SongA:     contender(candidates[i].Song),
		SongB:     contender(candidates[j].Song),
		EndsAt:    now.Add(e.cfg.BattleVoteWindow),
		StartedAt: now,
	}
	if err := e.resetBallots(ctx); err != nil {
		return Battle{}, err
	}
	if err := e.putBattle(ctx, b); err != nil {
		return Battle{}, err
	}
	log.Info().Str("song_a", b.SongA.ID).Str("song_b", b.SongB.ID).Msg("versus battle started")
	return e.withCounts(ctx, b)
}

// Battle returns the current battle after applying any due lazy transition.
func (e *Engine) Battle(ctx context.Context) (Battle, bool, error) {
	raw, ok, err := e.store.GetValue(ctx, battleKey)
	if err != nil || !ok {
		return Battle{}, false, err
	}
	var b Battle
	if err := json.Unmarshal(raw, &b); err != nil {
		return Battle{}, false, err
	}
	b, err = e.advance(ctx, b)
	if err != nil {
		return Battle{}, false, err
	}
	b, err = e.withCounts(ctx, b)
	return b, true, err
}

// VoteBattle records one battle vote per actor per phase.
func (e *Engine) VoteBattle(ctx context.Context, actor, songID string) (Battle, error) {
	b, ok, err := e.Battle(ctx)
	if err != nil {
		return Battle{}, err
	}
	if !ok || b.Phase == PhaseResolved {
		return Battle{}, ErrNoBattle
	}
	var key string
	switch songID {
	case b.SongA.ID:
		key = battleVotesA
	case b.SongB.ID:
		key = battleVotesB
	default:
		return Battle{}, ErrNotContender
	}
	fresh, err := e.store.SetAdd(ctx, battleVotedKey, actor)
	if err != nil {
		return Battle{}, err
	}
	if !fresh {
		return Battle{}, ErrAlreadyVoted
	}
	if _, err := e.store.SetAdd(ctx, key, actor); err != nil {
		return Battle{}, err
	}
	return e.withCounts(ctx, b)
}

// StartLightning forces the tie-break round from the voting phase: fresh
// shorter window, ballots reset.
func (e *Engine) StartLightning(ctx context.Context) (Battle, error) {
	b, ok, err := e.Battle(ctx)
	if err != nil {
		return Battle{}, err
	}
	if !ok {
		return Battle{}, ErrNoBattle
	}
	if b.Phase != PhaseVoting {
		return Battle{}, ErrWrongPhase
	}
	b, err = e.toLightning(ctx, b)
	if err != nil {
		return Battle{}, err
	}
	return e.withCounts(ctx, b)
}

// ResolveBattle forces resolution now, using the same tie rules as expiry:
// a tie in the voting phase escalates to lightning instead of resolving.
func (e *Engine) ResolveBattle(ctx context.Context) (Battle, error) {
	b, ok, err := e.Battle(ctx)
	if err != nil {
		return Battle{}, err
	}
	if !ok {
		return Battle{}, ErrNoBattle
	}
	switch b.Phase {
	case PhaseResolved:
		return b, nil
	case PhaseVoting, PhaseLightning:
		b, err = e.conclude(ctx, b)
		if err != nil {
			return Battle{}, err
		}
		return e.withCounts(ctx, b)
	}
	return Battle{}, ErrWrongPhase
}

// Sweep applies due battle transitions without a client read. Janitor path.
func (e *Engine) Sweep(ctx context.Context) {
	if _, _, err := e.Battle(ctx); err != nil {
		log.Warn().Err(err).Msg("battle sweep failed")
	}
}

// InActiveBattle reports whether the song is a contender in an unresolved
// battle, which protects it from chaos-window deletion.
func (e *Engine) InActiveBattle(ctx context.Context, songID string) (bool, error) {
	b, ok, err := e.Battle(ctx)
	if err != nil || !ok {
		return false, err
	}
	if b.Phase == PhaseResolved {
		return false, nil
	}
	return songID == b.SongA.ID || songID == b.SongB.ID, nil
}

func (e *Engine) advance(ctx context.Context, b Battle) (Battle, error) {
	if b.Phase == PhaseResolved || e.now().Before(b.EndsAt) {
		return b, nil
	}
	switch b.Phase {
	case PhaseVoting:
		votesA, votesB, err := e.counts(ctx)
		if err != nil {
			return Battle{}, err
		}
		if votesA == votesB {
			return e.toLightning(ctx, b)
		}
		return e.conclude(ctx, b)
	case PhaseLightning:
		return e.conclude(ctx, b)
	}
	return b, nil
}

func (e *Engine) toLightning(ctx context.Context, b Battle) (Battle, error) {
	b.Phase = PhaseLightning
	b.EndsAt = e.now().Add(e.cfg.LightningWindow)
	if err := e.resetBallots(ctx); err != nil {
		return Battle{}, err
	}
	if err := e.putBattle(ctx, b); err != nil {
		return Battle{}, err
	}
	log.Info().Msg("battle tied, lightning round started")
	return b, nil
}

// conclude picks the winner and eliminates the loser. A tie here only
// happens in (or when forcing past) the lightning round; it resolves to
// song A, the first pick. Deterministic, if arbitrary.
func (e *Engine) conclude(ctx context.Context, b Battle) (Battle, error) {
	votesA, votesB, err := e.counts(ctx)
	if err != nil {
		return Battle{}, err
	}
	if b.Phase == PhaseVoting && votesA == votesB {
		return e.toLightning(ctx, b)
	}
	winner, loser := b.SongA, b.SongB
	if votesB > votesA {
		winner, loser = b.SongB, b.SongA
	}
	b.Phase = PhaseResolved
	b.WinnerID = winner.ID
	b.LoserID = loser.ID
	if err := e.putBattle(ctx, b); err != nil {
		return Battle{}, err
	}
	if err := e.catalog.Eliminate(ctx, loser.ID); err != nil {
		return Battle{}, err
	}
	log.Info().Str("winner", winner.ID).Str("loser", loser.ID).
		Int64("votes_a", votesA).Int64("votes_b", votesB).Msg("battle resolved")
	return b, nil
}

func (e *Engine) eligibleCandidates(ctx context.Context) ([]playlist.Ranked, error) {
	ranked, err := e.catalog.Sorted(ctx)
	if err != nil {
		return nil, err
	}
	top, err := e.catalog.TopIDs(ctx, 3)
	if err != nil {
		return nil, err
	}
	protected := map[string]bool{}
	for _, id := range top {
		protected[id] = true
	}
	var out []playlist.Ranked
	for _, r := range ranked {
		if r.Score > 0 && !protected[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (e *Engine) counts(ctx context.Context) (int64, int64, error) {
	votesA, err := e.store.SetCard(ctx, battleVotesA)
	if err != nil {
		return 0, 0, err
	}
	votesB, err := e.store.SetCard(ctx, battleVotesB)
	if err != nil {
		return 0, 0, err
	}
	return votesA, votesB, nil
}

func (e *Engine) withCounts(ctx context.Context, b Battle) (Battle, error) {
	votesA, votesB, err := e.counts(ctx)
	if err != nil {
		return Battle{}, err
	}
	b.VotesA, b.VotesB = votesA, votesB
	return b, nil
}

func (e *Engine) resetBallots(ctx context.Context) error {
	for _, key := range []string{battleVotesA, battleVotesB, battleVotedKey} {
		if err := e.store.SetClear(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) putBattle(ctx context.Context, b Battle) error {
	b.VotesA, b.VotesB = 0, 0
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return e.store.PutValue(ctx, battleKey, raw)
}

func contender(s playlist.Song) Contender {
	return Contender{ID: s.ID, Name: s.Name, Artist: s.Artist, Owner: s.Owner}
}
