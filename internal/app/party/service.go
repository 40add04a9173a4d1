package party

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/activity"
	"github.com/thecratehackers/crate-vote/internal/cache"
	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/karma"
	"github.com/thecratehackers/crate-vote/internal/modes"
	"github.com/thecratehackers/crate-vote/internal/playlist"
	"github.com/thecratehackers/crate-vote/internal/quota"
	"github.com/thecratehackers/crate-vote/internal/ratelimit"
	"github.com/thecratehackers/crate-vote/internal/session"
	"github.com/thecratehackers/crate-vote/internal/store"
)

const (
	actionVote   = "vote"
	actionAdd    = "add"
	actionSearch = "search"

	cacheKeySession = "session:state"
	sessionTTL      = 2 * time.Second
)

// Service is the session-state engine behind every client intent. It owns
// the wiring of catalog, quotas, karma, session gating, event modes, rate
// limiting and the read cache; handlers stay thin.
type Service struct {
	store   store.Store
	cache   *cache.Cache
	cfg     config.SessionConfig
	limiter *ratelimit.Limiter
	session *session.Controller
	ledger  *karma.Ledger
	quotas  *quota.Manager
	catalog *playlist.Catalog
	modes   *modes.Engine
	feed    *activity.Feed
}

func NewService(st store.Store, cfg config.SessionConfig) *Service {
	c := cache.New()
	cat := playlist.NewCatalog(st, c, cfg)
	led := karma.New(st, cfg)
	return &Service{
		store: st,
		cache: c,
		cfg:   cfg,
		limiter: ratelimit.New(st, map[string]int{
			actionVote:   cfg.VoteRatePerMin,
			actionAdd:    cfg.AddRatePerMin,
			actionSearch: cfg.SearchRatePerMin,
		}),
		session: session.New(st, cfg.SessionDuration),
		ledger:  led,
		quotas:  quota.New(st, led, cat, cfg),
		catalog: cat,
		modes:   modes.NewEngine(st, cat, cfg),
		feed:    activity.NewFeed(0, 0),
	}
}

// Feed exposes the live-activity buffer for the SSE transport.
func (s *Service) Feed() *activity.Feed { return s.feed }

// Catalog exposes the score engine for read handlers. Test hook too.
func (s *Service) Catalog() *playlist.Catalog { return s.catalog }

// Modes exposes the event engine clock hooks for tests.
func (s *Service) Modes() *modes.Engine { return s.modes }

// Session exposes the controller clock hook for tests.
func (s *Service) Session() *session.Controller { return s.session }

type AddSongResult struct {
	SongID     string `json:"song_id"`
	Displaced  string `json:"displaced,omitempty"`
	SpentKarma bool   `json:"spent_karma,omitempty"`
}

// AddSong validates the full gate chain and admits the song. Songs without
// an external catalog id get a server-minted one.
func (s *Service) AddSong(ctx context.Context, actor string, song playlist.Song) (AddSongResult, error) {
	if actor == "" || song.Name == "" && song.ID == "" {
		return AddSongResult{}, ErrInvalidRequest
	}
	if song.ID == "" {
		song.ID = store.NewID()
	}
	if err := s.gate(ctx, actor, func(st session.State) bool { return st.CanAddSongs }); err != nil {
		return AddSongResult{}, err
	}
	if !s.limiter.Allow(ctx, actionAdd, actor) {
		return AddSongResult{}, ErrRateLimited
	}
	ok, err := s.quotas.CanAddSong(ctx, actor)
	if err != nil {
		return AddSongResult{}, infra("check song quota", err)
	}
	if !ok {
		return AddSongResult{}, ErrQuotaExceeded
	}

	song.Owner = actor
	displaced, err := s.catalog.Add(ctx, song)
	switch err {
	case nil:
	case playlist.ErrDuplicateSong, playlist.ErrEliminated:
		return AddSongResult{}, fmt.Errorf("%s: %w", err, ErrConflict)
	case playlist.ErrCapacity:
		return AddSongResult{}, ErrCapacityExceeded
	default:
		return AddSongResult{}, infra("add song", err)
	}

	spent, err := s.quotas.NoteSongAdded(ctx, actor)
	if err != nil {
		return AddSongResult{}, infra("note song added", err)
	}
	s.noteActor(ctx, actor)
	s.feed.Append("song_added", actor, song.ID, song.Name)
	return AddSongResult{SongID: song.ID, Displaced: displaced, SpentKarma: spent}, nil
}

// Vote applies the toggle semantics: same direction again removes the vote,
// the opposite direction flips it, and only net-new votes consume quota.
func (s *Service) Vote(ctx context.Context, songID, actor string, dir playlist.Direction) error {
	if songID == "" || actor == "" || !dir.Valid() {
		return ErrInvalidRequest
	}
	if err := s.gate(ctx, actor, func(st session.State) bool { return st.CanVote }); err != nil {
		return err
	}
	if !s.limiter.Allow(ctx, actionVote, actor, songID) {
		return ErrRateLimited
	}

	up, down, err := s.catalog.Membership(ctx, songID, actor)
	if err != nil {
		return infra("read vote membership", err)
	}
	if (dir == playlist.DirUp && up) || (dir == playlist.DirDown && down) {
		if err := s.catalog.RetractVote(ctx, songID, actor, dir); err != nil {
			return infra("retract vote", err)
		}
		return nil
	}

	canCast, err := s.quotas.CanCastVote(ctx, actor, dir)
	if err != nil {
		return infra("check vote quota", err)
	}
	if !canCast {
		return ErrQuotaExceeded
	}
	double, err := s.modes.DoublePointsActive(ctx)
	if err != nil {
		return infra("check double points", err)
	}
	switch err := s.catalog.CastVote(ctx, songID, actor, dir, double); err {
	case nil:
	case playlist.ErrNotFound:
		return ErrNotFound
	default:
		return infra("cast vote", err)
	}
	s.noteActor(ctx, actor)
	kind := "upvote"
	if dir == playlist.DirDown {
		kind = "downvote"
	}
	s.feed.Append(kind, actor, songID, "")
	return nil
}

// DeleteSong is the owner delete, on its own quota separate from votes.
func (s *Service) DeleteSong(ctx context.Context, songID, actor string) error {
	if songID == "" || actor == "" {
		return ErrInvalidRequest
	}
	if err := s.gate(ctx, actor, func(session.State) bool { return true }); err != nil {
		return err
	}
	song, err := s.catalog.Get(ctx, songID)
	if err == playlist.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return infra("load song", err)
	}
	if song.Owner != actor {
		return fmt.Errorf("%s: %w", playlist.ErrNotOwner, ErrPermissionDenied)
	}
	ok, err := s.quotas.CanDeleteSong(ctx, actor)
	if err != nil {
		return infra("check delete quota", err)
	}
	if !ok {
		return ErrQuotaExceeded
	}
	if err := s.catalog.Remove(ctx, songID); err != nil {
		if err == playlist.ErrNotFound {
			return ErrNotFound
		}
		return infra("remove song", err)
	}
	if err := s.quotas.NoteSongDeleted(ctx, actor); err != nil {
		return infra("note delete", err)
	}
	s.feed.Append("song_removed", actor, songID, song.Name)
	return nil
}

func (s *Service) SortedSongs(ctx context.Context) ([]playlist.Ranked, error) {
	ranked, err := s.catalog.Sorted(ctx)
	if err != nil {
		return nil, infra("sorted songs", err)
	}
	return ranked, nil
}

func (s *Service) UserStatus(ctx context.Context, actor string) (quota.Status, error) {
	if actor == "" {
		return quota.Status{}, ErrInvalidRequest
	}
	st, err := s.quotas.Status(ctx, actor)
	if err != nil {
		return quota.Status{}, infra("user status", err)
	}
	return st, nil
}

type PresenceResult struct {
	PresenceKarma bool `json:"presence_karma"`
	WatchKarma    int  `json:"watch_karma"`
}

// Presence is the client heartbeat: it registers the actor for karma rain
// and pays the cooldown-limited presence and watch-time grants.
func (s *Service) Presence(ctx context.Context, actor string, watchSeconds int) (PresenceResult, error) {
	if actor == "" {
		return PresenceResult{}, ErrInvalidRequest
	}
	s.noteActor(ctx, actor)
	granted, err := s.ledger.GrantPresence(ctx, actor)
	if err != nil {
		return PresenceResult{}, infra("presence karma", err)
	}
	paid, err := s.ledger.RecordWatch(ctx, actor, watchSeconds)
	if err != nil {
		return PresenceResult{}, infra("watch karma", err)
	}
	return PresenceResult{PresenceKarma: granted, WatchKarma: paid}, nil
}

// SessionState is cache-backed: polling clients hit the store at most once
// per TTL, and the lazy timer expiry still runs on every refill.
func (s *Service) SessionState(ctx context.Context) (session.State, error) {
	if v, ok := s.cache.Get(cacheKeySession); ok {
		return v.(session.State), nil
	}
	st, err := s.session.State(ctx)
	if err != nil {
		return session.State{}, infra("session state", err)
	}
	s.cache.Set(cacheKeySession, st, sessionTTL)
	return st, nil
}

func (s *Service) StartSession(ctx context.Context, d time.Duration) error {
	if err := s.session.Start(ctx, d); err != nil {
		return infra("start session", err)
	}
	s.cache.Delete(cacheKeySession)
	return nil
}

func (s *Service) StopSession(ctx context.Context) error {
	if err := s.session.Stop(ctx); err != nil {
		return infra("stop session", err)
	}
	s.cache.Delete(cacheKeySession)
	return nil
}

func (s *Service) SetPermissions(ctx context.Context, canVote, canAddSongs bool) error {
	if err := s.session.SetPermissions(ctx, canVote, canAddSongs); err != nil {
		return infra("set permissions", err)
	}
	s.cache.Delete(cacheKeySession)
	return nil
}

// Ban flips an actor's ban flag. Host only; enforcement sits in the gate.
func (s *Service) Ban(ctx context.Context, actor string, banned bool) error {
	if actor == "" {
		return ErrInvalidRequest
	}
	var err error
	if banned {
		_, err = s.store.SetAdd(ctx, store.KeyBanned, actor)
	} else {
		_, err = s.store.SetRemove(ctx, store.KeyBanned, actor)
	}
	if err != nil {
		return infra("update ban", err)
	}
	return nil
}

// ResetSession wipes everything: catalog, vote memberships, quotas, karma,
// timer, event modes and rate windows. A song id re-added afterwards must
// come back at score zero.
func (s *Service) ResetSession(ctx context.Context) error {
	if err := s.store.DeleteKeys(ctx,
		store.KeySongs, store.KeyActors, store.KeyBanned,
		store.KeyEliminated, store.KeyTop3Granted,
	); err != nil {
		return infra("reset keys", err)
	}
	for _, prefix := range []string{
		store.PrefixSong, store.PrefixUser, store.PrefixKarma,
		store.PrefixSession, store.PrefixMode, store.PrefixRate,
	} {
		if err := s.store.WipePrefix(ctx, prefix); err != nil {
			return infra("reset prefix "+prefix, err)
		}
	}
	s.cache.Clear()
	s.feed.Reset()
	log.Info().Msg("session reset")
	return nil
}

// gate runs the common precondition chain for mutating intents: ban list,
// session lock and the relevant host permission toggle.
func (s *Service) gate(ctx context.Context, actor string, allowed func(session.State) bool) error {
	if banned, err := s.isBanned(ctx, actor); err != nil {
		return infra("check ban", err)
	} else if banned {
		return ErrPermissionDenied
	}
	st, err := s.SessionState(ctx)
	if err != nil {
		return err
	}
	if st.Locked || !allowed(st) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *Service) isBanned(ctx context.Context, actor string) (bool, error) {
	return s.store.SetHas(ctx, store.KeyBanned, actor)
}

func (s *Service) noteActor(ctx context.Context, actor string) {
	if _, err := s.store.SetAdd(ctx, store.KeyActors, actor); err != nil {
		log.Warn().Err(err).Str("actor", actor).Msg("record actor failed")
	}
}

func infra(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("store operation failed")
	return fmt.Errorf("%s: %w", op, err)
}
