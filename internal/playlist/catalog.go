package playlist

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/cache"
	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/store"
)

const (
	cacheKeySorted = "playlist:sorted"
	sortedTTL      = 3 * time.Second

	// Double-points ghost members share the vote sets with real members so
	// cardinality counts the boosted vote twice.
	ghostPrefix = "dp:"
)

// Catalog owns song records, vote membership and score ordering. Session
// gating (lock, permissions, quotas, rate limits) happens above it.
type Catalog struct {
	store store.Store
	cache *cache.Cache
	cfg   config.SessionConfig

	now func() time.Time
}

func NewCatalog(st store.Store, c *cache.Cache, cfg config.SessionConfig) *Catalog {
	return &Catalog{store: st, cache: c, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (c *Catalog) SetClock(now func() time.Time) { c.now = now }

// Add admits a song, displacing the lowest non-positive song when the
// playlist is at capacity. Returns the name of any displaced song.
func (c *Catalog) Add(ctx context.Context, song Song) (displaced string, err error) {
	if eliminated, err := c.store.SetHas(ctx, store.KeyEliminated, song.ID); err != nil {
		return "", err
	} else if eliminated {
		return "", ErrEliminated
	}
	// Reject duplicates before touching capacity: a rejected add must never
	// evict anything.
	if present, err := c.store.SetHas(ctx, store.KeySongs, song.ID); err != nil {
		return "", err
	} else if present {
		return "", ErrDuplicateSong
	}

	ranked, err := c.Sorted(ctx)
	if err != nil {
		return "", err
	}
	if len(ranked) >= c.cfg.PlaylistCapacity {
		victim, ok := lowestDisplaceable(ranked)
		if !ok {
			return "", ErrCapacity
		}
		if err := c.Remove(ctx, victim.ID); err != nil {
			return "", err
		}
		displaced = victim.Name
	}

	if song.CreatedAt.IsZero() {
		song.CreatedAt = c.now()
	}
	raw, err := json.Marshal(song)
	if err != nil {
		return "", err
	}
	added, err := c.store.SetAdd(ctx, store.KeySongs, song.ID)
	if err != nil {
		return "", err
	}
	if !added {
		return "", ErrDuplicateSong
	}
	if err := c.store.PutValue(ctx, store.SongKey(song.ID), raw); err != nil {
		return "", err
	}
	c.invalidate()
	return displaced, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (Song, error) {
	raw, ok, err := c.store.GetValue(ctx, store.SongKey(id))
	if err != nil {
		return Song{}, err
	}
	if !ok {
		return Song{}, ErrNotFound
	}
	var song Song
	if err := json.Unmarshal(raw, &song); err != nil {
		return Song{}, err
	}
	return song, nil
}

// Remove deletes a song, its record and its vote sets, and refunds the vote
// memberships back to each voter's per-user tracking sets.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	present, err := c.store.SetRemove(ctx, store.KeySongs, id)
	if err != nil {
		return err
	}
	if !present {
		return ErrNotFound
	}
	for _, dir := range []Direction{DirUp, DirDown} {
		members, err := c.store.SetMembers(ctx, voteKey(id, dir))
		if err != nil {
			return err
		}
		for _, m := range members {
			if strings.HasPrefix(m, ghostPrefix) {
				continue
			}
			if _, err := c.store.SetRemove(ctx, userVoteKey(m, dir), id); err != nil {
				return err
			}
		}
		if err := c.store.SetClear(ctx, voteKey(id, dir)); err != nil {
			return err
		}
	}
	if err := c.store.DeleteValue(ctx, store.SongKey(id)); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// Eliminate removes a song and blacklists its id for the rest of the
// session. Battle resolution path.
func (c *Catalog) Eliminate(ctx context.Context, id string) error {
	if _, err := c.store.SetAdd(ctx, store.KeyEliminated, id); err != nil {
		return err
	}
	err := c.Remove(ctx, id)
	if err == ErrNotFound {
		return nil
	}
	return err
}

// Score is |upvoters| - |downvoters|, ghost members included.
func (c *Catalog) Score(ctx context.Context, id string) (int64, error) {
	up, err := c.store.SetCard(ctx, voteKey(id, DirUp))
	if err != nil {
		return 0, err
	}
	down, err := c.store.SetCard(ctx, voteKey(id, DirDown))
	if err != nil {
		return 0, err
	}
	return up - down, nil
}

// Sorted returns the full ranked playlist, cache-backed to absorb polling.
func (c *Catalog) Sorted(ctx context.Context) ([]Ranked, error) {
	if v, ok := c.cache.Get(cacheKeySorted); ok {
		return v.([]Ranked), nil
	}
	ids, err := c.store.SetMembers(ctx, store.KeySongs)
	if err != nil {
		return nil, err
	}
	ranked := make([]Ranked, 0, len(ids))
	for _, id := range ids {
		song, err := c.Get(ctx, id)
		if err == ErrNotFound {
			continue // raced a delete
		}
		if err != nil {
			return nil, err
		}
		score, err := c.Score(ctx, id)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{Song: song, Score: score})
	}
	sortRanked(ranked)
	c.cache.Set(cacheKeySorted, ranked, sortedTTL)
	return ranked, nil
}

// TopOwner reports who owns the current #1 song. Nobody holds the top spot
// while no song has a positive score.
func (c *Catalog) TopOwner(ctx context.Context) (string, bool, error) {
	ranked, err := c.Sorted(ctx)
	if err != nil {
		return "", false, err
	}
	for _, r := range ranked {
		if r.Score > 0 {
			return r.Owner, true, nil
		}
	}
	return "", false, nil
}

// TopIDs returns the ids of the top n positively-scored songs.
func (c *Catalog) TopIDs(ctx context.Context, n int) ([]string, error) {
	ranked, err := c.Sorted(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for _, r := range ranked {
		if r.Score <= 0 {
			continue
		}
		out = append(out, r.ID)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Prune removes songs that have sat at or below the score threshold for
// longer than the grace period. Fresh songs are protected by the grace.
func (c *Catalog) Prune(ctx context.Context) ([]Song, error) {
	ranked, err := c.Sorted(ctx)
	if err != nil {
		return nil, err
	}
	var removed []Song
	cutoff := c.now().Add(-c.cfg.PruneGrace)
	for _, r := range ranked {
		if r.Score > int64(c.cfg.PruneScoreThreshold) {
			continue
		}
		if r.CreatedAt.After(cutoff) {
			continue
		}
		if err := c.Remove(ctx, r.ID); err != nil && err != ErrNotFound {
			return removed, err
		}
		log.Info().Str("song_id", r.ID).Int64("score", r.Score).Msg("pruned song")
		removed = append(removed, r.Song)
	}
	return removed, nil
}

func (c *Catalog) invalidate() {
	c.cache.Delete(cacheKeySorted)
}

func lowestDisplaceable(ranked []Ranked) (Ranked, bool) {
	found := false
	var victim Ranked
	for _, r := range ranked {
		if r.Score > 0 {
			continue
		}
		if !found || r.Score < victim.Score {
			victim = r
			found = true
		}
	}
	return victim, found
}

func voteKey(songID string, dir Direction) string {
	if dir == DirUp {
		return store.SongUpKey(songID)
	}
	return store.SongDownKey(songID)
}

func userVoteKey(actor string, dir Direction) string {
	return store.PrefixUser + actor + ":" + string(dir) + "voted"
}
