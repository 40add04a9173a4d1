package playlist

import (
	"context"

	"github.com/thecratehackers/crate-vote/internal/store"
)

// Membership reports the actor's current real vote on a song.
func (c *Catalog) Membership(ctx context.Context, songID, actor string) (up, down bool, err error) {
	up, err = c.store.SetHas(ctx, voteKey(songID, DirUp), actor)
	if err != nil {
		return false, false, err
	}
	down, err = c.store.SetHas(ctx, voteKey(songID, DirDown), actor)
	if err != nil {
		return false, false, err
	}
	return up, down, nil
}

// CastVote records a vote, clearing any opposite vote first so an actor is
// never in both sets. With double points active a ghost member rides along
// in the same set, doubling the vote's weight while staying reversible.
func (c *Catalog) CastVote(ctx context.Context, songID, actor string, dir Direction, doublePoints bool) error {
	if !dir.Valid() {
		return ErrBadDirection
	}
	if present, err := c.store.SetHas(ctx, store.KeySongs, songID); err != nil {
		return err
	} else if !present {
		return ErrNotFound
	}

	if err := c.clearVote(ctx, songID, actor, dir.Opposite()); err != nil {
		return err
	}
	if _, err := c.store.SetAdd(ctx, voteKey(songID, dir), actor); err != nil {
		return err
	}
	if doublePoints {
		if _, err := c.store.SetAdd(ctx, voteKey(songID, dir), ghostPrefix+actor); err != nil {
			return err
		}
	}
	if _, err := c.store.SetAdd(ctx, userVoteKey(actor, dir), songID); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

// RetractVote is the toggle-off path: the vote and any ghost riding on it
// are removed together, returning the song to its pre-vote score.
func (c *Catalog) RetractVote(ctx context.Context, songID, actor string, dir Direction) error {
	if !dir.Valid() {
		return ErrBadDirection
	}
	if err := c.clearVote(ctx, songID, actor, dir); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

func (c *Catalog) clearVote(ctx context.Context, songID, actor string, dir Direction) error {
	removed, err := c.store.SetRemove(ctx, voteKey(songID, dir), actor)
	if err != nil {
		return err
	}
	if removed {
		// The ghost only exists if the vote was cast under double points;
		// removing an absent member is a no-op either way.
		if _, err := c.store.SetRemove(ctx, voteKey(songID, dir), ghostPrefix+actor); err != nil {
			return err
		}
		if _, err := c.store.SetRemove(ctx, userVoteKey(actor, dir), songID); err != nil {
			return err
		}
	}
	return nil
}

// UsedVotes counts the actor's live votes in one direction, for quota math.
func (c *Catalog) UsedVotes(ctx context.Context, actor string, dir Direction) (int64, error) {
	return c.store.SetCard(ctx, userVoteKey(actor, dir))
}
