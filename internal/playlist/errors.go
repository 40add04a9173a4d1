package playlist

import "errors"

var (
	ErrNotFound      = errors.New("song_not_found")
	ErrDuplicateSong = errors.New("song_already_present")
	ErrEliminated    = errors.New("song_eliminated")
	ErrCapacity      = errors.New("playlist_full")
	ErrNotOwner      = errors.New("not_song_owner")
	ErrBadDirection  = errors.New("invalid_vote_direction")
)
