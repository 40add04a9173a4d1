package modes

import "errors"

var (
	ErrBattleRunning   = errors.New("battle_already_running")
	ErrNoBattle        = errors.New("no_active_battle")
	ErrNotContender    = errors.New("song_not_in_battle")
	ErrAlreadyVoted    = errors.New("already_voted_in_battle")
	ErrNotEnoughSongs  = errors.New("not_enough_eligible_songs")
	ErrWrongPhase      = errors.New("wrong_battle_phase")
	ErrWindowRunning   = errors.New("window_already_running")
	ErrNoWindow        = errors.New("no_active_window")
	ErrNotEligible     = errors.New("no_song_contributed")
	ErrDeleteUsed      = errors.New("window_delete_used")
	ErrSongProtected   = errors.New("song_in_active_battle")
)
