package modes

import "time"

type Phase string

const (
	PhaseVoting    Phase = "voting"
	PhaseLightning Phase = "lightning"
	PhaseResolved  Phase = "resolved"
)

// Contender is the display snapshot of a battle candidate, frozen at battle
// start so a concurrent catalog edit cannot change what voters saw.
type Contender struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Owner  string `json:"owner"`
}

// Battle is the head-to-head elimination state machine.
type Battle struct {
	Phase     Phase     `json:"phase"`
	SongA     Contender `json:"song_a"`
	SongB     Contender `json:"song_b"`
	EndsAt    time.Time `json:"ends_at"`
	WinnerID  string    `json:"winner_id,omitempty"`
	LoserID   string    `json:"loser_id,omitempty"`
	StartedAt time.Time `json:"started_at"`

	// Filled on read, not persisted with the record.
	VotesA int64 `json:"votes_a"`
	VotesB int64 `json:"votes_b"`
}

// Window is a simple end-time marker shared by the delete window and the
// double-points window.
type Window struct {
	EndsAt time.Time `json:"ends_at"`
}
