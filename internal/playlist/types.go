package playlist

import "time"

type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
)

func (d Direction) Valid() bool { return d == DirUp || d == DirDown }

func (d Direction) Opposite() Direction {
	if d == DirUp {
		return DirDown
	}
	return DirUp
}

// Song is the catalog record. ID is the stable external catalog id, which is
// also what the battle-elimination blacklist keys on.
type Song struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	ArtURL     string    `json:"art_url,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	Owner      string    `json:"owner"`
	OwnerName  string    `json:"owner_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ranked is a song with its computed score, as served to clients.
type Ranked struct {
	Song
	Score int64 `json:"score"`
}
