package store

import "strings"

// Key naming scheme for the shared kv store. Everything session-scoped hangs
// off one of these prefixes so a wipe can reach it.
const (
	KeySongs       = "songs"             // set of song ids
	KeyActors      = "actors"            // set of actor ids seen this session
	KeyBanned      = "banned"            // set of banned actor ids
	KeyEliminated  = "eliminated"        // set of battle-eliminated song ids
	KeyTop3Granted = "karma:top3granted" // set of song ids already paid top-3 karma

	PrefixSong    = "song:"    // song:<id> value, song:<id>:up / :down sets
	PrefixUser    = "user:"    // user:<id>:songs, user:<id>:deletes counters
	PrefixKarma   = "karma:"   // karma:<id> counter
	PrefixSession = "session:" // session:timer value, session:* flags
	PrefixMode    = "mode:"    // mode:battle, mode:chaos:*, mode:dp
	PrefixRate    = "rl:"      // rate-limit and cooldown windows
)

func SongKey(id string) string            { return PrefixSong + id }
func SongUpKey(id string) string          { return PrefixSong + id + ":up" }
func SongDownKey(id string) string        { return PrefixSong + id + ":down" }
func UserSongsKey(actor string) string    { return PrefixUser + actor + ":songs" }
func UserDeletesKey(actor string) string  { return PrefixUser + actor + ":deletes" }
func UserWatchKey(actor string) string    { return PrefixUser + actor + ":watch" }
func KarmaKey(actor string) string        { return PrefixKarma + actor }
func RateKey(parts ...string) string      { return PrefixRate + strings.Join(parts, ":") }
