package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// SessionConfig carries every gameplay tunable. Handlers and engines take it
// by value so parallel test sessions can construct their own.
type SessionConfig struct {
	PlaylistCapacity int `env:"PLAYLIST_CAPACITY" envDefault:"100"`

	BaseSongLimit     int `env:"BASE_SONG_LIMIT" envDefault:"3"`
	BaseUpvoteLimit   int `env:"BASE_UPVOTE_LIMIT" envDefault:"5"`
	BaseDownvoteLimit int `env:"BASE_DOWNVOTE_LIMIT" envDefault:"5"`
	BaseDeleteLimit   int `env:"BASE_DELETE_LIMIT" envDefault:"1"`

	KarmaCap        int `env:"KARMA_CAP" envDefault:"10"`
	KarmaBonusCap   int `env:"KARMA_BONUS_CAP" envDefault:"5"`
	KarmaAddCost    int `env:"KARMA_ADD_COST" envDefault:"2"`
	KarmaRainAmount int `env:"KARMA_RAIN_AMOUNT" envDefault:"3"`

	PresenceKarmaEvery time.Duration `env:"PRESENCE_KARMA_EVERY" envDefault:"60s"`
	KarmaRainCooldown  time.Duration `env:"KARMA_RAIN_COOLDOWN" envDefault:"5m"`
	WatchKarmaSeconds  int           `env:"WATCH_KARMA_SECONDS" envDefault:"300"`

	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"60m"`

	BattleVoteWindow   time.Duration `env:"BATTLE_VOTE_WINDOW" envDefault:"30s"`
	LightningWindow    time.Duration `env:"LIGHTNING_WINDOW" envDefault:"15s"`
	DeleteWindow       time.Duration `env:"DELETE_WINDOW" envDefault:"60s"`
	DoublePointsWindow time.Duration `env:"DOUBLE_POINTS_WINDOW" envDefault:"60s"`

	PruneScoreThreshold int           `env:"PRUNE_SCORE_THRESHOLD" envDefault:"-5"`
	PruneGrace          time.Duration `env:"PRUNE_GRACE" envDefault:"2m"`

	VoteRatePerMin   int `env:"VOTE_RATE_PER_MIN" envDefault:"30"`
	AddRatePerMin    int `env:"ADD_RATE_PER_MIN" envDefault:"10"`
	SearchRatePerMin int `env:"SEARCH_RATE_PER_MIN" envDefault:"20"`
}

func LoadSession() (SessionConfig, error) {
	var cfg SessionConfig
	err := env.Parse(&cfg)
	return cfg, err
}
