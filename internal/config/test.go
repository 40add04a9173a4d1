package config

import "github.com/caarlos0/env/v11"

// TestConfig points integration tests at a throwaway Postgres. Tests that
// need it skip when the DSN is unset, so `go test ./...` stays green on a
// laptop with no database.
type TestConfig struct {
	TestPostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
