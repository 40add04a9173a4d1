package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	// Empty DSN runs the server on the in-memory store (single instance).
	PostgresDSN string `env:"POSTGRES_DSN"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	HostAPIKey string `env:"HOST_API_KEY"`

	// Per-IP ceiling on the public API group, requests per minute.
	HTTPRatePerMin int `env:"HTTP_RATE_PER_MIN" envDefault:"120"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
