package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thecratehackers/crate-vote/internal/app/party"
	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/logging"
	"github.com/thecratehackers/crate-vote/internal/store"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st, err := openStore(cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("store ping failed")
	}

	svc := party.NewService(st, cfg.Session)
	svc.StartJanitor(context.Background(), time.Minute)

	r := newRouter(st, cfg.Server, svc)
	logRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func openStore(cfg config.ServerConfig) (store.Store, error) {
	if cfg.PostgresDSN == "" {
		log.Warn().Msg("POSTGRES_DSN unset, running on the in-memory store")
		return store.NewMemory(), nil
	}
	return store.NewPG(cfg.PostgresDSN)
}

func logRoutes(r *chi.Mux) {
	var routes []string
	walk := func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	}
	if err := chi.Walk(r, walk); err != nil {
		log.Warn().Err(err).Msg("route walk failed")
		return
	}
	sort.Strings(routes)
	for _, rt := range routes {
		log.Debug().Str("route", rt).Msg("registered route")
	}
}
