package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/thecratehackers/crate-vote/internal/app/party"
	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/store"
)

func newRouter(st store.Store, cfg config.ServerConfig, svc *party.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(st))

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Use(bodyCaptureMiddleware(4096))

		r.Group(func(r chi.Router) {
			if cfg.HTTPRatePerMin > 0 {
				r.Use(httprate.LimitByIP(cfg.HTTPRatePerMin, time.Minute))
			}

			r.Get("/public/playlist", publicPlaylistHandler(svc))
			r.Get("/public/leaderboard", publicLeaderboardHandler(svc))
			r.Get("/public/session", publicSessionHandler(svc))
			r.Get("/public/battle", publicBattleHandler(svc))
			r.Get("/public/activity", publicActivityHandler(svc))
			r.Get("/public/users/{actor_id}/status", publicUserStatusHandler(svc))

			r.Post("/party/songs", addSongHandler(svc))
			r.Post("/party/songs/{song_id}/vote", voteHandler(svc))
			r.Delete("/party/songs/{song_id}", deleteSongHandler(svc))
			r.Post("/party/battle/vote", battleVoteHandler(svc))
			r.Post("/party/window/delete", windowDeleteHandler(svc))
			r.Post("/party/presence", presenceHandler(svc))
		})

		// The SSE stream sits outside the per-IP limiter: a single held
		// connection would eat the whole budget.
		r.Get("/public/activity/events", publicActivityEventsHandler(svc))

		r.Group(func(r chi.Router) {
			r.Use(hostAuthMiddleware(cfg.HostAPIKey))
			r.Post("/host/session/start", hostSessionStartHandler(svc))
			r.Post("/host/session/stop", hostSessionStopHandler(svc))
			r.Post("/host/session/reset", hostWipeHandler(svc))
			r.Post("/host/wipe", hostWipeHandler(svc))
			r.Post("/host/permissions", hostPermissionsHandler(svc))
			r.Post("/host/battle/start", hostBattleStartHandler(svc))
			r.Post("/host/battle/resolve", hostBattleResolveHandler(svc))
			r.Post("/host/battle/lightning", hostBattleLightningHandler(svc))
			r.Post("/host/window/start", hostWindowStartHandler(svc))
			r.Post("/host/doublepoints/start", hostDoublePointsHandler(svc))
			r.Post("/host/karmarain", hostKarmaRainHandler(svc))
			r.Post("/host/ban", hostBanHandler(svc))
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeHTTPError(w, http.StatusNotFound, "not_found")
	})
	return r
}
