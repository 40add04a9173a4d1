package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/thecratehackers/crate-vote/internal/app/party"
)

func hostAuthMiddleware(hostKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hostKey != "" && !checkHostAuth(r, hostKey) {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func checkHostAuth(r *http.Request, hostKey string) bool {
	if v := r.Header.Get("X-API-Key"); v == hostKey {
		return true
	}
	auth := r.Header.Get("Authorization")
	prefix := "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):] == hostKey
	}
	return false
}

func hostSessionStartHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DurationSeconds int `json:"duration_seconds"`
		}
		// Body optional: no body means the configured default duration.
		_ = json.NewDecoder(r.Body).Decode(&req)
		if err := svc.StartSession(r.Context(), time.Duration(req.DurationSeconds)*time.Second); err != nil {
			writeServiceError(w, err)
			return
		}
		st, err := svc.SessionState(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, st)
	}
}

func hostSessionStopHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.StopSession(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func hostWipeHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ResetSession(r.Context()); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func hostPermissionsHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CanVote     bool `json:"can_vote"`
			CanAddSongs bool `json:"can_add_songs"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetPermissions(r.Context(), req.CanVote, req.CanAddSongs); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func hostBanHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActorID string `json:"actor_id"`
			Banned  bool   `json:"banned"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.Ban(r.Context(), req.ActorID, req.Banned); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func hostBattleStartHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.StartVersusBattle(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, b)
	}
}

func hostBattleResolveHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.ResolveBattle(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, b)
	}
}

func hostBattleLightningHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := svc.StartLightningRound(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, b)
	}
}

func hostWindowStartHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win, err := svc.StartDeleteWindow(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, win)
	}
}

func hostDoublePointsHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		win, err := svc.StartDoublePoints(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, win)
	}
}

func hostKarmaRainHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paid, err := svc.TriggerKarmaRain(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "actors_paid": paid})
	}
}
