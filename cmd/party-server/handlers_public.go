package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thecratehackers/crate-vote/internal/activity"
	"github.com/thecratehackers/crate-vote/internal/app/party"
	"github.com/thecratehackers/crate-vote/internal/store"
)

var pingInterval = 15 * time.Second

func healthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "store_unreachable")
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func publicPlaylistHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ranked, err := svc.SortedSongs(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"items": ranked, "count": len(ranked)})
	}
}

func publicLeaderboardHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		ranked, err := svc.SortedSongs(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		// The playlist order floats fresh songs to the top; the leaderboard
		// only wants the scored tail, which is already score-descending.
		out := make([]map[string]any, 0, limit)
		for _, it := range ranked {
			if it.Score <= 0 {
				continue
			}
			out = append(out, map[string]any{
				"id":         it.ID,
				"name":       it.Name,
				"artist":     it.Artist,
				"owner":      it.Owner,
				"owner_name": it.OwnerName,
				"score":      it.Score,
			})
			if len(out) == limit {
				break
			}
		}
		writeJSON(w, map[string]any{"items": out})
	}
}

func publicSessionHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.SessionState(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := map[string]any{"session": st}
		if win, active, err := svc.DeleteWindowState(r.Context()); err == nil && active {
			out["delete_window"] = win
		}
		if win, active, err := svc.DoublePointsState(r.Context()); err == nil && active {
			out["double_points"] = win
		}
		writeJSON(w, out)
	}
}

func publicBattleHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok, err := svc.BattleState(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !ok {
			writeHTTPError(w, http.StatusNotFound, "no_battle")
			return
		}
		writeJSON(w, b)
	}
}

func publicUserStatusHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := chi.URLParam(r, "actor_id")
		st, err := svc.UserStatus(r.Context(), actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, st)
	}
}

func publicActivityHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"items": svc.Feed().Recent()})
	}
}

func publicActivityEventsHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		feed := svc.Feed()
		for _, ev := range feed.ReplayAfter(r.Header.Get("Last-Event-ID")) {
			if err := activity.WriteSSE(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ch := feed.Subscribe()
		defer feed.Unsubscribe(ch)
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := activity.WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := activity.Event{Kind: "ping", ServerTS: time.Now().UnixMilli()}
				if err := activity.WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
