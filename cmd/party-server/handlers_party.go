package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thecratehackers/crate-vote/internal/app/party"
	"github.com/thecratehackers/crate-vote/internal/playlist"
)

func addSongHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActorID string        `json:"actor_id"`
			Song    playlist.Song `json:"song"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.AddSong(r.Context(), req.ActorID, req.Song)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{
			"ok":          true,
			"song_id":     res.SongID,
			"displaced":   res.Displaced,
			"spent_karma": res.SpentKarma,
		})
	}
}

func voteHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		songID := chi.URLParam(r, "song_id")
		var req struct {
			ActorID   string `json:"actor_id"`
			Direction string `json:"direction"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.Vote(r.Context(), songID, req.ActorID, playlist.Direction(req.Direction)); err != nil {
			writeServiceError(w, err)
			return
		}
		st, err := svc.UserStatus(r.Context(), req.ActorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "status": st})
	}
}

func deleteSongHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		songID := chi.URLParam(r, "song_id")
		var req struct {
			ActorID string `json:"actor_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.DeleteSong(r.Context(), songID, req.ActorID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func battleVoteHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActorID string `json:"actor_id"`
			SongID  string `json:"song_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		b, err := svc.VoteInBattle(r.Context(), req.ActorID, req.SongID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, b)
	}
}

func windowDeleteHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActorID string `json:"actor_id"`
			SongID  string `json:"song_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.UseWindowDelete(r.Context(), req.ActorID, req.SongID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func presenceHandler(svc *party.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActorID      string `json:"actor_id"`
			WatchSeconds int    `json:"watch_seconds"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		res, err := svc.Presence(r.Context(), req.ActorID, req.WatchSeconds)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, res)
	}
}
