package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thecratehackers/crate-vote/internal/app/party"
	"github.com/thecratehackers/crate-vote/internal/config"
	"github.com/thecratehackers/crate-vote/internal/store"
)

const testHostKey = "host-test-key"

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		PlaylistCapacity:    100,
		BaseSongLimit:       3,
		BaseUpvoteLimit:     5,
		BaseDownvoteLimit:   5,
		BaseDeleteLimit:     1,
		KarmaCap:            10,
		KarmaBonusCap:       5,
		KarmaAddCost:        2,
		KarmaRainAmount:     3,
		PresenceKarmaEvery:  time.Minute,
		KarmaRainCooldown:   5 * time.Minute,
		WatchKarmaSeconds:   300,
		SessionDuration:     time.Hour,
		BattleVoteWindow:    30 * time.Second,
		LightningWindow:     15 * time.Second,
		DeleteWindow:        time.Minute,
		DoublePointsWindow:  time.Minute,
		PruneScoreThreshold: -5,
		PruneGrace:          2 * time.Minute,
		VoteRatePerMin:      1000,
		AddRatePerMin:       1000,
		SearchRatePerMin:    1000,
	}
}

// newTestRouter runs the full stack over the in-memory store. The per-IP
// HTTP limiter stays off so tests can hammer the API from one address.
func newTestRouter(t *testing.T) (*chi.Mux, *party.Service) {
	t.Helper()
	st := store.NewMemory()
	svc := party.NewService(st, testSessionConfig())
	cfg := config.ServerConfig{HostAPIKey: testHostKey}
	return newRouter(st, cfg, svc), svc
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func hostHeaders() map[string]string {
	return map[string]string{"X-API-Key": testHostKey}
}

func startTestSession(t *testing.T, router http.Handler) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/host/session/start", nil, hostHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("start session: %d %s", w.Code, w.Body.String())
	}
}

func addTestSong(t *testing.T, router http.Handler, actor, id string) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/party/songs", map[string]any{
		"actor_id": actor,
		"song":     map[string]any{"id": id, "name": "song " + id},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("add song %s: %d %s", id, w.Code, w.Body.String())
	}
}
