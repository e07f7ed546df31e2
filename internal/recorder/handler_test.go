package recorder

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T) (*chi.Mux, *Session) {
	t.Helper()
	s := newTestSession(t, testParams(), io.Discard, nil)
	s.status.Store(StatusRunning)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	h := NewHandler(s, log)

	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Post("/stop", h.Stop)
	return r, s
}

func TestHandler_Status(t *testing.T) {
	r, s := newTestRouter(t)
	s.OnSamples(ChannelA, 0, ramp(0, 8), ramp(0, 8), false)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var sum Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	if sum.Status != "running" {
		t.Errorf("expected status running, got %q", sum.Status)
	}
	if len(sum.Channels) != 1 {
		t.Fatalf("expected 1 channel summary, got %d", len(sum.Channels))
	}
	if sum.Channels[0].TotalSamples != 8 {
		t.Errorf("expected 8 total samples, got %d", sum.Channels[0].TotalSamples)
	}
}

func TestHandler_Stop(t *testing.T) {
	r, s := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/stop", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if got := s.Status(); got != StatusTerminate {
		t.Errorf("expected status %s after stop, got %s", StatusTerminate, got)
	}

	// A second request is accepted and changes nothing further.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 on repeat, got %d", rec.Code)
	}
	if got := s.Status(); got != StatusTerminate {
		t.Errorf("expected status unchanged, got %s", got)
	}
}
