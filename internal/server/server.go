// Package server exposes the turn engine over HTTP: the platform webhook,
// a websocket console for hands-on testing, and a health probe.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	log "log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"voxnav/internal/turn"
	"voxnav/pkg/platform"
)

// TurnTimeout bounds one webhook turn; the voice platform gives up around
// eight seconds, so everything downstream must have failed fast by then.
const TurnTimeout = 8 * time.Second

type Server struct {
	engine *turn.Engine
}

func New(engine *turn.Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Post("/v1/turn", s.handleTurn)
	r.Get("/v1/console", s.handleConsole)
	return r
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	req, err := platform.ParseTurnRequest(body)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, platform.ErrMissingUser) {
			log.Warn("bad turn request", "err", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), TurnTimeout)
	defer cancel()

	resp, err := s.engine.Handle(ctx, req)
	if err != nil {
		// Only a malformed request reaches here; everything else is a
		// spoken recovery.
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// requestLog tags every request with a short id, echoed back in the
// X-Request-Id header so a reply can be matched to its log lines.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()[:8]
		w.Header().Set("X-Request-Id", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("http request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"took", time.Since(start),
		)
	})
}
