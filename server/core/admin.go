package core

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/automoto/netsnap/shared/identity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type playersResponse struct {
	Players   []PlayerInfo `json:"players"`
	Obstacles int          `json:"obstacles"`
}

type obstacleResponse struct {
	ID identity.NetID `json:"id"`
}

// NewAdminRouter serves health, metrics and a small control surface for the
// loop's server.
func NewAdminRouter(loop *GameLoop, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/players", ListPlayers(loop))
	r.Post("/obstacles", SpawnObstacle(loop))
	return r
}

func ListPlayers(loop *GameLoop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var resp playersResponse
		err := loop.Do(r.Context(), func(s *Server) {
			resp.Players = s.Players()
			resp.Obstacles = s.ObstacleCount()
		})
		if err != nil {
			http.Error(w, `{"error":"server unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			loop.server.log.Warnw("players encode", "error", err)
		}
	}
}

func SpawnObstacle(loop *GameLoop) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var (
			id       identity.NetID
			spawnErr error
		)
		err := loop.Do(r.Context(), func(s *Server) {
			id, spawnErr = s.SpawnObstacle()
		})
		switch {
		case err != nil:
			http.Error(w, `{"error":"server unavailable"}`, http.StatusServiceUnavailable)
			return
		case errors.Is(spawnErr, identity.ErrExhausted):
			http.Error(w, `{"error":"no ids left"}`, http.StatusConflict)
			return
		case spawnErr != nil:
			http.Error(w, `{"error":"spawn failed"}`, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(obstacleResponse{ID: id})
	}
}
