// Package api is the HTTP surface: public ranking and product reads plus
// admin batch triggers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"shoprank/internal/batch"
	"shoprank/internal/catalog"
	"shoprank/internal/ranking"
)

// WeightStore is the persistence the weight endpoints need.
type WeightStore interface {
	LatestWeights(ctx context.Context) (ranking.Weights, bool, error)
	SaveWeights(ctx context.Context, w ranking.Weights) error
}

type Server struct {
	ranks      *catalog.RankReader
	products   *catalog.Service
	weights    WeightStore
	launcher   *batch.Launcher
	jobs       *batch.JobSet
	httpServer *http.Server
	startedAt  time.Time
}

func NewServer(ranks *catalog.RankReader, products *catalog.Service, weights WeightStore, launcher *batch.Launcher, jobs *batch.JobSet, port string) *Server {
	s := &Server{
		ranks:     ranks,
		products:  products,
		weights:   weights,
		launcher:  launcher,
		jobs:      jobs,
		startedAt: time.Now(),
	}

	r := mux.NewRouter()
	r.Use(commonMiddleware)
	r.Use(rateLimitMiddleware)
	s.registerRoutes(r)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	return s
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	r.HandleFunc("/status", s.handleStatus).Methods("GET", "OPTIONS")

	r.HandleFunc("/api/v1/rankings", s.handleGetRankings).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/rankings/weight", s.handleGetWeight).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/rankings/weight", s.handlePutWeight).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/v1/admin/batch/rankings/{period}", s.handleRebuildRanking).Methods("POST", "OPTIONS")

	r.HandleFunc("/api/v1/products", s.handleListProducts).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/v1/products/{id}", s.handleGetProduct).Methods("GET", "OPTIONS")
}

// Handler exposes the configured router for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"jobs":           s.launcher.LastExecutions(),
	})
}

func commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, PUT, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
