package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"
)

import (
	"github.com/gorilla/mux"
)

import (
	"github.com/nanjiek/pixiu-rcu/internal/config"
	"github.com/nanjiek/pixiu-rcu/internal/util"
	"github.com/nanjiek/pixiu-rcu/internal/workload"
)

type Server struct {
	cfg      config.ServerCfg
	store    workload.Store
	progress func() workload.Stats
	dispatch func() workload.DispatchStats
	srv      *http.Server // ← 内部封装 http.Server
}

// ServerOption attaches optional stat sources.
type ServerOption func(*Server)

func WithProgress(fn func() workload.Stats) ServerOption {
	return func(s *Server) { s.progress = fn }
}

func WithDispatchStats(fn func() workload.DispatchStats) ServerOption {
	return func(s *Server) { s.dispatch = fn }
}

func NewServer(cfg config.ServerCfg, store workload.Store, opts ...ServerOption) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/value", s.getValueHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/value", s.putValueHandler).Methods(http.MethodPut)
	r.HandleFunc("/v1/stats", s.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
}

func (s *Server) ListenAndServe() error {
	r := mux.NewRouter()
	s.RegisterRoutes(r)
	s.srv = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// ---------------- Handlers ----------------

func (s *Server) getValueHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	values, gen := s.store.SnapshotVersion()
	resp := ValueResponse{
		Generation: gen,
		Len:        len(values),
		Values:     values,
	}
	// NaN is not valid JSON; an empty vector reports mean 0.
	if m := util.Mean(values); !math.IsNaN(m) {
		resp.Mean = m
	}
	if resp.Values == nil {
		resp.Values = []int{}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) putValueHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	gen, ok := s.store.Install(req.Values)
	if !ok {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(UpdateResponse{Updated: false})
		return
	}
	_ = json.NewEncoder(w).Encode(UpdateResponse{Updated: true, Generation: gen})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := StatsResponse{
		Variant: s.store.Variant(),
		Cell:    s.store.Stats(),
	}
	if s.progress != nil {
		p := s.progress()
		// -Inf before the first success does not encode.
		if math.IsInf(p.BestMean, -1) {
			p.BestMean = 0
		}
		resp.Workload = &p
	}
	if s.dispatch != nil {
		d := s.dispatch()
		resp.Dispatch = &d
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func errResp(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
