// Package server exposes battles over HTTP: a JSON API for creating and
// inspecting them, a WebSocket stream of live events, and replay endpoints
// backed by the archive.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"minearena/internal/battle"
	"minearena/internal/monitoring"
)

const shutdownTimeout = 10 * time.Second

// Limits bounds what a create request may ask for.
type Limits struct {
	MaxRows   int
	MaxCols   int
	MaxMines  int
	MaxAgents int
}

// DefaultLimits returns the stock API limits.
func DefaultLimits() Limits {
	return Limits{MaxRows: 30, MaxCols: 30, MaxMines: 200, MaxAgents: 10}
}

// Server routes the battle API. Battles started through it keep running on
// the server's own context, so a create request returns immediately while
// the battle plays out in the background.
type Server struct {
	store    *battle.Store
	orch     *battle.Orchestrator
	limits   Limits
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	monitor  *monitoring.Monitor

	runCtx    context.Context
	cancelRun context.CancelFunc
	runs      sync.WaitGroup
}

// New wires a server around the store and the factory that builds agents
// for new battles.
func New(store *battle.Store, factory battle.MoverFactory, limits Limits, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		store:     store,
		orch:      battle.NewOrchestrator(store, factory, logger),
		limits:    limits,
		logger:    logger.With().Str("component", "http_server").Logger(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		monitor:   monitoring.New(store.ActiveBattles, logger),
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// Handler returns the route table. Exposed separately so tests can drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/battles", s.handleCreateBattle)
	mux.HandleFunc("GET /api/battles/completed", s.handleListCompleted)
	mux.HandleFunc("GET /api/battles/{id}", s.handleGetBattle)
	mux.HandleFunc("GET /api/battles/{id}/replay", s.handleGetReplay)
	mux.HandleFunc("GET /api/battles/{id}/ws", s.handleStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// ListenAndServe serves the API until ctx is cancelled, then shuts down
// gracefully and stops the battles still in flight.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.monitor.Start()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info().Str("addr", addr).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("Graceful shutdown failed, closing hard")
		_ = srv.Close()
	}
	s.Close()
	return nil
}

// Close cancels every battle the server started and waits for their
// orchestrators to wind down.
func (s *Server) Close() {
	s.monitor.Stop()
	s.cancelRun()
	s.runs.Wait()
}

// launchBattle plays the battle in the background.
func (s *Server) launchBattle(battleID string) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		if err := s.orch.Run(s.runCtx, battleID); err != nil {
			s.logger.Error().
				Err(err).
				Str("battle_id", battleID).
				Msg("Battle run failed")
		}
	}()
}
