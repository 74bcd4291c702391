package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"minearena/internal/battle"
	"minearena/internal/board"
	"minearena/internal/persist"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type createBattleRequest struct {
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
	MineCount int      `json:"mineCount"`
	AgentIDs  []string `json:"agentIds"`
	Seed      *int64   `json:"seed,omitempty"`
}

type listCompletedResponse struct {
	Battles []battle.Summary `json:"battles"`
	Total   int64            `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

func (s *Server) handleCreateBattle(w http.ResponseWriter, r *http.Request) {
	var req createBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := s.validateCreate(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	seed := rand.Int63()
	if req.Seed != nil {
		seed = *req.Seed
	}

	cfg := board.Config{Rows: req.Rows, Cols: req.Cols, Mines: req.MineCount}
	b, err := s.store.Create(cfg, req.AgentIDs, seed)
	if err != nil {
		switch {
		case errors.Is(err, battle.ErrDuplicateAgent):
			writeError(w, http.StatusBadRequest, "agentIds must be unique")
		case errors.Is(err, battle.ErrNoAgents),
			errors.Is(err, board.ErrInvalidDimensions),
			errors.Is(err, board.ErrNegativeMineCount),
			errors.Is(err, board.ErrTooManyMines):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error().Err(err).Msg("Failed to create battle")
			writeError(w, http.StatusInternalServerError, "failed to create battle")
		}
		return
	}

	s.launchBattle(b.ID)
	writeJSON(w, http.StatusCreated, b)
}

// validateCreate enforces the API limits before the config ever reaches the
// engine. An empty string means the request is acceptable.
func (s *Server) validateCreate(req createBattleRequest) string {
	switch {
	case req.Rows < 1 || req.Rows > s.limits.MaxRows:
		return fmt.Sprintf("rows must be between 1 and %d", s.limits.MaxRows)
	case req.Cols < 1 || req.Cols > s.limits.MaxCols:
		return fmt.Sprintf("cols must be between 1 and %d", s.limits.MaxCols)
	case req.MineCount < 0:
		return "mineCount cannot be negative"
	case req.MineCount > s.limits.MaxMines:
		return fmt.Sprintf("mineCount must be at most %d", s.limits.MaxMines)
	case req.MineCount >= req.Rows*req.Cols:
		return "mineCount must leave at least one safe cell"
	case len(req.AgentIDs) < 1 || len(req.AgentIDs) > s.limits.MaxAgents:
		return fmt.Sprintf("between 1 and %d agents are required", s.limits.MaxAgents)
	}
	return ""
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, battle.ErrBattleNotFound) {
			writeError(w, http.StatusNotFound, "battle not found")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load battle")
		writeError(w, http.StatusInternalServerError, "failed to load battle")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleListCompleted(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	summaries, total, err := s.store.Archive().ListCompleted(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list completed battles")
		writeError(w, http.StatusInternalServerError, "failed to list battles")
		return
	}
	writeJSON(w, http.StatusOK, listCompletedResponse{
		Battles: summaries,
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	})
}

func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	replay, err := s.store.Archive().LoadReplay(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, persist.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no replay for this battle")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to load replay")
		writeError(w, http.StatusInternalServerError, "failed to load replay")
		return
	}
	writeJSON(w, http.StatusOK, replay)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"activeBattles": s.store.ActiveBattles(),
		"goroutines":    s.monitor.Metrics(),
	})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
