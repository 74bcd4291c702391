package battle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"minearena/internal/agent"
	"minearena/internal/board"
)

const (
	// MaxMoves caps how many moves an agent may make before it is declared
	// stuck. Flag toggles count against the cap like reveals do.
	MaxMoves = 60

	// MaxRetries is how many consecutive failed calls are retried before
	// the run errors out. Applying at least one move resets the streak.
	MaxRetries = 3
)

// RunStats is the final accounting of one agent's run.
type RunStats struct {
	Outcome      Outcome
	Moves        int
	SafeRevealed int
	MinesHit     int
	Duration     time.Duration
}

// MoveFunc observes a single applied move. prev and curr are deep copies
// taken immediately before and after the move; the callback owns them.
type MoveFunc func(agentID string, mv agent.Move, prev, curr *board.Board)

// RunnerConfig wires one agent to one board.
type RunnerConfig struct {
	BattleID string
	AgentID  string
	Config   board.Config
	Seed     int64
	Mover    agent.Mover
	OnMove   MoveFunc
	Logger   zerolog.Logger
}

// Runner drives a single agent through its board until a terminal outcome.
// The board is materialized lazily on the first applied move so the mines
// can be placed away from the agent's opening cell.
type Runner struct {
	cfg    RunnerConfig
	board  *board.Board
	stats  RunStats
	logger zerolog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		cfg: cfg,
		logger: cfg.Logger.With().
			Str("component", "battle_runner").
			Str("battle_id", cfg.BattleID).
			Str("agent_id", cfg.AgentID).
			Logger(),
	}
}

// Run loops the agent until it wins, loses, gets stuck at the move cap, or
// exhausts its retries. The returned stats carry whatever was accumulated,
// so an errored run still reports the moves it applied.
func (r *Runner) Run(ctx context.Context) RunStats {
	start := time.Now()
	r.stats = RunStats{Outcome: OutcomePlaying}

	failures := 0
	feedback := ""
	for r.stats.Outcome == OutcomePlaying {
		if err := ctx.Err(); err != nil {
			r.logger.Warn().Err(err).Msg("Run cancelled")
			r.stats.Outcome = OutcomeError
			break
		}

		decision, err := r.cfg.Mover.ProposeMoves(ctx, r.buildRequest(feedback))
		if err != nil {
			failures++
			r.logger.Warn().
				Err(err).
				Int("consecutive_failures", failures).
				Msg("Agent call failed")
			if failures > MaxRetries {
				r.stats.Outcome = OutcomeError
				break
			}
			feedback = fmt.Sprintf("Your previous reply could not be used (%v). Respond with the makeMove or makeMoves tool.", err)
			continue
		}

		res := r.applyBatch(decision.Moves)
		if res.applied == 0 {
			failures++
			r.logger.Debug().
				Str("reason", res.reason).
				Int("consecutive_failures", failures).
				Msg("Batch rejected")
			if failures > MaxRetries {
				r.stats.Outcome = OutcomeError
				break
			}
			feedback = "Move rejected: " + res.reason
			continue
		}

		failures = 0
		feedback = ""
		if res.applied < res.total && r.stats.Outcome == OutcomePlaying {
			feedback = fmt.Sprintf("Applied %d of %d moves, then stopped: %s", res.applied, res.total, res.reason)
		}
	}

	r.stats.Duration = time.Since(start)
	r.logger.Info().
		Str("outcome", string(r.stats.Outcome)).
		Int("moves", r.stats.Moves).
		Int("safe_revealed", r.stats.SafeRevealed).
		Int("mines_hit", r.stats.MinesHit).
		Dur("duration", r.stats.Duration).
		Msg("Run finished")
	return r.stats
}

// buildRequest snapshots the run into the next agent request. Before the
// first applied move there is no board yet, so Board and Grid stay empty.
func (r *Runner) buildRequest(feedback string) agent.Request {
	req := agent.Request{
		BattleID:  r.cfg.BattleID,
		AgentID:   r.cfg.AgentID,
		Config:    r.cfg.Config,
		Turn:      r.stats.Moves + 1,
		FirstMove: r.board == nil,
		Feedback:  feedback,
	}
	if r.board != nil {
		req.Board = r.board.Encode()
		req.Grid = r.board.PromptGrid()
	}
	return req
}

type batchResult struct {
	applied int
	total   int
	reason  string // why application stopped before the end of the batch
}

// applyBatch applies moves in order and stops at the first invalid move or
// terminal outcome. A batch whose very first move is rejected applies
// nothing and counts as a failed call.
func (r *Runner) applyBatch(moves []agent.Move) batchResult {
	res := batchResult{total: len(moves)}
	if len(moves) == 0 {
		res.reason = "no moves in reply"
		return res
	}
	if len(moves) > agent.MaxBatchMoves {
		res.reason = fmt.Sprintf("too many moves in one batch (max %d)", agent.MaxBatchMoves)
		return res
	}

	for _, mv := range moves {
		if reason := r.validateMove(mv); reason != "" {
			res.reason = reason
			return res
		}
		if r.board == nil {
			r.materializeBoard(mv.Row, mv.Col)
		}
		r.applyMove(mv)
		res.applied++
		if r.stats.Outcome != OutcomePlaying {
			res.reason = terminalReason(r.stats.Outcome)
			return res
		}
	}
	return res
}

// validateMove reports why mv cannot be applied, or "" if it can. Until
// the board exists only the action and bounds can be checked.
func (r *Runner) validateMove(mv agent.Move) string {
	if !mv.Action.Valid() {
		return fmt.Sprintf("unknown action %q", string(mv.Action))
	}
	if mv.Row < 0 || mv.Row >= r.cfg.Config.Rows || mv.Col < 0 || mv.Col >= r.cfg.Config.Cols {
		return fmt.Sprintf("cell (%d, %d) is outside the %dx%d board", mv.Row, mv.Col, r.cfg.Config.Rows, r.cfg.Config.Cols)
	}
	if r.board == nil {
		return ""
	}
	cell := r.board.At(mv.Row, mv.Col)
	if cell.Revealed {
		return fmt.Sprintf("cell (%d, %d) is already revealed", mv.Row, mv.Col)
	}
	if mv.Action == agent.ActionReveal && cell.Flagged {
		return fmt.Sprintf("cell (%d, %d) is flagged; unflag it before revealing", mv.Row, mv.Col)
	}
	return ""
}

// materializeBoard places the mines, keeping them clear of the opening cell.
func (r *Runner) materializeBoard(row, col int) {
	exclude := board.Position{Row: row, Col: col}
	mines := board.GeneratePositions(r.cfg.Config, r.cfg.Seed, &exclude)
	r.board = board.New(r.cfg.Config, mines)
	r.logger.Debug().
		Int("row", row).
		Int("col", col).
		Int64("seed", r.cfg.Seed).
		Msg("Board materialized on first move")
}

// applyMove applies one pre-validated move and updates the run's outcome.
func (r *Runner) applyMove(mv agent.Move) {
	prev := r.board.Clone()

	switch mv.Action {
	case agent.ActionFlag:
		r.board.ToggleFlag(mv.Row, mv.Col)
		r.stats.Moves++
	case agent.ActionReveal:
		opened, mine := r.board.Reveal(mv.Row, mv.Col)
		r.stats.Moves++
		r.stats.SafeRevealed += opened
		if mine {
			r.stats.MinesHit++
			r.stats.Outcome = OutcomeLoss
		} else if r.stats.SafeRevealed >= r.cfg.Config.TotalSafe() {
			r.stats.Outcome = OutcomeWin
		}
	}
	if r.stats.Outcome == OutcomePlaying && r.stats.Moves >= MaxMoves {
		r.stats.Outcome = OutcomeStuck
	}

	if r.cfg.OnMove != nil {
		r.cfg.OnMove(r.cfg.AgentID, mv, prev, r.board.Clone())
	}
}

func terminalReason(outcome Outcome) string {
	switch outcome {
	case OutcomeWin:
		return "all safe cells revealed"
	case OutcomeLoss:
		return "revealed a mine"
	case OutcomeStuck:
		return "move limit reached"
	default:
		return string(outcome)
	}
}
