package agent

import (
	"context"
	"errors"
	"math/rand"

	"minearena/internal/board"
)

// Solver is a deterministic single-point minesweeper bot. Each turn it
// batches every cell provably safe from one digit's constraints, then every
// cell provably a mine, and only guesses when logic is exhausted. It plays
// identically given identical boards, which makes it the reference opponent
// for tests and local battles.
type Solver struct{}

// NewSolver creates a solver bot.
func NewSolver() *Solver { return &Solver{} }

// ProposeMoves implements Mover.
func (s *Solver) ProposeMoves(_ context.Context, req Request) (Decision, error) {
	if req.FirstMove {
		return Decision{
			Moves:     []Move{{Action: ActionReveal, Row: req.Config.Rows / 2, Col: req.Config.Cols / 2}},
			Reasoning: "opening at the center",
		}, nil
	}

	grid := board.Decode(req.Board, req.Config.Rows, req.Config.Cols)
	if moves := provenSafe(grid); len(moves) > 0 {
		return Decision{Moves: moves, Reasoning: "these cells are provably safe"}, nil
	}
	if moves := provenMines(grid); len(moves) > 0 {
		return Decision{Moves: moves, Reasoning: "these cells are provably mines"}, nil
	}
	if guess, ok := firstHidden(grid); ok {
		return Decision{
			Moves:     []Move{{Action: ActionReveal, Row: guess.Row, Col: guess.Col}},
			Reasoning: "no forced move; guessing in scan order",
		}, nil
	}
	return Decision{}, errors.New("no hidden cells remain")
}

// provenSafe finds hidden cells next to digits whose mine quota is already
// met by flags: every remaining hidden neighbor of such a digit is safe.
func provenSafe(grid [][]byte) []Move {
	var moves []Move
	seen := make(map[board.Position]bool)
	forEachDigit(grid, func(r, c, digit int) bool {
		hidden, flags := neighborInfo(grid, r, c)
		if flags != digit || len(hidden) == 0 {
			return true
		}
		for _, p := range hidden {
			if seen[p] {
				continue
			}
			seen[p] = true
			moves = append(moves, Move{Action: ActionReveal, Row: p.Row, Col: p.Col})
			if len(moves) == MaxBatchMoves {
				return false
			}
		}
		return true
	})
	return moves
}

// provenMines finds hidden cells that must be mines: digits whose hidden
// plus flagged neighbors exactly cover the quota.
func provenMines(grid [][]byte) []Move {
	var moves []Move
	seen := make(map[board.Position]bool)
	forEachDigit(grid, func(r, c, digit int) bool {
		hidden, flags := neighborInfo(grid, r, c)
		if len(hidden)+flags != digit {
			return true
		}
		for _, p := range hidden {
			if seen[p] {
				continue
			}
			seen[p] = true
			moves = append(moves, Move{Action: ActionFlag, Row: p.Row, Col: p.Col})
			if len(moves) == MaxBatchMoves {
				return false
			}
		}
		return true
	})
	return moves
}

// forEachDigit visits revealed cells with a nonzero digit in scan order until
// the visitor returns false.
func forEachDigit(grid [][]byte, visit func(r, c, digit int) bool) {
	for r := range grid {
		for c := range grid[r] {
			v := grid[r][c]
			if v < '1' || v > '8' {
				continue
			}
			if !visit(r, c, int(v-'0')) {
				return
			}
		}
	}
}

// neighborInfo returns the hidden unflagged neighbors of a cell and the
// number of flagged neighbors.
func neighborInfo(grid [][]byte, row, col int) (hidden []board.Position, flags int) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			r, c := row+dr, col+dc
			if r < 0 || r >= len(grid) || c < 0 || c >= len(grid[r]) {
				continue
			}
			switch grid[r][c] {
			case board.HiddenChar:
				hidden = append(hidden, board.Position{Row: r, Col: c})
			case board.FlagChar:
				flags++
			}
		}
	}
	return hidden, flags
}

func firstHidden(grid [][]byte) (board.Position, bool) {
	for r := range grid {
		for c := range grid[r] {
			if grid[r][c] == board.HiddenChar {
				return board.Position{Row: r, Col: c}, true
			}
		}
	}
	return board.Position{}, false
}

// Random reveals a uniformly chosen hidden cell each turn. Useful as a
// baseline opponent; it never flags.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random bot with its own seeded generator.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// ProposeMoves implements Mover.
func (a *Random) ProposeMoves(_ context.Context, req Request) (Decision, error) {
	if req.FirstMove {
		return Decision{Moves: []Move{{
			Action: ActionReveal,
			Row:    a.rng.Intn(req.Config.Rows),
			Col:    a.rng.Intn(req.Config.Cols),
		}}}, nil
	}

	grid := board.Decode(req.Board, req.Config.Rows, req.Config.Cols)
	var candidates []board.Position
	for r := range grid {
		for c := range grid[r] {
			if grid[r][c] == board.HiddenChar {
				candidates = append(candidates, board.Position{Row: r, Col: c})
			}
		}
	}
	if len(candidates) == 0 {
		return Decision{}, errors.New("no hidden cells remain")
	}
	pick := candidates[a.rng.Intn(len(candidates))]
	return Decision{Moves: []Move{{Action: ActionReveal, Row: pick.Row, Col: pick.Col}}}, nil
}
