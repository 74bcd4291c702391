// Package agent defines the contract between battles and the players that
// drive them, plus the adapters that implement it: an OpenAI-compatible
// tool-calling client and deterministic local bots.
package agent

import (
	"context"

	"minearena/internal/board"
)

// MaxBatchMoves caps how many moves a single decision may carry.
const MaxBatchMoves = 20

// Action is the kind of move an agent can make.
type Action string

const (
	ActionReveal Action = "reveal"
	ActionFlag   Action = "flag"
)

// Valid reports whether the action is one of the known kinds.
func (a Action) Valid() bool {
	return a == ActionReveal || a == ActionFlag
}

// Move is a single action targeting one cell.
type Move struct {
	Action Action `json:"action"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

// Decision is an agent's answer for one turn: between 1 and MaxBatchMoves
// moves, applied in order, with optional free-form reasoning.
type Decision struct {
	Moves     []Move `json:"moves"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Request carries everything an agent needs to decide its next turn. Before
// the first move FirstMove is set and Board/Grid are empty, because the board
// does not exist until the opening move names a cell. Feedback describes what
// happened to the previous response: a validation error, or how much of a
// batch was applied before execution stopped.
type Request struct {
	BattleID  string
	AgentID   string
	Config    board.Config
	Turn      int
	Board     string // compact encoding, one character per cell
	Grid      string // labeled rendering with row and column indices
	FirstMove bool
	Feedback  string
}

// Mover produces the moves for one turn. Implementations are driven by a
// single goroutine per battle and need not be safe for concurrent use.
type Mover interface {
	ProposeMoves(ctx context.Context, req Request) (Decision, error)
}

// MoverFunc adapts a plain function to the Mover interface.
type MoverFunc func(ctx context.Context, req Request) (Decision, error)

// ProposeMoves implements Mover.
func (f MoverFunc) ProposeMoves(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}
