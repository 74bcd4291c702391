package testutil

import (
	"context"
	"errors"
	"sync"

	"minearena/internal/agent"
	"minearena/internal/board"
)

// BeginnerConfig returns the classic 9x9 board with 10 mines
func BeginnerConfig() board.Config {
	return board.Config{Rows: 9, Cols: 9, Mines: 10}
}

// TinyConfig returns a 1x1 board with no mines, winnable in one reveal
func TinyConfig() board.Config {
	return board.Config{Rows: 1, Cols: 1, Mines: 0}
}

// ErrScriptExhausted is returned by a ScriptedMover once its decisions run out
var ErrScriptExhausted = errors.New("scripted mover has no moves left")

// ScriptedMover replays a fixed sequence of decisions and then fails with
// ErrScriptExhausted. It records every request it receives so tests can
// assert on turn numbers, boards, and feedback.
type ScriptedMover struct {
	mu        sync.Mutex
	decisions []agent.Decision
	next      int
	requests  []agent.Request
}

// NewScriptedMover creates a mover that plays the given decisions in order
func NewScriptedMover(decisions ...agent.Decision) *ScriptedMover {
	return &ScriptedMover{decisions: decisions}
}

// ProposeMoves implements agent.Mover.
func (m *ScriptedMover) ProposeMoves(_ context.Context, req agent.Request) (agent.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.next >= len(m.decisions) {
		return agent.Decision{}, ErrScriptExhausted
	}
	d := m.decisions[m.next]
	m.next++
	return d, nil
}

// Requests returns a copy of every request the mover has seen
func (m *ScriptedMover) Requests() []agent.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]agent.Request(nil), m.requests...)
}

// Calls returns how many times the mover was invoked
func (m *ScriptedMover) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Reveal builds a decision with a single reveal move
func Reveal(row, col int) agent.Decision {
	return agent.Decision{Moves: []agent.Move{{Action: agent.ActionReveal, Row: row, Col: col}}}
}

// Flag builds a decision with a single flag move
func Flag(row, col int) agent.Decision {
	return agent.Decision{Moves: []agent.Move{{Action: agent.ActionFlag, Row: row, Col: col}}}
}

// Batch builds a decision from the given moves
func Batch(moves ...agent.Move) agent.Decision {
	return agent.Decision{Moves: moves}
}
