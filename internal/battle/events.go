package battle

import (
	"time"

	"minearena/internal/agent"
	"minearena/internal/board"
)

// Event type constants. These are the names pushed to stream subscribers, so
// they match the wire protocol rather than an internal naming scheme.
const (
	TypeInit     = "init"
	TypeMove     = "move"
	TypeComplete = "complete"
	TypeDone     = "done"
	TypeError    = "error"
)

// Event is the base interface for everything emitted during a battle.
type Event interface {
	// Type returns the event name used for dispatch and on the wire.
	Type() string
	// Timestamp returns when the event occurred.
	Timestamp() time.Time
	// BattleID returns the battle this event belongs to.
	BattleID() string
}

// Listener receives events fanned out by the store.
type Listener func(Event)

// BaseEvent provides the common fields of every event.
type BaseEvent struct {
	EventType string    `json:"type"`
	Time      time.Time `json:"timestamp"`
	Battle    string    `json:"battleId"`
}

// Type implements Event.
func (e BaseEvent) Type() string { return e.EventType }

// Timestamp implements Event.
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// BattleID implements Event.
func (e BaseEvent) BattleID() string { return e.Battle }

func newBaseEvent(eventType, battleID string) BaseEvent {
	return BaseEvent{EventType: eventType, Time: time.Now(), Battle: battleID}
}

// InitEvent announces that a battle has started running.
type InitEvent struct {
	BaseEvent
	Config   board.Config `json:"config"`
	AgentIDs []string     `json:"agentIds"`
}

// NewInitEvent creates an InitEvent.
func NewInitEvent(battleID string, cfg board.Config, agentIDs []string) *InitEvent {
	return &InitEvent{
		BaseEvent: newBaseEvent(TypeInit, battleID),
		Config:    cfg,
		AgentIDs:  agentIDs,
	}
}

// MoveEvent reports one applied move: the action taken, the full board after
// it, and the cells that changed. Catch-up projections synthesize moves with
// Row and Col set to -1 and an empty action.
type MoveEvent struct {
	BaseEvent
	AgentID string            `json:"agentId"`
	Action  agent.Action      `json:"action,omitempty"`
	Row     int               `json:"row"`
	Col     int               `json:"col"`
	Board   string            `json:"board"`
	Delta   []board.CellDelta `json:"delta"`
}

// NewMoveEvent creates a MoveEvent.
func NewMoveEvent(battleID, agentID string, action agent.Action, row, col int, encoded string, delta []board.CellDelta) *MoveEvent {
	return &MoveEvent{
		BaseEvent: newBaseEvent(TypeMove, battleID),
		AgentID:   agentID,
		Action:    action,
		Row:       row,
		Col:       col,
		Board:     encoded,
		Delta:     delta,
	}
}

// CompleteEvent reports one agent's final outcome and stats.
type CompleteEvent struct {
	BaseEvent
	AgentID      string  `json:"agentId"`
	Outcome      Outcome `json:"outcome"`
	Moves        int     `json:"moves"`
	SafeRevealed int     `json:"safeRevealed"`
	MinesHit     int     `json:"minesHit"`
	DurationMs   int64   `json:"durationMs"`
}

// NewCompleteEvent creates a CompleteEvent from an agent's run stats.
func NewCompleteEvent(battleID, agentID string, stats RunStats) *CompleteEvent {
	return &CompleteEvent{
		BaseEvent:    newBaseEvent(TypeComplete, battleID),
		AgentID:      agentID,
		Outcome:      stats.Outcome,
		Moves:        stats.Moves,
		SafeRevealed: stats.SafeRevealed,
		MinesHit:     stats.MinesHit,
		DurationMs:   stats.Duration.Milliseconds(),
	}
}

// DoneEvent closes a battle with the final rankings. It is always the last
// event a battle emits.
type DoneEvent struct {
	BaseEvent
	Rankings []Result `json:"rankings"`
}

// NewDoneEvent creates a DoneEvent.
func NewDoneEvent(battleID string, rankings []Result) *DoneEvent {
	return &DoneEvent{
		BaseEvent: newBaseEvent(TypeDone, battleID),
		Rankings:  rankings,
	}
}

// ErrorEvent broadcasts a problem to subscribers without mutating state.
// Code is a short machine-readable classification of the failure.
type ErrorEvent struct {
	BaseEvent
	AgentID string `json:"agentId,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewErrorEvent creates an ErrorEvent. agentID may be empty for battle-level
// problems.
func NewErrorEvent(battleID, agentID, code, message string) *ErrorEvent {
	return &ErrorEvent{
		BaseEvent: newBaseEvent(TypeError, battleID),
		AgentID:   agentID,
		Code:      code,
		Message:   message,
	}
}
