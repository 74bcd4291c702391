// Package battle holds the arena core: the event model, the in-memory state
// store, the per-agent turn loop, the orchestrator that races agents against
// each other, scoring, and the persistence schema. State changes flow through
// events only, so a battle can always be rebuilt by replaying its stream.
package battle

import (
	"time"

	"minearena/internal/board"
)

// Status is the lifecycle of a battle as a whole.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
)

// CanTransitionTo reports whether the lifecycle allows moving to target.
// Battles only move forward: pending to running to complete.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusRunning
	case StatusRunning:
		return target == StatusComplete
	default:
		return false
	}
}

// Outcome is how one agent's run ended, or OutcomePlaying while it has not.
type Outcome string

const (
	OutcomePlaying Outcome = "playing"
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeStuck   Outcome = "stuck"
	OutcomeError   Outcome = "error"
)

// Terminal reports whether the outcome ends an agent's run.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeWin, OutcomeLoss, OutcomeStuck, OutcomeError:
		return true
	}
	return false
}

// Priority orders outcomes for ranking ties: winning beats running out of
// moves beats losing beats erroring beats still playing.
func (o Outcome) Priority() int {
	switch o {
	case OutcomeWin:
		return 1
	case OutcomeStuck:
		return 2
	case OutcomeLoss:
		return 3
	case OutcomeError:
		return 4
	default:
		return 5
	}
}

// AgentStatus is the lifecycle of a single agent inside a battle.
type AgentStatus string

const (
	AgentPending  AgentStatus = "pending"
	AgentPlaying  AgentStatus = "playing"
	AgentComplete AgentStatus = "complete"
)

// AgentState is one agent's view of the battle: its current and previous
// encoded boards plus running stats. Only event application mutates it.
type AgentState struct {
	Status       AgentStatus `json:"status"`
	Outcome      Outcome     `json:"outcome"`
	Board        string      `json:"board,omitempty"`
	PrevBoard    string      `json:"prevBoard,omitempty"`
	Moves        int         `json:"moves"`
	SafeRevealed int         `json:"safeRevealed"`
	MinesHit     int         `json:"minesHit"`
	Score        int         `json:"score"`
	DurationMs   int64       `json:"durationMs"`
}

// Result is one agent's final ranked line: outcome, score, and the stats the
// score was computed from.
type Result struct {
	AgentID      string  `json:"agentId"`
	Outcome      Outcome `json:"outcome"`
	Score        int     `json:"score"`
	Moves        int     `json:"moves"`
	SafeRevealed int     `json:"safeRevealed"`
	MinesHit     int     `json:"minesHit"`
	TotalSafe    int     `json:"totalSafe"`
	DurationMs   int64   `json:"durationMs"`
}

// Battle is the event-sourced aggregate for one battle.
type Battle struct {
	ID        string                 `json:"id"`
	Status    Status                 `json:"status"`
	Config    board.Config           `json:"config"`
	Seed      int64                  `json:"seed"`
	AgentIDs  []string               `json:"agentIds"`
	Agents    map[string]*AgentState `json:"agents"`
	Rankings  []Result               `json:"rankings,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

func newBattle(id string, cfg board.Config, agentIDs []string, seed int64) *Battle {
	b := &Battle{
		ID:        id,
		Status:    StatusPending,
		Config:    cfg,
		Seed:      seed,
		AgentIDs:  append([]string(nil), agentIDs...),
		Agents:    make(map[string]*AgentState, len(agentIDs)),
		CreatedAt: time.Now(),
	}
	for _, agentID := range agentIDs {
		b.Agents[agentID] = &AgentState{Status: AgentPending, Outcome: OutcomePlaying}
	}
	return b
}

// Apply folds one event into the aggregate. Events for unknown agents are
// ignored rather than creating state out of thin air.
func (b *Battle) Apply(ev Event) {
	switch e := ev.(type) {
	case *InitEvent:
		b.Status = StatusRunning
		for _, state := range b.Agents {
			state.Status = AgentPlaying
		}
	case *MoveEvent:
		state, ok := b.Agents[e.AgentID]
		if !ok {
			return
		}
		state.PrevBoard = state.Board
		state.Board = e.Board
		state.Moves++
	case *CompleteEvent:
		state, ok := b.Agents[e.AgentID]
		if !ok {
			return
		}
		state.Status = AgentComplete
		state.Outcome = e.Outcome
		state.Moves = e.Moves
		state.SafeRevealed = e.SafeRevealed
		state.MinesHit = e.MinesHit
		state.DurationMs = e.DurationMs
		state.Score = Score(e.Outcome, e.SafeRevealed, e.Moves, e.MinesHit, b.Config)
	case *DoneEvent:
		b.Status = StatusComplete
		b.Rankings = append([]Result(nil), e.Rankings...)
	case *ErrorEvent:
		// Broadcast only; no state change.
	}
}

// Replay rebuilds a battle from its event stream. The stream must begin with
// the InitEvent; nil is returned otherwise.
func Replay(events []Event) *Battle {
	if len(events) == 0 {
		return nil
	}
	init, ok := events[0].(*InitEvent)
	if !ok {
		return nil
	}
	b := newBattle(init.BattleID(), init.Config, init.AgentIDs, 0)
	b.CreatedAt = init.Timestamp()
	for _, ev := range events {
		b.Apply(ev)
	}
	return b
}

// Clone returns a deep copy sharing no mutable memory with the receiver.
func (b *Battle) Clone() *Battle {
	if b == nil {
		return nil
	}
	dup := *b
	dup.AgentIDs = append([]string(nil), b.AgentIDs...)
	dup.Rankings = append([]Result(nil), b.Rankings...)
	dup.Agents = make(map[string]*AgentState, len(b.Agents))
	for id, state := range b.Agents {
		s := *state
		dup.Agents[id] = &s
	}
	return &dup
}

// CatchUpEvents projects the current state into the minimal event sequence a
// late subscriber needs: init if the battle started, one synthetic move per
// agent carrying its latest board as a full delta, a complete per finished
// agent, and done if the battle is over. The projection is derived, so
// delivering it has no side effects on state or persistence.
func (b *Battle) CatchUpEvents() []Event {
	if b.Status == StatusPending {
		return nil
	}
	events := []Event{NewInitEvent(b.ID, b.Config, b.AgentIDs)}
	for _, agentID := range b.AgentIDs {
		state := b.Agents[agentID]
		if state.Board != "" {
			delta := board.DecodeDelta(state.Board, b.Config.Rows, b.Config.Cols)
			events = append(events, NewMoveEvent(b.ID, agentID, "", -1, -1, state.Board, delta))
		}
	}
	for _, agentID := range b.AgentIDs {
		state := b.Agents[agentID]
		if state.Status != AgentComplete {
			continue
		}
		events = append(events, &CompleteEvent{
			BaseEvent:    newBaseEvent(TypeComplete, b.ID),
			AgentID:      agentID,
			Outcome:      state.Outcome,
			Moves:        state.Moves,
			SafeRevealed: state.SafeRevealed,
			MinesHit:     state.MinesHit,
			DurationMs:   state.DurationMs,
		})
	}
	if b.Status == StatusComplete {
		events = append(events, NewDoneEvent(b.ID, b.Rankings))
	}
	return events
}
