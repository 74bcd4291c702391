package battle

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"minearena/internal/agent"
	"minearena/internal/board"
)

// MoverFactory builds the mover for one agent slot. It is called once per
// agent when the battle starts; a failure marks that agent's run as errored
// without touching the others.
type MoverFactory func(agentID string) (agent.Mover, error)

// Orchestrator plays a battle to completion: every agent runs concurrently
// against its own copy of the board, and the battle's event stream is
// published through the store as the runs progress.
type Orchestrator struct {
	store   *Store
	factory MoverFactory
	base    zerolog.Logger
	logger  zerolog.Logger
}

func NewOrchestrator(store *Store, factory MoverFactory, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		factory: factory,
		base:    logger,
		logger:  logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run drives the battle from pending to complete. It emits init, runs the
// agents, emits a complete event as each finishes, and finally emits a
// single done event carrying the rankings. It returns once done is emitted.
func (o *Orchestrator) Run(ctx context.Context, battleID string) error {
	b, err := o.store.Get(battleID)
	if err != nil {
		return err
	}
	if b.Status != StatusPending {
		return fmt.Errorf("battle %s already started", battleID)
	}

	if err := o.store.Emit(battleID, NewInitEvent(battleID, b.Config, b.AgentIDs)); err != nil {
		return err
	}
	o.logger.Info().
		Str("battle_id", battleID).
		Int("agents", len(b.AgentIDs)).
		Int64("seed", b.Seed).
		Msg("Battle started")

	results := make([]Result, len(b.AgentIDs))
	var wg sync.WaitGroup
	for i, agentID := range b.AgentIDs {
		wg.Add(1)
		go func(slot int, agentID string) {
			defer wg.Done()
			stats := o.runAgent(ctx, b, agentID)
			if err := o.store.Emit(battleID, NewCompleteEvent(battleID, agentID, stats)); err != nil {
				o.logger.Error().
					Err(err).
					Str("battle_id", battleID).
					Str("agent_id", agentID).
					Msg("Failed to emit complete event")
			}
			results[slot] = Result{
				AgentID:      agentID,
				Outcome:      stats.Outcome,
				Score:        Score(stats.Outcome, stats.SafeRevealed, stats.Moves, stats.MinesHit, b.Config),
				Moves:        stats.Moves,
				SafeRevealed: stats.SafeRevealed,
				MinesHit:     stats.MinesHit,
				TotalSafe:    b.Config.TotalSafe(),
				DurationMs:   stats.Duration.Milliseconds(),
			}
		}(i, agentID)
	}
	wg.Wait()

	SortResults(results)
	if err := o.store.Emit(battleID, NewDoneEvent(battleID, results)); err != nil {
		return err
	}
	o.logger.Info().
		Str("battle_id", battleID).
		Str("top_agent", results[0].AgentID).
		Int("top_score", results[0].Score).
		Msg("Battle finished")
	return nil
}

// runAgent builds one agent's mover and drives its run. Panics and factory
// failures become an errored run with zero stats so the rest of the battle
// is unaffected.
func (o *Orchestrator) runAgent(ctx context.Context, b *Battle, agentID string) (stats RunStats) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("battle_id", b.ID).
				Str("agent_id", agentID).
				Interface("panic", r).
				Msg("Agent run panicked")
			o.emitError(b.ID, agentID, "agent_panic", fmt.Sprintf("agent panicked: %v", r))
			stats = RunStats{Outcome: OutcomeError}
		}
	}()

	mover, err := o.factory(agentID)
	if err != nil {
		o.logger.Error().
			Err(err).
			Str("battle_id", b.ID).
			Str("agent_id", agentID).
			Msg("Failed to build agent")
		o.emitError(b.ID, agentID, "agent_init_failed", err.Error())
		return RunStats{Outcome: OutcomeError}
	}

	runner := NewRunner(RunnerConfig{
		BattleID: b.ID,
		AgentID:  agentID,
		Config:   b.Config,
		Seed:     b.Seed,
		Mover:    mover,
		OnMove: func(agentID string, mv agent.Move, prev, curr *board.Board) {
			ev := NewMoveEvent(b.ID, agentID, mv.Action, mv.Row, mv.Col, curr.Encode(), board.Diff(prev, curr))
			if err := o.store.Emit(b.ID, ev); err != nil {
				o.logger.Warn().
					Err(err).
					Str("battle_id", b.ID).
					Str("agent_id", agentID).
					Msg("Failed to emit move event")
			}
		},
		Logger: o.base,
	})
	return runner.Run(ctx)
}

func (o *Orchestrator) emitError(battleID, agentID, code, message string) {
	if err := o.store.Emit(battleID, NewErrorEvent(battleID, agentID, code, message)); err != nil {
		o.logger.Warn().
			Err(err).
			Str("battle_id", battleID).
			Msg("Failed to emit error event")
	}
}
