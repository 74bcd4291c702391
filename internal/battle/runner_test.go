package battle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minearena/internal/agent"
	"minearena/internal/board"
	"minearena/internal/testutil"
)

func newTestRunner(cfg board.Config, seed int64, mover agent.Mover, onMove MoveFunc) *Runner {
	return NewRunner(RunnerConfig{
		BattleID: "battle-1",
		AgentID:  "bot",
		Config:   cfg,
		Seed:     seed,
		Mover:    mover,
		OnMove:   onMove,
		Logger:   testutil.NopLogger(),
	})
}

func TestRunnerWinsTinyBoard(t *testing.T) {
	mover := testutil.NewScriptedMover(testutil.Reveal(0, 0))
	runner := newTestRunner(testutil.TinyConfig(), 1, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, OutcomeWin, stats.Outcome)
	assert.Equal(t, 1, stats.Moves)
	assert.Equal(t, 1, stats.SafeRevealed)
	assert.Equal(t, 0, stats.MinesHit)
	assert.Equal(t, 1, mover.Calls(), "a won run should stop calling the agent")
}

func TestRunnerFloodFillWin(t *testing.T) {
	cfg := board.Config{Rows: 2, Cols: 2, Mines: 0}
	mover := testutil.NewScriptedMover(testutil.Reveal(0, 0))
	runner := newTestRunner(cfg, 1, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, OutcomeWin, stats.Outcome)
	assert.Equal(t, 1, stats.Moves)
	assert.Equal(t, 4, stats.SafeRevealed, "flood fill should open the whole mine-free board")
}

func TestRunnerRetryExhaustion(t *testing.T) {
	calls := 0
	mover := agent.MoverFunc(func(context.Context, agent.Request) (agent.Decision, error) {
		calls++
		return agent.Decision{}, errors.New("model offline")
	})
	runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, OutcomeError, stats.Outcome)
	assert.Equal(t, 0, stats.Moves)
	assert.Equal(t, 0, stats.SafeRevealed)
	assert.Equal(t, 1+MaxRetries, calls, "initial call plus each retry")
}

func TestRunnerStuckAtMoveCap(t *testing.T) {
	toggle := false
	mover := agent.MoverFunc(func(context.Context, agent.Request) (agent.Decision, error) {
		toggle = !toggle
		if toggle {
			return testutil.Flag(0, 0), nil
		}
		return testutil.Flag(0, 1), nil
	})
	runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, OutcomeStuck, stats.Outcome)
	assert.Equal(t, MaxMoves, stats.Moves)
	assert.Equal(t, 0, stats.SafeRevealed, "flagging reveals nothing")
}

func TestRunnerFirstMoveNeverHitsMine(t *testing.T) {
	// Only one scripted move; the run then errors out of retries, keeping
	// the stats accumulated before the failures.
	for seed := int64(0); seed < 25; seed++ {
		mover := testutil.NewScriptedMover(testutil.Reveal(4, 4))
		runner := newTestRunner(testutil.BeginnerConfig(), seed, mover, nil)

		stats := runner.Run(context.Background())

		require.Equal(t, 0, stats.MinesHit, "seed %d mined the opening cell", seed)
		require.Equal(t, OutcomeError, stats.Outcome)
		require.Equal(t, 1, stats.Moves)
		require.GreaterOrEqual(t, stats.SafeRevealed, 1)
	}
}

func TestRunnerLazyBoard(t *testing.T) {
	mover := testutil.NewScriptedMover(testutil.Reveal(4, 4), testutil.Flag(0, 0))
	runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

	runner.Run(context.Background())

	requests := mover.Requests()
	require.GreaterOrEqual(t, len(requests), 2)

	first := requests[0]
	assert.True(t, first.FirstMove)
	assert.Empty(t, first.Board, "no board exists before the first move")
	assert.Empty(t, first.Grid)
	assert.Equal(t, 1, first.Turn)

	second := requests[1]
	assert.False(t, second.FirstMove)
	assert.NotEmpty(t, second.Board)
	assert.NotEmpty(t, second.Grid)
	assert.Equal(t, 2, second.Turn)
}

func TestRunnerBatchStopsAtMine(t *testing.T) {
	cfg := board.Config{Rows: 3, Cols: 3, Mines: 1}
	seed := int64(7)
	center := board.Position{Row: 1, Col: 1}
	mine := board.GeneratePositions(cfg, seed, &center)[0]

	mover := testutil.NewScriptedMover(testutil.Batch(
		agent.Move{Action: agent.ActionReveal, Row: 1, Col: 1},
		agent.Move{Action: agent.ActionReveal, Row: mine.Row, Col: mine.Col},
		agent.Move{Action: agent.ActionFlag, Row: 0, Col: 0},
	))
	runner := newTestRunner(cfg, seed, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, OutcomeLoss, stats.Outcome)
	assert.Equal(t, 2, stats.Moves, "the move after the mine must not apply")
	assert.Equal(t, 1, stats.MinesHit)
	assert.Equal(t, 1, stats.SafeRevealed)
	assert.Equal(t, 1, mover.Calls())
}

func TestRunnerBatchStopsAtInvalidMove(t *testing.T) {
	cfg := board.Config{Rows: 3, Cols: 3, Mines: 1}
	mover := testutil.NewScriptedMover(
		testutil.Reveal(1, 1),
		testutil.Batch(
			agent.Move{Action: agent.ActionFlag, Row: 0, Col: 0},
			agent.Move{Action: agent.ActionReveal, Row: 1, Col: 1}, // already revealed
			agent.Move{Action: agent.ActionFlag, Row: 2, Col: 2},
		),
		testutil.Flag(0, 1),
	)
	runner := newTestRunner(cfg, 7, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, 3, stats.Moves, "reveal, one flag from the batch, final flag")
	assert.Equal(t, OutcomeError, stats.Outcome, "script exhaustion ends the run")

	requests := mover.Requests()
	require.GreaterOrEqual(t, len(requests), 3)
	assert.Contains(t, requests[2].Feedback, "Applied 1 of 3 moves")
	assert.Contains(t, requests[2].Feedback, "already revealed")
}

func TestRunnerRejectsBadBatches(t *testing.T) {
	t.Run("out of bounds first move", func(t *testing.T) {
		mover := testutil.NewScriptedMover(
			testutil.Reveal(9, 0),
			testutil.Reveal(4, 4),
		)
		runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

		stats := runner.Run(context.Background())

		assert.Equal(t, 1, stats.Moves, "only the corrected move applies")
		requests := mover.Requests()
		require.GreaterOrEqual(t, len(requests), 2)
		assert.Contains(t, requests[1].Feedback, "Move rejected")
		assert.Contains(t, requests[1].Feedback, "outside the 9x9 board")
	})

	t.Run("unknown action", func(t *testing.T) {
		mover := testutil.NewScriptedMover(
			testutil.Batch(agent.Move{Action: "detonate", Row: 0, Col: 0}),
			testutil.Reveal(4, 4),
		)
		runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

		runner.Run(context.Background())

		requests := mover.Requests()
		require.GreaterOrEqual(t, len(requests), 2)
		assert.Contains(t, requests[1].Feedback, `unknown action "detonate"`)
	})

	t.Run("oversized batch", func(t *testing.T) {
		var moves []agent.Move
		for i := 0; i <= agent.MaxBatchMoves; i++ {
			moves = append(moves, agent.Move{Action: agent.ActionFlag, Row: i / 9, Col: i % 9})
		}
		mover := testutil.NewScriptedMover(testutil.Batch(moves...))
		runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

		stats := runner.Run(context.Background())

		assert.Equal(t, 0, stats.Moves)
		requests := mover.Requests()
		require.GreaterOrEqual(t, len(requests), 2)
		assert.Contains(t, requests[1].Feedback, "too many moves")
	})
}

func TestRunnerFlagToggleAndWin(t *testing.T) {
	cfg := board.Config{Rows: 2, Cols: 2, Mines: 0}
	mover := testutil.NewScriptedMover(
		testutil.Flag(0, 0),
		testutil.Reveal(1, 1), // flood fill opens everything except the flag
		testutil.Flag(0, 0),   // unflag
		testutil.Reveal(0, 0),
	)
	runner := newTestRunner(cfg, 1, mover, nil)

	stats := runner.Run(context.Background())

	assert.Equal(t, OutcomeWin, stats.Outcome)
	assert.Equal(t, 4, stats.Moves)
	assert.Equal(t, 4, stats.SafeRevealed)
}

func TestRunnerCallbackGetsSnapshots(t *testing.T) {
	cfg := board.Config{Rows: 2, Cols: 2, Mines: 0}
	var prevBoards, currBoards []string
	onMove := func(agentID string, mv agent.Move, prev, curr *board.Board) {
		prevBoards = append(prevBoards, prev.Encode())
		currBoards = append(currBoards, curr.Encode())
		// Vandalize the copies; the runner must not notice.
		prev.Cells[0].Revealed = true
		curr.Cells[len(curr.Cells)-1].Flagged = true
	}

	mover := testutil.NewScriptedMover(
		testutil.Flag(0, 0),
		testutil.Flag(0, 1),
		testutil.Flag(0, 0),
	)
	runner := newTestRunner(cfg, 1, mover, onMove)

	runner.Run(context.Background())

	require.Len(t, prevBoards, 3)
	assert.Equal(t, "HH\nHH", prevBoards[0])
	assert.Equal(t, "FH\nHH", currBoards[0])
	assert.Equal(t, currBoards[0], prevBoards[1], "each prev should equal the last curr")
	assert.Equal(t, "FF\nHH", currBoards[1])
	assert.Equal(t, currBoards[1], prevBoards[2])
	assert.Equal(t, "HF\nHH", currBoards[2], "callback mutations must not leak back")
}

func TestRunnerContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mover := testutil.NewScriptedMover(testutil.Reveal(0, 0))
	runner := newTestRunner(testutil.BeginnerConfig(), 1, mover, nil)

	stats := runner.Run(ctx)

	assert.Equal(t, OutcomeError, stats.Outcome)
	assert.Equal(t, 0, stats.Moves)
	assert.Equal(t, 0, mover.Calls())
}
