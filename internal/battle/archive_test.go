package battle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minearena/internal/agent"
	"minearena/internal/board"
	"minearena/internal/persist"
	"minearena/internal/testutil"
)

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	arch := NewArchive(persist.NewMemoryRecorder(), testutil.NopLogger())
	cfg := board.Config{Rows: 2, Cols: 2, Mines: 1}

	b := newBattle("battle-1", cfg, []string{"alpha"}, 42)
	require.NoError(t, arch.SaveMeta(ctx, b, nil))

	// Saved out of order; reads must come back by sequence.
	require.NoError(t, arch.SaveFrame(ctx, "battle-1", "alpha", Frame{
		Seq: 2, Action: agent.ActionFlag, Row: 1, Col: 1, Board: "1H\nHF",
	}))
	require.NoError(t, arch.SaveFrame(ctx, "battle-1", "alpha", Frame{
		Seq: 1, Action: agent.ActionReveal, Row: 0, Col: 0, Board: "1H\nHH",
		Delta: []board.CellDelta{{Row: 0, Col: 0, Value: "1"}},
	}))
	require.NoError(t, arch.SaveResult(ctx, "battle-1", Result{
		AgentID: "alpha", Outcome: OutcomeStuck, Score: 33, Moves: 2, SafeRevealed: 1, TotalSafe: 3,
	}))

	replay, err := arch.LoadReplay(ctx, "battle-1")
	require.NoError(t, err)

	assert.Equal(t, "battle-1", replay.Summary.ID)
	assert.Equal(t, cfg, replay.Summary.Config)
	assert.Equal(t, int64(42), replay.Summary.Seed)
	assert.Nil(t, replay.Summary.CompletedAt, "the battle has not finished")

	frames := replay.Frames["alpha"]
	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].Seq)
	assert.Equal(t, agent.ActionReveal, frames[0].Action)
	assert.Equal(t, []board.CellDelta{{Row: 0, Col: 0, Value: "1"}}, frames[0].Delta)
	assert.Equal(t, 2, frames[1].Seq)

	require.Len(t, replay.Results, 1)
	assert.Equal(t, OutcomeStuck, replay.Results[0].Outcome)
	assert.Equal(t, 33, replay.Results[0].Score)
}

func TestArchiveLoadReplayMissing(t *testing.T) {
	arch := NewArchive(persist.NewMemoryRecorder(), testutil.NopLogger())

	_, err := arch.LoadReplay(context.Background(), "never-saved")
	assert.ErrorIs(t, err, persist.ErrNotFound)
}

func TestArchiveCompletion(t *testing.T) {
	ctx := context.Background()
	arch := NewArchive(persist.NewMemoryRecorder(), testutil.NopLogger())
	cfg := board.Config{Rows: 2, Cols: 2, Mines: 1}

	b := newBattle("battle-1", cfg, []string{"alpha"}, 42)
	b.Status = StatusComplete
	b.Rankings = []Result{{AgentID: "alpha", Outcome: OutcomeWin, Score: 100}}
	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, arch.SaveCompletion(ctx, b, completedAt))

	replay, err := arch.LoadReplay(ctx, "battle-1")
	require.NoError(t, err)
	require.NotNil(t, replay.Summary.CompletedAt)
	assert.True(t, replay.Summary.CompletedAt.Equal(completedAt))
	require.Len(t, replay.Summary.Rankings, 1)
	assert.Equal(t, 100, replay.Summary.Rankings[0].Score)

	summaries, total, err := arch.ListCompleted(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, "battle-1", summaries[0].ID)
}

func TestArchiveListCompletedPagination(t *testing.T) {
	ctx := context.Background()
	arch := NewArchive(persist.NewMemoryRecorder(), testutil.NopLogger())
	cfg := board.Config{Rows: 2, Cols: 2, Mines: 1}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		b := newBattle(fmt.Sprintf("battle-%d", i), cfg, []string{"alpha"}, 1)
		b.Status = StatusComplete
		require.NoError(t, arch.SaveCompletion(ctx, b, base.Add(time.Duration(i)*time.Minute)))
	}

	ids := func(summaries []Summary) []string {
		out := make([]string, len(summaries))
		for i, s := range summaries {
			out[i] = s.ID
		}
		return out
	}

	page, total, err := arch.ListCompleted(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, []string{"battle-4", "battle-3"}, ids(page), "newest battles come first")

	page, _, err = arch.ListCompleted(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"battle-2", "battle-1"}, ids(page))

	page, _, err = arch.ListCompleted(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"battle-0"}, ids(page))

	page, total, err = arch.ListCompleted(ctx, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, page)

	page, _, err = arch.ListCompleted(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page)
}
