package board

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRNG provides a random number generator with a fixed seed for deterministic tests.
func newTestRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func positionSet(positions []Position) map[Position]bool {
	set := make(map[Position]bool, len(positions))
	for _, p := range positions {
		set[p] = true
	}
	return set
}

func TestGeneratePositions_Deterministic(t *testing.T) {
	cfg := Config{Rows: 9, Cols: 9, Mines: 10}
	excluded := &Position{Row: 4, Col: 4}

	first := GeneratePositions(cfg, 12345, excluded)
	second := GeneratePositions(cfg, 12345, excluded)
	assert.Equal(t, first, second, "identical inputs must yield the identical sequence")

	other := GeneratePositions(cfg, 54321, excluded)
	assert.NotEqual(t, positionSet(first), positionSet(other), "a different seed should move the mines")
}

func TestGeneratePositions_CountAndUniqueness(t *testing.T) {
	cfg := Config{Rows: 9, Cols: 9, Mines: 10}
	positions := GeneratePositions(cfg, 7, nil)

	require.Len(t, positions, cfg.Mines)
	seen := make(map[Position]bool)
	for _, p := range positions {
		assert.True(t, p.Row >= 0 && p.Row < cfg.Rows, "row %d out of range", p.Row)
		assert.True(t, p.Col >= 0 && p.Col < cfg.Cols, "col %d out of range", p.Col)
		assert.False(t, seen[p], "duplicate mine position %v", p)
		seen[p] = true
	}
}

func TestGeneratePositions_ExclusionZone(t *testing.T) {
	cfg := Config{Rows: 9, Cols: 9, Mines: 10}
	excluded := Position{Row: 4, Col: 4}

	for seed := int64(0); seed < 20; seed++ {
		for _, p := range GeneratePositions(cfg, seed, &excluded) {
			inBlock := absDiff(p.Row, excluded.Row) <= 1 && absDiff(p.Col, excluded.Col) <= 1
			assert.False(t, inBlock, "seed %d placed a mine at %v inside the exclusion block", seed, p)
		}
	}
}

func TestGeneratePositions_DenseBoardFallback(t *testing.T) {
	// 3x3 with 7 mines cannot spare a whole 3x3 block, so only the clicked
	// cell itself is kept clear.
	cfg := Config{Rows: 3, Cols: 3, Mines: 7}
	excluded := Position{Row: 1, Col: 1}

	positions := GeneratePositions(cfg, 99, &excluded)
	require.Len(t, positions, cfg.Mines)
	assert.False(t, positionSet(positions)[excluded], "the clicked cell must never be mined")
}

func TestGeneratePositions_FirstRevealIsSafe(t *testing.T) {
	cfg := Config{Rows: 8, Cols: 8, Mines: 10}
	first := Position{Row: 2, Col: 5}

	b := New(cfg, GeneratePositions(cfg, 2024, &first))
	opened, mine := b.Reveal(first.Row, first.Col)
	assert.False(t, mine)
	assert.Greater(t, opened, 0)
}
