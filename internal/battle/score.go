package battle

import (
	"math"
	"sort"

	"minearena/internal/board"
)

// Scoring constants. Winners pay a small efficiency tax per move after the
// first; everyone else pays a flat penalty per mine hit.
const (
	winMovePenalty = 0.5
	minePenalty    = 50.0
)

// Score computes an agent's final score on a 0-100-ish scale: the percentage
// of safe cells revealed, minus the outcome's penalty, clamped at zero and
// rounded half away from zero.
func Score(outcome Outcome, safeRevealed, moves, minesHit int, cfg board.Config) int {
	totalSafe := cfg.TotalSafe()
	if totalSafe <= 0 {
		return 0
	}
	ratio := float64(safeRevealed) / float64(totalSafe)

	var score float64
	if outcome == OutcomeWin {
		score = 100*ratio - winMovePenalty*float64(moves-1)
	} else {
		score = 100*ratio - minePenalty*float64(minesHit)
	}
	if score < 0 {
		return 0
	}
	return int(math.Round(score))
}

// SortResults orders results for ranking: score descending, then outcome
// priority, then fewer moves, then shorter duration. The sort is stable, so
// full ties keep their insertion order.
func SortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Outcome.Priority() != b.Outcome.Priority() {
			return a.Outcome.Priority() < b.Outcome.Priority()
		}
		if a.Moves != b.Moves {
			return a.Moves < b.Moves
		}
		return a.DurationMs < b.DurationMs
	})
}
