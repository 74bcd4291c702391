// Package board implements the minesweeper board engine: deterministic mine
// placement, reveal/flag mechanics with flood fill, and the wire encodings
// used by battles.
package board

import (
	"math/rand"
	"time"
)

// Position identifies a cell by zero-based row and column.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Config describes the dimensions and mine count of a board.
type Config struct {
	Rows  int `json:"rows"`
	Cols  int `json:"cols"`
	Mines int `json:"mineCount"`
}

// Validate checks the structural invariants every board must satisfy.
// Zero mines is legal; a board with no safe cell is not.
func (c Config) Validate() error {
	if c.Rows < 1 || c.Cols < 1 {
		return ErrInvalidDimensions
	}
	if c.Mines < 0 {
		return ErrNegativeMineCount
	}
	if c.Mines >= c.Rows*c.Cols {
		return ErrTooManyMines
	}
	return nil
}

// TotalSafe returns the number of non-mine cells the config implies.
func (c Config) TotalSafe() int {
	return c.Rows*c.Cols - c.Mines
}

// Cell is a single square on the board.
type Cell struct {
	Mine     bool
	Revealed bool
	Flagged  bool
	Adjacent int // mines in the 8-neighborhood; always 0 for mine cells
}

// Board is a minesweeper grid. Cells is row-major with length Rows*Cols.
type Board struct {
	Config
	Cells []Cell
}

// New creates a board with mines at exactly the given positions and
// adjacency counts computed. Out-of-range positions are ignored.
func New(cfg Config, mines []Position) *Board {
	b := &Board{Config: cfg, Cells: make([]Cell, cfg.Rows*cfg.Cols)}
	for _, p := range mines {
		if b.InBounds(p.Row, p.Col) {
			b.Cells[b.idx(p.Row, p.Col)].Mine = true
		}
	}
	b.computeAdjacency()
	return b
}

// NewRandom creates a board with cfg.Mines mines placed uniformly at random,
// avoiding only the given cell if any. A nil rng falls back to a time-seeded
// source; use New with GeneratePositions when reproducibility matters.
func NewRandom(cfg Config, avoid *Position, rng *rand.Rand) *Board {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	candidates := make([]Position, 0, cfg.Rows*cfg.Cols)
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			if avoid != nil && avoid.Row == r && avoid.Col == c {
				continue
			}
			candidates = append(candidates, Position{Row: r, Col: c})
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if cfg.Mines < len(candidates) {
		candidates = candidates[:cfg.Mines]
	}
	return New(cfg, candidates)
}

func (b *Board) idx(row, col int) int { return row*b.Cols + col }

// InBounds checks whether the coordinates fall on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.Rows && col >= 0 && col < b.Cols
}

// At returns a pointer to the cell at the given coordinates, or nil when out
// of bounds.
func (b *Board) At(row, col int) *Cell {
	if !b.InBounds(row, col) {
		return nil
	}
	return &b.Cells[b.idx(row, col)]
}

func (b *Board) computeAdjacency() {
	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			if b.Cells[b.idx(r, c)].Mine {
				continue
			}
			count := 0
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if n := b.At(r+dr, c+dc); n != nil && n.Mine {
						count++
					}
				}
			}
			b.Cells[b.idx(r, c)].Adjacent = count
		}
	}
}

// Reveal opens the cell at the given coordinates. It returns the number of
// safe cells newly revealed and whether a mine was hit. Revealing an already
// revealed or flagged cell is a no-op. Revealing a mine marks only that cell.
// Revealing a zero-adjacency cell flood-fills outward across the
// 8-neighborhood, never opening flagged or mine cells.
func (b *Board) Reveal(row, col int) (opened int, mine bool) {
	cell := b.At(row, col)
	if cell == nil || cell.Revealed || cell.Flagged {
		return 0, false
	}
	cell.Revealed = true
	if cell.Mine {
		return 0, true
	}
	opened = 1
	if cell.Adjacent != 0 {
		return opened, false
	}

	// Breadth-first expansion with an explicit queue; only zero-adjacency
	// cells propagate further.
	queue := []Position{{Row: row, Col: col}}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr == 0 && dc == 0 {
					continue
				}
				n := b.At(p.Row+dr, p.Col+dc)
				if n == nil || n.Revealed || n.Flagged || n.Mine {
					continue
				}
				n.Revealed = true
				opened++
				if n.Adjacent == 0 {
					queue = append(queue, Position{Row: p.Row + dr, Col: p.Col + dc})
				}
			}
		}
	}
	return opened, false
}

// ToggleFlag flips the flag on an unrevealed cell and reports whether the
// board changed. Revealed cells cannot be flagged.
func (b *Board) ToggleFlag(row, col int) bool {
	cell := b.At(row, col)
	if cell == nil || cell.Revealed {
		return false
	}
	cell.Flagged = !cell.Flagged
	return true
}

// Clone returns a deep copy sharing no memory with the receiver.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	dup := &Board{Config: b.Config, Cells: make([]Cell, len(b.Cells))}
	copy(dup.Cells, b.Cells)
	return dup
}

// MineCount returns the number of mines actually placed on the board.
func (b *Board) MineCount() int {
	count := 0
	for i := range b.Cells {
		if b.Cells[i].Mine {
			count++
		}
	}
	return count
}

// RevealedSafe returns the number of revealed non-mine cells.
func (b *Board) RevealedSafe() int {
	count := 0
	for i := range b.Cells {
		if b.Cells[i].Revealed && !b.Cells[i].Mine {
			count++
		}
	}
	return count
}
