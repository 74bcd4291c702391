package board

import (
	"fmt"
	"strings"
)

// Single-character cell values used by the encodings.
const (
	HiddenChar = 'H'
	FlagChar   = 'F'
	MineChar   = 'M'
)

// CellDelta records one cell whose encoded value changed between two boards.
type CellDelta struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// visibleValue is the agent-facing projection of a cell: flag, hidden, or the
// adjacency digit. Revealed mines carry no digit of their own and project as
// '0'; Encode distinguishes them with MineChar.
func (b *Board) visibleValue(row, col int) byte {
	cell := &b.Cells[b.idx(row, col)]
	switch {
	case cell.Flagged:
		return FlagChar
	case !cell.Revealed:
		return HiddenChar
	default:
		return '0' + byte(cell.Adjacent)
	}
}

// encodedValue is visibleValue plus the revealed-mine marker.
func (b *Board) encodedValue(row, col int) byte {
	cell := &b.Cells[b.idx(row, col)]
	if cell.Revealed && cell.Mine {
		return MineChar
	}
	return b.visibleValue(row, col)
}

// VisibleGrid returns the agent-facing view, one byte per cell.
func (b *Board) VisibleGrid() [][]byte {
	grid := make([][]byte, b.Rows)
	for r := 0; r < b.Rows; r++ {
		grid[r] = make([]byte, b.Cols)
		for c := 0; c < b.Cols; c++ {
			grid[r][c] = b.visibleValue(r, c)
		}
	}
	return grid
}

// Encode renders the board as Rows lines of Cols characters joined by
// newlines, one character per cell: digits, FlagChar, HiddenChar, or
// MineChar for a revealed mine.
func (b *Board) Encode() string {
	var sb strings.Builder
	sb.Grow(b.Rows*b.Cols + b.Rows)
	for r := 0; r < b.Rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < b.Cols; c++ {
			sb.WriteByte(b.encodedValue(r, c))
		}
	}
	return sb.String()
}

// Decode parses an encoded board back into a grid of cell values. Cells that
// are missing or carry an unknown character decode to HiddenChar, so a
// truncated or corrupted payload still yields a full rows x cols grid.
func Decode(encoded string, rows, cols int) [][]byte {
	lines := strings.Split(encoded, "\n")
	grid := make([][]byte, rows)
	for r := 0; r < rows; r++ {
		grid[r] = make([]byte, cols)
		for c := 0; c < cols; c++ {
			v := byte(HiddenChar)
			if r < len(lines) && c < len(lines[r]) {
				if ch := lines[r][c]; isCellValue(ch) {
					v = ch
				}
			}
			grid[r][c] = v
		}
	}
	return grid
}

func isCellValue(ch byte) bool {
	return ch == HiddenChar || ch == FlagChar || ch == MineChar || (ch >= '0' && ch <= '8')
}

// Diff returns the cells whose encoded value differs between prev and curr.
// A nil prev is treated as an all-hidden board, so the result carries every
// non-hidden cell of curr. Diffing a board against itself yields nothing.
func Diff(prev, curr *Board) []CellDelta {
	var deltas []CellDelta
	for r := 0; r < curr.Rows; r++ {
		for c := 0; c < curr.Cols; c++ {
			v := curr.encodedValue(r, c)
			if prev == nil {
				if v == HiddenChar {
					continue
				}
			} else if prev.encodedValue(r, c) == v {
				continue
			}
			deltas = append(deltas, CellDelta{Row: r, Col: c, Value: string(v)})
		}
	}
	return deltas
}

// DecodeDelta returns an entry for every non-hidden cell of an encoded
// board, the full-board delta a late subscriber needs to reconstruct the
// current view.
func DecodeDelta(encoded string, rows, cols int) []CellDelta {
	var deltas []CellDelta
	grid := Decode(encoded, rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if grid[r][c] == HiddenChar {
				continue
			}
			deltas = append(deltas, CellDelta{Row: r, Col: c, Value: string(grid[r][c])})
		}
	}
	return deltas
}

// PromptGrid renders the agent-facing view with a column header line and
// row-index prefixes, the form sent to language models.
func (b *Board) PromptGrid() string {
	var sb strings.Builder

	sb.WriteString("   ")
	for c := 0; c < b.Cols; c++ {
		sb.WriteString(fmt.Sprintf("%3d", c))
	}
	sb.WriteByte('\n')

	for r := 0; r < b.Rows; r++ {
		sb.WriteString(fmt.Sprintf("%3d", r))
		for c := 0; c < b.Cols; c++ {
			sb.WriteString(fmt.Sprintf("  %c", b.visibleValue(r, c)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
