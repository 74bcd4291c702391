package board

// splitmix64 is a small bit-mixing generator with a fixed 2^64 sequence per
// seed. Battles share one seed so every agent's placement derives from the
// same stream.
type splitmix64 struct {
	state uint64
}

func newSplitmix64(seed int64) *splitmix64 {
	return &splitmix64{state: uint64(seed)}
}

func (s *splitmix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// intn returns a value in [0, n). n must be positive.
func (s *splitmix64) intn(n int) int {
	return int(s.next() % uint64(n))
}

// GeneratePositions returns cfg.Mines mine positions derived deterministically
// from the seed: the legal cells are shuffled with a Fisher-Yates pass driven
// by a splitmix64 stream and the prefix is taken. Identical inputs always
// produce the identical set.
//
// When excluded is given, the 3x3 block centered on it is kept mine-free. If
// the board is too dense to spare the whole block, the exclusion degrades to
// the center cell alone, which is never mined.
func GeneratePositions(cfg Config, seed int64, excluded *Position) []Position {
	legal := legalCells(cfg, excluded, true)
	if excluded != nil && cfg.Mines > len(legal) {
		legal = legalCells(cfg, excluded, false)
	}

	rng := newSplitmix64(seed)
	for i := len(legal) - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		legal[i], legal[j] = legal[j], legal[i]
	}
	if cfg.Mines < len(legal) {
		legal = legal[:cfg.Mines]
	}
	return legal
}

func legalCells(cfg Config, excluded *Position, wholeBlock bool) []Position {
	cells := make([]Position, 0, cfg.Rows*cfg.Cols)
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			if excluded != nil {
				if wholeBlock && absDiff(r, excluded.Row) <= 1 && absDiff(c, excluded.Col) <= 1 {
					continue
				}
				if !wholeBlock && r == excluded.Row && c == excluded.Col {
					continue
				}
			}
			cells = append(cells, Position{Row: r, Col: c})
		}
	}
	return cells
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
