package board

import "errors"

var (
	ErrInvalidDimensions = errors.New("board dimensions must be at least 1x1")
	ErrNegativeMineCount = errors.New("mine count cannot be negative")
	ErrTooManyMines      = errors.New("mine count must be less than the cell count")
)
