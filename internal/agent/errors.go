package agent

import "errors"

var (
	ErrNoToolCall  = errors.New("model response contained no tool call")
	ErrUnknownTool = errors.New("model called an unknown tool")
	ErrEmptyBatch  = errors.New("makeMoves call carried no moves")
)
