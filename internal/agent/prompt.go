package agent

import (
	"fmt"
	"strings"
)

// systemPrompt describes the game and the tool protocol to a language model.
func systemPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are playing minesweeper on a %d by %d board containing %d mines.\n",
		req.Config.Rows, req.Config.Cols, req.Config.Mines)
	sb.WriteString(`Cells are addressed by zero-based (row, col). The board view uses:
  H  hidden cell
  F  flagged cell
  0-8  revealed cell with that many adjacent mines

Reveal every safe cell to win. Revealing a mine loses immediately. Flags are
optional bookkeeping and never win the game on their own.

Respond with exactly one tool call each turn: makeMove for a single move, or
makeMoves for a batch of up to ` + fmt.Sprint(MaxBatchMoves) + ` moves applied in order. Batches stop
early at the first invalid move or mine. Never target a revealed cell.`)
	return sb.String()
}

// userMessage renders the current turn: the visible board, or the opening
// instruction while no board exists yet, plus feedback about the previous
// response when there is any.
func userMessage(req Request) string {
	var sb strings.Builder
	if req.Feedback != "" {
		sb.WriteString(req.Feedback)
		sb.WriteString("\n\n")
	}
	if req.FirstMove {
		sb.WriteString("The board is empty; no cells have been revealed yet. ")
		sb.WriteString("Your first reveal is guaranteed to be safe. Choose your opening move.")
		return sb.String()
	}
	fmt.Fprintf(&sb, "Turn %d. Current board:\n\n%s\nChoose your next move.", req.Turn, req.Grid)
	return sb.String()
}
