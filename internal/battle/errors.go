package battle

import "errors"

var (
	ErrBattleNotFound = errors.New("battle not found")
	ErrNoAgents       = errors.New("battle needs at least one agent")
	ErrDuplicateAgent = errors.New("agent ids must be unique")
)
