package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"minearena/internal/agent"
	"minearena/internal/battle"
	"minearena/internal/board"
	"minearena/internal/persist"
)

// skirmish runs one battle locally and renders it to the terminal. Handy for
// watching the built-in movers play without standing up the HTTP server.
func main() {
	rows := flag.Int("rows", 9, "Board rows")
	cols := flag.Int("cols", 9, "Board cols")
	mines := flag.Int("mines", 10, "Mine count")
	agents := flag.String("agents", "solver,random", "Comma-separated agent kinds (solver, random)")
	seed := flag.Int64("seed", 0, "Board seed (0 picks one from the clock)")
	quiet := flag.Bool("quiet", false, "Only print the final rankings")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	fmt.Printf("Battle seed: %d\n\n", *seed)

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	store := battle.NewStore(persist.NewMemoryRecorder(), logger)
	defer store.Close()

	agentIDs := splitAgents(*agents)
	cfg := board.Config{Rows: *rows, Cols: *cols, Mines: *mines}
	b, err := store.Create(cfg, agentIDs, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot create battle: %v\n", err)
		os.Exit(1)
	}

	if !*quiet {
		// Runner goroutines emit concurrently, so serialize the rendering.
		var mu sync.Mutex
		unsub, err := store.Subscribe(b.ID, func(ev battle.Event) {
			mu.Lock()
			defer mu.Unlock()
			render(ev)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot subscribe: %v\n", err)
			os.Exit(1)
		}
		defer unsub()
	}

	orch := battle.NewOrchestrator(store, localFactory(*seed), logger)
	if err := orch.Run(context.Background(), b.ID); err != nil {
		fmt.Fprintf(os.Stderr, "battle failed: %v\n", err)
		os.Exit(1)
	}

	final, err := store.Get(b.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "battle vanished: %v\n", err)
		os.Exit(1)
	}
	printRankings(final)
}

func splitAgents(list string) []string {
	var ids []string
	seen := map[string]int{}
	for _, kind := range strings.Split(list, ",") {
		kind = strings.TrimSpace(kind)
		if kind == "" {
			continue
		}
		// Duplicate kinds get numbered suffixes so their IDs stay unique.
		seen[kind]++
		if seen[kind] > 1 {
			kind = fmt.Sprintf("%s:%d", kind, seen[kind])
		}
		ids = append(ids, kind)
	}
	return ids
}

func localFactory(seed int64) battle.MoverFactory {
	return func(agentID string) (agent.Mover, error) {
		kind := agentID
		if i := strings.Index(agentID, ":"); i >= 0 {
			kind = agentID[:i]
		}
		switch kind {
		case "solver":
			return agent.NewSolver(), nil
		case "random":
			return agent.NewRandom(seed), nil
		default:
			return nil, fmt.Errorf("unknown agent kind %q (skirmish only runs solver and random)", agentID)
		}
	}
}

func render(ev battle.Event) {
	switch e := ev.(type) {
	case *battle.InitEvent:
		fmt.Printf("=== %dx%d board, %d mines, agents: %s ===\n\n",
			e.Config.Rows, e.Config.Cols, e.Config.Mines, strings.Join(e.AgentIDs, ", "))
	case *battle.MoveEvent:
		fmt.Printf("[%s] %s (%d, %d)\n%s\n\n", e.AgentID, e.Action, e.Row, e.Col, indent(e.Board))
	case *battle.CompleteEvent:
		fmt.Printf("[%s] finished: %s after %d moves (%d safe, %d mines, %dms)\n\n",
			e.AgentID, e.Outcome, e.Moves, e.SafeRevealed, e.MinesHit, e.DurationMs)
	case *battle.ErrorEvent:
		fmt.Printf("[%s] error: %s\n\n", e.AgentID, e.Message)
	}
}

func indent(board string) string {
	return "  " + strings.ReplaceAll(board, "\n", "\n  ")
}

func printRankings(b *battle.Battle) {
	fmt.Println("Final rankings:")
	fmt.Printf("  %-3s %-12s %-8s %6s %6s %6s %6s\n", "#", "AGENT", "OUTCOME", "SCORE", "MOVES", "SAFE", "MINES")
	for i, r := range b.Rankings {
		fmt.Printf("  %-3d %-12s %-8s %6d %6d %6d %6d\n",
			i+1, r.AgentID, r.Outcome, r.Score, r.Moves, r.SafeRevealed, r.MinesHit)
	}
}
