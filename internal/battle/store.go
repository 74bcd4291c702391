package battle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"minearena/internal/board"
	"minearena/internal/persist"
)

const (
	cleanupInterval   = 1 * time.Minute  // How often to run eviction
	finishedBattleTTL = 10 * time.Minute // Keep finished battles for late viewers
	abandonedTimeout  = 1 * time.Hour    // Drop battles that never reached done
	persistTimeout    = 5 * time.Second  // Deadline for one best-effort write
)

type battleEntry struct {
	battle    *Battle
	listeners map[int64]Listener
	doneAt    time.Time
}

// Store is the registry of live battles and the single entry point for
// mutating them. All changes arrive as events through Emit: the event is
// folded into the aggregate, durable writes are scheduled best-effort, and
// the event fans out synchronously to every listener. Listeners must not
// call back into the store from their handler.
type Store struct {
	mu       sync.RWMutex
	battles  map[string]*battleEntry
	nextSub  int64
	archive  *Archive
	logger   zerolog.Logger
	persists sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store persisting through the given recorder and starts
// its eviction loop. Use persist.NewNullRecorder to run without durability.
func NewStore(rec persist.Recorder, logger zerolog.Logger) *Store {
	s := &Store{
		battles: make(map[string]*battleEntry),
		archive: NewArchive(rec, logger),
		logger:  logger.With().Str("component", "battle_store").Logger(),
		stop:    make(chan struct{}),
	}
	go s.runCleanup()
	return s
}

// Archive exposes the store's persistence schema for read paths.
func (s *Store) Archive() *Archive { return s.archive }

// Create registers a new pending battle with one state slot per agent and
// schedules the initial metadata write. The returned battle is a snapshot.
func (s *Store) Create(cfg board.Config, agentIDs []string, seed int64) (*Battle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(agentIDs) == 0 {
		return nil, ErrNoAgents
	}
	seen := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		if seen[id] {
			return nil, ErrDuplicateAgent
		}
		seen[id] = true
	}

	b := newBattle(uuid.NewString(), cfg, agentIDs, seed)

	s.mu.Lock()
	s.battles[b.ID] = &battleEntry{battle: b, listeners: make(map[int64]Listener)}
	s.mu.Unlock()

	s.logger.Info().
		Str("battle_id", b.ID).
		Int("rows", cfg.Rows).
		Int("cols", cfg.Cols).
		Int("mines", cfg.Mines).
		Strs("agent_ids", agentIDs).
		Msg("Battle created")

	meta := b.Clone()
	s.persistAsync(b.ID, "save metadata", func(ctx context.Context) error {
		return s.archive.SaveMeta(ctx, meta, nil)
	})
	return b.Clone(), nil
}

// Get returns a deep-copied snapshot of the battle.
func (s *Store) Get(battleID string) (*Battle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	return entry.battle.Clone(), nil
}

// Subscribe registers a listener for the battle's future events and returns
// its unsubscribe function.
func (s *Store) Subscribe(battleID string, fn Listener) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	return s.addListener(entry, fn), nil
}

// SubscribeWithReplay delivers the catch-up projection to fn and registers
// it, atomically: nothing emitted after the snapshot is missed and nothing in
// it is duplicated. The replayed events are derived from state and are never
// persisted again.
func (s *Store) SubscribeWithReplay(battleID string, fn Listener) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.battles[battleID]
	if !ok {
		return nil, ErrBattleNotFound
	}
	for _, ev := range entry.battle.CatchUpEvents() {
		invokeListener(s.logger, battleID, fn, ev)
	}
	return s.addListener(entry, fn), nil
}

// addListener registers fn under the store lock and returns its remover.
func (s *Store) addListener(entry *battleEntry, fn Listener) func() {
	s.nextSub++
	subID := s.nextSub
	entry.listeners[subID] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(entry.listeners, subID)
	}
}

// Emit folds the event into the battle, schedules its durable write, and
// fans it out to the listeners registered at this moment. Listeners added
// during fan-out see only later events; their catch-up covers this one.
func (s *Store) Emit(battleID string, ev Event) error {
	s.mu.Lock()
	entry, ok := s.battles[battleID]
	if !ok {
		s.mu.Unlock()
		return ErrBattleNotFound
	}
	entry.battle.Apply(ev)
	s.schedulePersist(entry.battle, ev)
	if entry.battle.Status == StatusComplete && entry.doneAt.IsZero() {
		entry.doneAt = time.Now()
	}
	listeners := make([]Listener, 0, len(entry.listeners))
	for _, fn := range entry.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		invokeListener(s.logger, battleID, fn, ev)
	}
	return nil
}

// invokeListener runs one listener, catching panics so a broken subscriber
// cannot break the battle or its other subscribers.
func invokeListener(logger zerolog.Logger, battleID string, fn Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("battle_id", battleID).
				Str("event_type", ev.Type()).
				Interface("panic", r).
				Msg("Listener panicked while handling event")
		}
	}()
	fn(ev)
}

// schedulePersist maps an applied event to its best-effort durable write.
// Called with the store lock held, so it snapshots what it needs and does
// the writing on a fresh goroutine.
func (s *Store) schedulePersist(b *Battle, ev Event) {
	switch e := ev.(type) {
	case *MoveEvent:
		state, ok := b.Agents[e.AgentID]
		if !ok {
			return
		}
		frame := Frame{
			Seq:    state.Moves,
			Action: e.Action,
			Row:    e.Row,
			Col:    e.Col,
			Board:  e.Board,
			Delta:  e.Delta,
			Time:   e.Timestamp(),
		}
		agentID := e.AgentID
		s.persistAsync(b.ID, "save frame", func(ctx context.Context) error {
			return s.archive.SaveFrame(ctx, b.ID, agentID, frame)
		})
	case *CompleteEvent:
		state, ok := b.Agents[e.AgentID]
		if !ok {
			return
		}
		result := Result{
			AgentID:      e.AgentID,
			Outcome:      e.Outcome,
			Score:        state.Score,
			Moves:        e.Moves,
			SafeRevealed: e.SafeRevealed,
			MinesHit:     e.MinesHit,
			TotalSafe:    b.Config.TotalSafe(),
			DurationMs:   e.DurationMs,
		}
		s.persistAsync(b.ID, "save result", func(ctx context.Context) error {
			return s.archive.SaveResult(ctx, b.ID, result)
		})
	case *DoneEvent:
		meta := b.Clone()
		completedAt := e.Timestamp()
		s.persistAsync(b.ID, "save completion", func(ctx context.Context) error {
			return s.archive.SaveCompletion(ctx, meta, completedAt)
		})
	}
}

// persistAsync runs one durable write on its own goroutine. Failures are
// logged and never reach gameplay.
func (s *Store) persistAsync(battleID, op string, fn func(context.Context) error) {
	s.persists.Add(1)
	go func() {
		defer s.persists.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Warn().
				Err(err).
				Str("battle_id", battleID).
				Str("op", op).
				Msg("Best-effort persistence failed")
		}
	}()
}

// runCleanup periodically evicts battles nobody is watching anymore.
func (s *Store) runCleanup() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Msg("Battle cleanup goroutine panicked - restarting")
			time.Sleep(5 * time.Second)
			go s.runCleanup()
		}
	}()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictBattles()
		case <-s.stop:
			return
		}
	}
}

// evictBattles drops finished battles past their TTL once no listeners
// remain, and battles that never finished after a generous timeout.
func (s *Store) evictBattles() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for battleID, entry := range s.battles {
		if len(entry.listeners) > 0 {
			continue
		}
		var reason string
		switch {
		case entry.battle.Status == StatusComplete && now.Sub(entry.doneAt) > finishedBattleTTL:
			reason = "finished battle TTL expired"
		case entry.battle.Status != StatusComplete && now.Sub(entry.battle.CreatedAt) > abandonedTimeout:
			reason = "battle abandoned"
		default:
			continue
		}
		delete(s.battles, battleID)
		s.logger.Info().
			Str("battle_id", battleID).
			Str("reason", reason).
			Msg("Battle evicted")
	}
}

// ActiveBattles returns how many battles are held in memory.
func (s *Store) ActiveBattles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.battles)
}

// Close stops the eviction loop and waits for outstanding durable writes.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.persists.Wait()
}
