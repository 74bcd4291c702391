package battle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"minearena/internal/agent"
	"minearena/internal/board"
	"minearena/internal/persist"
)

// Redis-style key layout. Recorders only see opaque keys, so every backend
// shares the same scheme.
const completedIndexKey = "battles:completed"

func metaKey(battleID string) string { return "battle:" + battleID }

func framesKey(battleID, agentID string) string {
	return fmt.Sprintf("battle:%s:frames:%s", battleID, agentID)
}

func resultKey(battleID, agentID string) string {
	return fmt.Sprintf("battle:%s:result:%s", battleID, agentID)
}

// Frame is one persisted move: the move itself plus the board after it.
type Frame struct {
	Seq    int               `json:"seq"`
	Action agent.Action      `json:"action,omitempty"`
	Row    int               `json:"row"`
	Col    int               `json:"col"`
	Board  string            `json:"board"`
	Delta  []board.CellDelta `json:"delta"`
	Time   time.Time         `json:"time"`
}

// Summary is the persisted battle header: configuration, participants, and,
// once the battle finishes, its rankings and completion time.
type Summary struct {
	ID          string       `json:"id"`
	Config      board.Config `json:"config"`
	AgentIDs    []string     `json:"agentIds"`
	Status      Status       `json:"status"`
	Seed        int64        `json:"seed"`
	CreatedAt   time.Time    `json:"createdAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	Rankings    []Result     `json:"rankings,omitempty"`
}

// BattleReplay bundles everything persisted about one battle: the header,
// each agent's frame stream in move order, and the final results that were
// written so far.
type BattleReplay struct {
	Summary Summary            `json:"summary"`
	Frames  map[string][]Frame `json:"frames"`
	Results []Result           `json:"results"`
}

// Archive reads and writes the persistence schema: one metadata blob per
// battle, one score-ordered frame stream per agent, one result blob per
// agent, and a completion index ordered by finish time.
type Archive struct {
	rec    persist.Recorder
	logger zerolog.Logger
}

func NewArchive(rec persist.Recorder, logger zerolog.Logger) *Archive {
	return &Archive{
		rec:    rec,
		logger: logger.With().Str("component", "battle_archive").Logger(),
	}
}

// SaveMeta writes the battle header.
func (a *Archive) SaveMeta(ctx context.Context, b *Battle, completedAt *time.Time) error {
	summary := Summary{
		ID:          b.ID,
		Config:      b.Config,
		AgentIDs:    b.AgentIDs,
		Status:      b.Status,
		Seed:        b.Seed,
		CreatedAt:   b.CreatedAt,
		CompletedAt: completedAt,
		Rankings:    b.Rankings,
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal battle %s: %w", b.ID, err)
	}
	return a.rec.Set(ctx, metaKey(b.ID), data)
}

// SaveFrame appends one move to the agent's frame stream, keyed by its
// sequence number so ranged reads come back in move order.
func (a *Archive) SaveFrame(ctx context.Context, battleID, agentID string, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame %d for agent %s: %w", frame.Seq, agentID, err)
	}
	return a.rec.SortedAdd(ctx, framesKey(battleID, agentID), string(data), float64(frame.Seq))
}

// SaveResult writes one agent's final line.
func (a *Archive) SaveResult(ctx context.Context, battleID string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result for agent %s: %w", result.AgentID, err)
	}
	return a.rec.Set(ctx, resultKey(battleID, result.AgentID), data)
}

// SaveCompletion rewrites the header with the rankings and finish time, then
// adds the battle to the completion index so listings can find it.
func (a *Archive) SaveCompletion(ctx context.Context, b *Battle, completedAt time.Time) error {
	if err := a.SaveMeta(ctx, b, &completedAt); err != nil {
		return err
	}
	return a.rec.SortedAdd(ctx, completedIndexKey, b.ID, float64(completedAt.UnixMilli()))
}

// ListCompleted pages through finished battles, newest first. total is the
// full size of the completion index.
func (a *Archive) ListCompleted(ctx context.Context, offset, limit int) ([]Summary, int64, error) {
	total, err := a.rec.SortedCount(ctx, completedIndexKey)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 || int64(offset) >= total {
		return []Summary{}, total, nil
	}
	ids, err := a.rec.SortedRange(ctx, completedIndexKey, int64(offset), int64(offset+limit-1), true)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		data, err := a.rec.Get(ctx, metaKey(id))
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("battle_id", id).
				Msg("Indexed battle has no metadata")
			continue
		}
		var summary Summary
		if err := json.Unmarshal(data, &summary); err != nil {
			a.logger.Warn().
				Err(err).
				Str("battle_id", id).
				Msg("Corrupt battle metadata skipped")
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

// LoadReplay loads everything persisted about the battle. It returns
// persist.ErrNotFound when the battle was never saved. Agents without a
// persisted result are simply absent from Results, so a replay of a battle
// that is still running shows the frames written so far.
func (a *Archive) LoadReplay(ctx context.Context, battleID string) (*BattleReplay, error) {
	data, err := a.rec.Get(ctx, metaKey(battleID))
	if err != nil {
		return nil, err
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("corrupt metadata for battle %s: %w", battleID, err)
	}

	replay := &BattleReplay{
		Summary: summary,
		Frames:  make(map[string][]Frame, len(summary.AgentIDs)),
		Results: make([]Result, 0, len(summary.AgentIDs)),
	}
	for _, agentID := range summary.AgentIDs {
		members, err := a.rec.SortedRange(ctx, framesKey(battleID, agentID), 0, -1, false)
		if err != nil {
			return nil, err
		}
		frames := make([]Frame, 0, len(members))
		for _, member := range members {
			var frame Frame
			if err := json.Unmarshal([]byte(member), &frame); err != nil {
				a.logger.Warn().
					Err(err).
					Str("battle_id", battleID).
					Str("agent_id", agentID).
					Msg("Corrupt frame skipped")
				continue
			}
			frames = append(frames, frame)
		}
		replay.Frames[agentID] = frames

		resData, err := a.rec.Get(ctx, resultKey(battleID, agentID))
		if errors.Is(err, persist.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var result Result
		if err := json.Unmarshal(resData, &result); err != nil {
			a.logger.Warn().
				Err(err).
				Str("battle_id", battleID).
				Str("agent_id", agentID).
				Msg("Corrupt result skipped")
			continue
		}
		replay.Results = append(replay.Results, result)
	}
	return replay, nil
}
