package persist

import (
	"context"
	"sort"
	"sync"
)

// MemoryRecorder is a mutex-guarded in-process Recorder. It backs tests and
// single-node deployments that want replay and listings without a Redis.
type MemoryRecorder struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	sets  map[string]map[string]float64
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		blobs: make(map[string][]byte),
		sets:  make(map[string]map[string]float64),
	}
}

func (m *MemoryRecorder) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dup := make([]byte, len(value))
	copy(dup, value)
	m.blobs[key] = dup
	return nil
}

func (m *MemoryRecorder) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	dup := make([]byte, len(value))
	copy(dup, value)
	return dup, nil
}

func (m *MemoryRecorder) SortedAdd(_ context.Context, key, member string, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]float64)
		m.sets[key] = set
	}
	set[member] = score
	return nil
}

func (m *MemoryRecorder) SortedRange(_ context.Context, key string, start, stop int64, reverse bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.sets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	// Score order with members as tie break, matching what Redis guarantees.
	sort.Slice(members, func(i, j int) bool {
		si, sj := set[members[i]], set[members[j]]
		if si != sj {
			if reverse {
				return si > sj
			}
			return si < sj
		}
		if reverse {
			return members[i] > members[j]
		}
		return members[i] < members[j]
	})

	n := int64(len(members))
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return nil, nil
	}
	return members[start : stop+1], nil
}

func (m *MemoryRecorder) SortedCount(_ context.Context, key string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.sets[key])), nil
}

func (m *MemoryRecorder) Close() error { return nil }
