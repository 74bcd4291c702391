// Package persist provides the durable store behind battles: opaque JSON
// blobs addressed by key, plus score-ordered indexes for pagination. Writes
// are best-effort; callers log failures and keep playing.
package persist

import (
	"context"
	"errors"
)

// Backend selects a Recorder implementation.
type Backend string

const (
	// BackendNone disables persistence entirely.
	BackendNone Backend = "none"
	// BackendMemory keeps everything in process memory.
	BackendMemory Backend = "memory"
	// BackendRedis stores through a Redis server.
	BackendRedis Backend = "redis"
)

var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("persist: key not found")
	// ErrInvalidBackend is returned when configuration names an unknown backend.
	ErrInvalidBackend = errors.New("persist: unknown backend")
)

// Recorder is the storage contract battles persist through.
type Recorder interface {
	// Set stores an opaque blob under the key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Get retrieves the blob stored under the key.
	Get(ctx context.Context, key string) ([]byte, error)

	// SortedAdd inserts or rescores a member of the sorted set at the key.
	SortedAdd(ctx context.Context, key, member string, score float64) error

	// SortedRange returns members of the sorted set ordered by score, from
	// index start through stop inclusive. Negative indexes count back from
	// the end. reverse walks highest score first.
	SortedRange(ctx context.Context, key string, start, stop int64, reverse bool) ([]string, error)

	// SortedCount returns the size of the sorted set at the key.
	SortedCount(ctx context.Context, key string) (int64, error)

	// Close cleanly shuts down the recorder.
	Close() error
}

// NullRecorder discards every write. It backs battles that run without
// persistence configured.
type NullRecorder struct{}

// NewNullRecorder creates a recorder that stores nothing.
func NewNullRecorder() *NullRecorder { return &NullRecorder{} }

func (*NullRecorder) Set(context.Context, string, []byte) error { return nil }

func (*NullRecorder) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }

func (*NullRecorder) SortedAdd(context.Context, string, string, float64) error { return nil }

func (*NullRecorder) SortedRange(context.Context, string, int64, int64, bool) ([]string, error) {
	return nil, nil
}

func (*NullRecorder) SortedCount(context.Context, string) (int64, error) { return 0, nil }

func (*NullRecorder) Close() error { return nil }
