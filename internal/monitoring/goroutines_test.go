package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minearena/internal/testutil"
)

func TestMonitorMetrics(t *testing.T) {
	m := New(func() int { return 3 }, testutil.NopLogger())

	metrics := m.Metrics()
	assert.Positive(t, metrics.Baseline)
	assert.Equal(t, metrics.Baseline, metrics.Current, "no samples yet, current equals baseline")
	assert.Zero(t, metrics.Growth)
}

func TestMonitorCheckTracksPeak(t *testing.T) {
	m := New(nil, testutil.NopLogger())

	// Park a few goroutines so the sample has something to see.
	stop := make(chan struct{})
	for i := 0; i < 5; i++ {
		go func() { <-stop }()
	}
	m.check()
	close(stop)

	metrics := m.Metrics()
	assert.GreaterOrEqual(t, metrics.Peak, metrics.Baseline)
	assert.Positive(t, metrics.Current)
}

func TestMonitorStartStop(t *testing.T) {
	m := New(func() int { return 0 }, testutil.NopLogger())
	m.Start()
	m.Stop()
	m.Stop() // second Stop must not panic
}
