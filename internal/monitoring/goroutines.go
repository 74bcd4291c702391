// Package monitoring watches runtime health of the arena process. Every
// running battle holds one goroutine per agent, plus a writer per stream
// client, so the goroutine count is the first place a leak shows up.
package monitoring

import (
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Monitor tracks goroutine metrics alongside the active battle gauge.
type Monitor struct {
	mu             sync.RWMutex
	baseline       int
	current        int
	peak           int
	checkInterval  time.Duration
	alertThreshold int
	lastAlert      time.Time
	alertCooldown  time.Duration
	stop           chan struct{}
	stopOnce       sync.Once
	battles        func() int
	logger         zerolog.Logger
}

// New creates a monitor. battles reports how many battles are currently
// registered; it may be nil.
func New(battles func() int, logger zerolog.Logger) *Monitor {
	baseline := runtime.NumGoroutine()
	if battles == nil {
		battles = func() int { return 0 }
	}
	return &Monitor{
		baseline:       baseline,
		current:        baseline,
		peak:           baseline,
		checkInterval:  30 * time.Second,
		alertThreshold: 1000,
		alertCooldown:  5 * time.Minute,
		stop:           make(chan struct{}),
		battles:        battles,
		logger:         logger.With().Str("component", "monitoring").Logger(),
	}
}

// Start begins the periodic check loop.
func (m *Monitor) Start() {
	go m.run()
	m.logger.Info().Int("baseline", m.baseline).Msg("Started goroutine monitoring")
}

// Stop stops the monitor. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) run() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Interface("panic", r).
				Msg("Goroutine monitor panicked - restarting")
			time.Sleep(5 * time.Second)
			go m.run()
		}
	}()

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

// check samples the goroutine count and alerts when it crosses the threshold.
func (m *Monitor) check() {
	current := runtime.NumGoroutine()
	battles := m.battles()

	m.mu.Lock()
	m.current = current
	if current > m.peak {
		m.peak = current
	}

	growth := current - m.baseline
	growthRate := float64(growth) / float64(m.baseline) * 100

	shouldAlert := current > m.alertThreshold &&
		time.Since(m.lastAlert) > m.alertCooldown
	if shouldAlert {
		m.lastAlert = time.Now()
	}
	m.mu.Unlock()

	m.logger.Debug().
		Int("current", current).
		Int("baseline", m.baseline).
		Int("peak", m.peak).
		Int("active_battles", battles).
		Float64("growth_rate", growthRate).
		Msg("Goroutine metrics")

	if shouldAlert {
		m.logger.Warn().
			Int("current", current).
			Int("threshold", m.alertThreshold).
			Int("active_battles", battles).
			Float64("growth_rate", growthRate).
			Msg("High goroutine count detected - possible leak")
	}
}

// Metrics contains goroutine statistics for the health endpoint.
type Metrics struct {
	Current  int `json:"current"`
	Baseline int `json:"baseline"`
	Peak     int `json:"peak"`
	Growth   int `json:"growth"`
}

// Metrics returns a snapshot of the current goroutine statistics.
func (m *Monitor) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Metrics{
		Current:  m.current,
		Baseline: m.baseline,
		Peak:     m.peak,
		Growth:   m.current - m.baseline,
	}
}
