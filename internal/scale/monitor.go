package scale

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Reading is the most recent acquisition result. OK is false while the
// device is disconnected, timing out or emitting unparsable lines.
type Reading struct {
	Weight float64   `json:"weight"`
	OK     bool      `json:"ok"`
	At     time.Time `json:"at"`
}

// Monitor polls a Source on a fixed interval and holds the latest reading.
// It owns the source's lifecycle and never touches the ledger; the
// orchestrator reads from it via Current.
type Monitor struct {
	source Source
	logger *slog.Logger
	every  time.Duration

	mu        sync.Mutex
	last      Reading
	connected bool
}

// NewMonitor constructs a Monitor polling source every interval.
func NewMonitor(source Source, logger *slog.Logger, every time.Duration) *Monitor {
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{source: source, logger: logger, every: every}
}

// Connect opens the underlying source.
func (m *Monitor) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return nil
	}
	if err := m.source.Connect(); err != nil {
		return err
	}
	m.connected = true
	return nil
}

// Disconnect closes the underlying source. Subsequent readings report
// unavailable until Connect is called again.
func (m *Monitor) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil
	}
	m.connected = false
	m.last = Reading{At: time.Now()}
	return m.source.Disconnect()
}

// Connected reports whether the source is open.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Current returns the latest reading.
func (m *Monitor) Current() Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Poll performs one acquisition immediately.
func (m *Monitor) Poll() Reading {
	m.mu.Lock()
	if !m.connected {
		m.last = Reading{At: time.Now()}
		last := m.last
		m.mu.Unlock()
		return last
	}
	m.mu.Unlock()

	// Read outside the lock; serial reads can take up to the device
	// timeout.
	weight, ok := m.source.ReadWeight()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = Reading{Weight: weight, OK: ok, At: time.Now()}
	return m.last
}

// Run polls until ctx is cancelled, then disconnects.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := m.Disconnect(); err != nil {
				m.logger.Warn("scale disconnect", slog.Any("error", err))
			}
			return nil
		case <-ticker.C:
			m.Poll()
		}
	}
}
