package printer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 30 * time.Second
	MinPollInterval     = 15 * time.Second
	MaxPollInterval     = 120 * time.Second
)

// ClampPollInterval forces an interval into the recognized range.
func ClampPollInterval(interval time.Duration) time.Duration {
	if interval <= 0 {
		return DefaultPollInterval
	}
	if interval < MinPollInterval {
		return MinPollInterval
	}
	if interval > MaxPollInterval {
		return MaxPollInterval
	}
	return interval
}

// Monitor drives one printer's sync engine on a fixed interval. Ticks never
// overlap: a single loop goroutine runs the tick and publishes the result, so
// snapshot publication is serialized per printer.
type Monitor struct {
	syncer   *Syncer
	logger   *logrus.Logger
	interval time.Duration

	onSnapshot func(Snapshot, []FeederStatus)
	onError    func(error)

	mutex  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor creates a poll driver for the given sync engine.
func NewMonitor(syncer *Syncer, interval time.Duration, logger *logrus.Logger) *Monitor {
	return &Monitor{
		syncer:   syncer,
		logger:   logger,
		interval: ClampPollInterval(interval),
	}
}

// SetOnSnapshot sets the callback invoked with each completed tick's
// snapshot and feeder readings. Set before Start.
func (m *Monitor) SetOnSnapshot(callback func(Snapshot, []FeederStatus)) {
	m.onSnapshot = callback
}

// SetOnError sets the callback invoked when a tick aborts.
func (m *Monitor) SetOnError(callback func(error)) {
	m.onError = callback
}

// Start begins polling. If the monitor is already running it is stopped
// first, so Start doubles as a restart and never leaks the previous ticker.
func (m *Monitor) Start() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.WithField("prefix", m.syncer.prefix).Infof("Starting poll monitor (interval %s)", m.interval)

	// The loop gets its own copy of the interval: it must never read the
	// shared field, which Restart mutates while an old loop may still be
	// mid-tick.
	go m.pollLoop(ctx, m.done, m.interval)
}

// Restart applies a new interval and starts polling again.
func (m *Monitor) Restart(interval time.Duration) {
	m.mutex.Lock()
	m.interval = ClampPollInterval(interval)
	m.mutex.Unlock()
	m.Start()
}

// Stop cancels polling. No snapshot is published after Stop returns.
func (m *Monitor) Stop() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stopLocked()
}

func (m *Monitor) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	m.logger.WithField("prefix", m.syncer.prefix).Debug("Poll monitor stopped")
}

func (m *Monitor) pollLoop(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.tick(ctx, interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, interval)
		}
	}
}

func (m *Monitor) tick(ctx context.Context, interval time.Duration) {
	tickCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	snap, feeders, err := m.syncer.Sync(tickCtx)
	if err != nil {
		if ctx.Err() == nil && m.onError != nil {
			m.onError(err)
		}
		return
	}

	// A cancelled monitor publishes nothing, even if the tick raced the stop.
	if ctx.Err() != nil {
		return
	}

	if m.onSnapshot != nil {
		m.onSnapshot(snap, feeders)
	}
}
