package printer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/homeassistant"
)

var errTestUnreachable = errors.New("state source unreachable")

func TestClampPollInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		expected time.Duration
	}{
		{"Zero uses default", 0, DefaultPollInterval},
		{"Negative uses default", -5 * time.Second, DefaultPollInterval},
		{"Below minimum", 5 * time.Second, MinPollInterval},
		{"Above maximum", 10 * time.Minute, MaxPollInterval},
		{"In range", 45 * time.Second, 45 * time.Second},
		{"Exactly minimum", MinPollInterval, MinPollInterval},
		{"Exactly maximum", MaxPollInterval, MaxPollInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPollInterval(tt.interval); got != tt.expected {
				t.Errorf("ClampPollInterval(%s) = %s, expected %s", tt.interval, got, tt.expected)
			}
		})
	}
}

func TestMonitorPublishesFirstTickImmediately(t *testing.T) {
	source := newFakeSource()
	source.set("sensor.h2s_print_status", "running")

	syncer := NewSyncer(source, "h2s", testLogger())
	monitor := NewMonitor(syncer, MinPollInterval, testLogger())

	snapshots := make(chan Snapshot, 1)
	monitor.SetOnSnapshot(func(snap Snapshot, _ []FeederStatus) {
		select {
		case snapshots <- snap:
		default:
		}
	})

	monitor.Start()
	defer monitor.Stop()

	select {
	case snap := <-snapshots:
		if snap.Status != StatusRunning {
			t.Errorf("Expected running snapshot, got %q", snap.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected an immediate first tick, none arrived")
	}
}

func TestMonitorStopPreventsPublication(t *testing.T) {
	source := newFakeSource()
	source.set("sensor.h2s_print_status", "idle")

	syncer := NewSyncer(source, "h2s", testLogger())
	monitor := NewMonitor(syncer, MinPollInterval, testLogger())

	snapshots := make(chan Snapshot, 4)
	monitor.SetOnSnapshot(func(snap Snapshot, _ []FeederStatus) {
		snapshots <- snap
	})

	monitor.Start()

	// Wait for the immediate tick, then stop.
	select {
	case <-snapshots:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the first tick")
	}

	monitor.Stop()

	// Stop returns only once the loop goroutine has exited, so nothing more
	// may arrive.
	select {
	case snap := <-snapshots:
		t.Errorf("Snapshot published after Stop: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorReportsTickErrors(t *testing.T) {
	source := newFakeSource()
	source.err = errTestUnreachable

	syncer := NewSyncer(source, "h2s", testLogger())
	monitor := NewMonitor(syncer, MinPollInterval, testLogger())

	errs := make(chan error, 1)
	monitor.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	monitor.Start()
	defer monitor.Stop()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("Expected a non-nil tick error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the failing tick to report an error")
	}
}

// blockingSource holds every read open until released, honoring context
// cancellation so an aborted tick can still drain.
type blockingSource struct {
	inner   *fakeSource
	release chan struct{}
	entered chan struct{}
}

func (b *blockingSource) State(ctx context.Context, entityID string) (*homeassistant.Entity, error) {
	select {
	case b.entered <- struct{}{}:
	default:
	}

	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.inner.State(ctx, entityID)
}

func TestMonitorRestartDuringInFlightTick(t *testing.T) {
	inner := newFakeSource()
	inner.set("sensor.h2s_print_status", "idle")
	source := &blockingSource{
		inner:   inner,
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}

	syncer := NewSyncer(source, "h2s", testLogger())
	monitor := NewMonitor(syncer, MinPollInterval, testLogger())

	snapshots := make(chan Snapshot, 4)
	monitor.SetOnSnapshot(func(snap Snapshot, _ []FeederStatus) {
		snapshots <- snap
	})

	monitor.Start()

	select {
	case <-source.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the first tick to begin reading")
	}

	// Restart while the first tick is still blocked mid-read. The old loop
	// must be torn down cleanly and must never observe the new interval.
	restarted := make(chan struct{})
	go func() {
		monitor.Restart(45 * time.Second)
		close(restarted)
	}()

	select {
	case <-restarted:
	case <-time.After(5 * time.Second):
		t.Fatal("Restart did not complete while a tick was in flight")
	}

	close(source.release)
	defer monitor.Stop()

	select {
	case snap := <-snapshots:
		if snap.Status != StatusIdle {
			t.Errorf("Expected idle snapshot from the restarted loop, got %q", snap.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a snapshot from the restarted loop")
	}
}

func TestMonitorRestartIsSafe(t *testing.T) {
	source := newFakeSource()
	source.set("sensor.h2s_print_status", "idle")

	syncer := NewSyncer(source, "h2s", testLogger())
	monitor := NewMonitor(syncer, MinPollInterval, testLogger())

	snapshots := make(chan Snapshot, 8)
	monitor.SetOnSnapshot(func(snap Snapshot, _ []FeederStatus) {
		snapshots <- snap
	})

	monitor.Start()
	select {
	case <-snapshots:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected first tick before restart")
	}

	monitor.Restart(45 * time.Second)
	defer monitor.Stop()

	// The restarted loop ticks immediately again.
	select {
	case <-snapshots:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected an immediate tick after restart")
	}
}
