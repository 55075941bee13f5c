package notify

import (
	"testing"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
)

func snapshotWith(status printer.Status, progress float64) printer.Snapshot {
	return printer.Snapshot{
		Prefix:   "h2s",
		Status:   status,
		Progress: progress,
		FileName: "benchy.3mf",
	}
}

func kinds(events []Event) []Kind {
	out := make([]Kind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func assertKinds(t *testing.T, events []Event, expected ...Kind) {
	t.Helper()
	if len(events) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, kinds(events))
	}
	for i, kind := range expected {
		if events[i].Kind != kind {
			t.Fatalf("Expected events %v, got %v", expected, kinds(events))
		}
	}
}

func TestTrackerStartedTransition(t *testing.T) {
	tracker := NewTracker(Policy{})

	events := tracker.Observe(snapshotWith(printer.StatusRunning, 0))
	assertKinds(t, events, KindStarted)

	// Same status again is not a new start.
	events = tracker.Observe(snapshotWith(printer.StatusRunning, 5))
	assertKinds(t, events)
}

func TestTrackerPauseResume(t *testing.T) {
	tracker := NewTracker(Policy{})
	tracker.Observe(snapshotWith(printer.StatusRunning, 10))

	events := tracker.Observe(snapshotWith(printer.StatusPaused, 10))
	assertKinds(t, events, KindPaused)

	// Resumed is suppressed unless the policy enables it, and the resume
	// must not count as a fresh start.
	events = tracker.Observe(snapshotWith(printer.StatusRunning, 10))
	assertKinds(t, events)
}

func TestTrackerResumedWhenEnabled(t *testing.T) {
	tracker := NewTracker(Policy{EmitResumed: true})
	tracker.Observe(snapshotWith(printer.StatusRunning, 10))
	tracker.Observe(snapshotWith(printer.StatusPaused, 10))

	events := tracker.Observe(snapshotWith(printer.StatusRunning, 10))
	assertKinds(t, events, KindResumed)
}

func TestTrackerTerminalTransitions(t *testing.T) {
	tracker := NewTracker(Policy{})
	tracker.Observe(snapshotWith(printer.StatusRunning, 80))

	events := tracker.Observe(snapshotWith(printer.StatusFinished, 100))
	assertKinds(t, events, KindCompleted)

	tracker = NewTracker(Policy{})
	tracker.Observe(snapshotWith(printer.StatusRunning, 40))

	events = tracker.Observe(snapshotWith(printer.StatusFailed, 40))
	assertKinds(t, events, KindFailed)
}

func TestTrackerMilestoneExactlyOnce(t *testing.T) {
	tracker := NewTracker(Policy{MilestoneInterval: 25})
	tracker.Observe(snapshotWith(printer.StatusRunning, 0))

	var milestones []int
	for _, progress := range []float64{10, 24, 26, 26, 51, 49, 75} {
		for _, e := range tracker.Observe(snapshotWith(printer.StatusRunning, progress)) {
			if e.Kind == KindMilestone {
				milestones = append(milestones, e.Milestone)
			}
		}
	}

	expected := []int{25, 50, 75}
	if len(milestones) != len(expected) {
		t.Fatalf("Expected milestones %v, got %v", expected, milestones)
	}
	for i, v := range expected {
		if milestones[i] != v {
			t.Fatalf("Expected milestones %v, got %v", expected, milestones)
		}
	}
}

func TestTrackerMilestoneNeverFiresAtHundred(t *testing.T) {
	tracker := NewTracker(Policy{MilestoneInterval: 25})
	tracker.Observe(snapshotWith(printer.StatusRunning, 0))

	events := tracker.Observe(snapshotWith(printer.StatusRunning, 100))
	assertKinds(t, events)
}

func TestTrackerMilestoneDisabledByZeroInterval(t *testing.T) {
	tracker := NewTracker(Policy{})
	tracker.Observe(snapshotWith(printer.StatusRunning, 0))

	events := tracker.Observe(snapshotWith(printer.StatusRunning, 90))
	assertKinds(t, events)
}

func TestTrackerWatermarkResetsOnNewPrint(t *testing.T) {
	tracker := NewTracker(Policy{MilestoneInterval: 50})
	tracker.Observe(snapshotWith(printer.StatusRunning, 0))
	tracker.Observe(snapshotWith(printer.StatusRunning, 60))
	tracker.Observe(snapshotWith(printer.StatusFinished, 100))

	// New print: the 50% milestone must fire again.
	tracker.Observe(snapshotWith(printer.StatusRunning, 0))
	events := tracker.Observe(snapshotWith(printer.StatusRunning, 55))
	assertKinds(t, events, KindMilestone)
	if events[0].Milestone != 50 {
		t.Errorf("Expected milestone 50, got %d", events[0].Milestone)
	}
}
