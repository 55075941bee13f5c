package notify

import (
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
)

// Policy configures tracker behavior that is deliberately not fixed.
type Policy struct {
	// EmitResumed controls whether paused→running produces a distinct
	// resumed event. Off by default.
	EmitResumed bool

	// MilestoneInterval is the progress percentage step between milestone
	// events while a print runs. 0 disables milestones.
	MilestoneInterval int
}

// Tracker detects discrete status transitions and progress milestones across
// successive snapshots of one printer. State that cannot be derived from a
// single snapshot lives here: previous status, previous progress and the
// monotonically-advancing milestone watermark.
//
// Not reentrant: the per-printer monitor goroutine is the single writer.
// Concurrent Observe calls for the same printer would double-fire milestones.
type Tracker struct {
	policy Policy

	prevStatus   printer.Status
	prevProgress float64
	watermark    int
	observed     bool
}

// NewTracker creates a transition tracker. The initial previous status is
// unknown, so the first running snapshot produces a started event.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{
		policy:     policy,
		prevStatus: printer.StatusUnknown,
	}
}

// Observe compares a new snapshot against the remembered previous state and
// returns the transition events it implies, in order. Filtering by
// user-facing notification toggles is the notifier's job, not the tracker's:
// the live-session lifecycle consumes these same events regardless of which
// kinds the user wants announced.
func (t *Tracker) Observe(snap printer.Snapshot) []Event {
	prev := t.prevStatus
	status := snap.Status

	var events []Event

	if status != prev {
		events = append(events, t.transitionEvents(prev, status, snap)...)
	} else if status == printer.StatusRunning {
		if e, ok := t.milestone(snap); ok {
			events = append(events, e)
		}
	}

	t.prevStatus = status
	t.prevProgress = snap.Progress
	t.observed = true

	return events
}

func (t *Tracker) transitionEvents(prev, status printer.Status, snap printer.Snapshot) []Event {
	var events []Event

	switch status {
	case printer.StatusRunning:
		if prev == printer.StatusPaused {
			if t.policy.EmitResumed {
				events = append(events, Event{Kind: KindResumed, Snapshot: snap})
			}
		} else {
			// Entering running from any non-paused state is a new print.
			events = append(events, Event{Kind: KindStarted, Snapshot: snap})
			t.watermark = 0
		}
	case printer.StatusPaused:
		if prev == printer.StatusRunning {
			events = append(events, Event{Kind: KindPaused, Snapshot: snap})
		}
	case printer.StatusFinished:
		events = append(events, Event{Kind: KindCompleted, Snapshot: snap})
	case printer.StatusFailed:
		events = append(events, Event{Kind: KindFailed, Snapshot: snap})
	}

	return events
}

// milestone fires each N-percent boundary exactly once per print: the
// watermark only advances, so repeated ticks inside the same band, or a
// progress regression, emit nothing.
func (t *Tracker) milestone(snap printer.Snapshot) (Event, bool) {
	interval := t.policy.MilestoneInterval
	if interval <= 0 {
		return Event{}, false
	}

	value := int(snap.Progress) / interval * interval
	if value <= t.watermark || value <= 0 || value >= 100 {
		return Event{}, false
	}

	t.watermark = value
	return Event{Kind: KindMilestone, Milestone: value, Snapshot: snap}, true
}
