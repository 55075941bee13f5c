package notify

import "github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"

// Kind enumerates the discrete transition events a print can produce.
type Kind string

const (
	KindStarted   Kind = "started"
	KindPaused    Kind = "paused"
	KindResumed   Kind = "resumed"
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
	KindMilestone Kind = "milestone"
)

// Event is one transition detected between successive snapshots. Ephemeral:
// produced by the tracker, consumed once by the notifier and session manager.
type Event struct {
	Kind      Kind             `json:"kind"`
	Milestone int              `json:"milestone,omitempty"`
	Snapshot  printer.Snapshot `json:"snapshot"`
}
