package printer

import "strings"

// Status is the closed set of printer lifecycle states. Raw values that do
// not match any member map to StatusUnknown, never to StatusIdle: assuming
// idle on an unrecognized value would hide an active print.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusIdle      Status = "idle"
	StatusPreparing Status = "prepare"
	StatusRunning   Status = "running"
	StatusPaused    Status = "pause"
	StatusFinished  Status = "finish"
	StatusFailed    Status = "failed"
	StatusOffline   Status = "offline"
)

var statusByName = map[string]Status{
	"unknown": StatusUnknown,
	"idle":    StatusIdle,
	"prepare": StatusPreparing,
	"running": StatusRunning,
	"pause":   StatusPaused,
	"paused":  StatusPaused,
	"finish":  StatusFinished,
	"failed":  StatusFailed,
	"offline": StatusOffline,
}

// ParseStatus matches a raw status string case-insensitively against the
// closed enum.
func ParseStatus(raw string) Status {
	if s, ok := statusByName[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusUnknown
}

// IsActive reports whether the status describes an in-progress print. The
// filename continuity rule only applies in these states.
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusPaused || s == StatusPreparing
}

// IsTerminal reports whether the status ends a print session.
func (s Status) IsTerminal() bool {
	return s == StatusFinished || s == StatusFailed
}
