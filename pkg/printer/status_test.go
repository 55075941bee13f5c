package printer

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw      string
		expected Status
	}{
		{"running", StatusRunning},
		{"RUNNING", StatusRunning},
		{"  Pause  ", StatusPaused},
		{"paused", StatusPaused},
		{"prepare", StatusPreparing},
		{"finish", StatusFinished},
		{"failed", StatusFailed},
		{"offline", StatusOffline},
		{"idle", StatusIdle},
		{"", StatusUnknown},
		{"calibrating", StatusUnknown},
		{"slicing", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseStatus(tt.raw); got != tt.expected {
				t.Errorf("ParseStatus(%q) = %q, expected %q", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestStatusIsActive(t *testing.T) {
	active := []Status{StatusRunning, StatusPaused, StatusPreparing}
	inactive := []Status{StatusUnknown, StatusIdle, StatusFinished, StatusFailed, StatusOffline}

	for _, s := range active {
		if !s.IsActive() {
			t.Errorf("Expected %q to be active", s)
		}
	}
	for _, s := range inactive {
		if s.IsActive() {
			t.Errorf("Expected %q to be inactive", s)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if !StatusFinished.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("Expected finish and failed to be terminal")
	}
	if StatusRunning.IsTerminal() || StatusIdle.IsTerminal() || StatusUnknown.IsTerminal() {
		t.Error("Non-terminal status reported terminal")
	}
}
