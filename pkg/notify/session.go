package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
)

// SessionState is the payload pushed to the live session surface on every
// update.
type SessionState struct {
	Status           printer.Status `json:"status"`
	Progress         float64        `json:"progress"`
	FileName         string         `json:"file_name"`
	RemainingMinutes int            `json:"remaining_minutes"`
	CurrentLayer     int            `json:"current_layer"`
	TotalLayers      int            `json:"total_layers"`
	CoverImageURL    string         `json:"cover_image_url,omitempty"`
}

// SessionBackend manages the externally-hosted ephemeral session resource.
// The manager owns the calling discipline; the backend owns the transport.
type SessionBackend interface {
	Start(ctx context.Context, printerID string, state SessionState) (string, error)
	Update(ctx context.Context, handle string, state SessionState) error
	End(ctx context.Context, handle string) error
}

// SessionManager owns the at-most-one-active live session for a single
// printer. Invariant: a started transition always ends any pre-existing
// session before starting a new one, so two sessions can never coexist even
// when the prior print's terminal transition was missed.
type SessionManager struct {
	backend   SessionBackend
	printerID string
	logger    *logrus.Logger

	handle string
}

// NewSessionManager creates a session manager for one printer.
func NewSessionManager(backend SessionBackend, printerID string, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		backend:   backend,
		printerID: printerID,
		logger:    logger,
	}
}

// Active reports whether a session handle is currently tracked.
func (sm *SessionManager) Active() bool {
	return sm.handle != ""
}

// Apply drives the session lifecycle from one tick's snapshot and events.
// Backend failures are logged and swallowed: the printer keeps being
// monitored with no active session until the next started transition
// retries.
func (sm *SessionManager) Apply(ctx context.Context, snap printer.Snapshot, events []Event) {
	for _, event := range events {
		switch event.Kind {
		case KindStarted:
			sm.start(ctx, snap)
		case KindCompleted, KindFailed:
			sm.end(ctx)
		}
	}

	// An idle printer has no live session, whether or not a terminal
	// transition was observed.
	if snap.Status == printer.StatusIdle {
		sm.end(ctx)
		return
	}

	if sm.handle != "" && snap.Status.IsActive() {
		if err := sm.backend.Update(ctx, sm.handle, stateFromSnapshot(snap)); err != nil {
			sm.logger.WithField("printer", sm.printerID).WithError(err).Warn("Failed to update live session")
		}
	}
}

// Stop ends any active session, for shutdown paths.
func (sm *SessionManager) Stop(ctx context.Context) {
	sm.end(ctx)
}

// start unconditionally ends any tracked session first. Skipping that end
// is the known race that leaks a second concurrent session for overlapping
// prints.
func (sm *SessionManager) start(ctx context.Context, snap printer.Snapshot) {
	sm.end(ctx)

	handle, err := sm.backend.Start(ctx, sm.printerID, stateFromSnapshot(snap))
	if err != nil {
		sm.logger.WithField("printer", sm.printerID).WithError(err).Error("Failed to start live session")
		return
	}

	sm.handle = handle
	sm.logger.WithField("printer", sm.printerID).Debugf("Live session started: %s", handle)
}

// end is a no-op when no session is tracked.
func (sm *SessionManager) end(ctx context.Context) {
	if sm.handle == "" {
		return
	}

	handle := sm.handle
	sm.handle = ""

	if err := sm.backend.End(ctx, handle); err != nil {
		sm.logger.WithField("printer", sm.printerID).WithError(err).Warn("Failed to end live session")
	} else {
		sm.logger.WithField("printer", sm.printerID).Debugf("Live session ended: %s", handle)
	}
}

func stateFromSnapshot(snap printer.Snapshot) SessionState {
	return SessionState{
		Status:           snap.Status,
		Progress:         snap.Progress,
		FileName:         snap.FileName,
		RemainingMinutes: snap.RemainingMinutes,
		CurrentLayer:     snap.CurrentLayer,
		TotalLayers:      snap.TotalLayers,
		CoverImageURL:    snap.CoverImageURL,
	}
}
