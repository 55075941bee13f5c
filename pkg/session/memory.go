package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/notify"
)

// MemoryBackend tracks sessions in memory and logs lifecycle changes. Used
// when no MQTT broker is configured, so the session state machine still runs
// with the same discipline.
type MemoryBackend struct {
	logger *logrus.Logger

	mutex    sync.Mutex
	sessions map[string]string // handle -> printer
}

func NewMemoryBackend(logger *logrus.Logger) *MemoryBackend {
	return &MemoryBackend{
		logger:   logger,
		sessions: make(map[string]string),
	}
}

func (b *MemoryBackend) Start(ctx context.Context, printerID string, state notify.SessionState) (string, error) {
	handle := uuid.NewString()

	b.mutex.Lock()
	b.sessions[handle] = printerID
	b.mutex.Unlock()

	b.logger.WithField("printer", printerID).Infof("Live session started for %q", state.FileName)
	return handle, nil
}

func (b *MemoryBackend) Update(ctx context.Context, handle string, state notify.SessionState) error {
	return nil
}

func (b *MemoryBackend) End(ctx context.Context, handle string) error {
	b.mutex.Lock()
	printerID, ok := b.sessions[handle]
	delete(b.sessions, handle)
	b.mutex.Unlock()

	if ok {
		b.logger.WithField("printer", printerID).Info("Live session ended")
	}
	return nil
}
