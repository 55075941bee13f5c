// Package session provides live-session backends: externally-hosted
// ephemeral surfaces that mirror the current print (lock-screen style). The
// notify.SessionManager owns the calling discipline; backends here own only
// the transport.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/mqtt"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/notify"
)

type sessionDocument struct {
	Handle    string              `json:"handle"`
	Printer   string              `json:"printer"`
	StartedAt string              `json:"started_at"`
	UpdatedAt string              `json:"updated_at"`
	State     notify.SessionState `json:"state"`
}

// MQTTBackend hosts live sessions as retained MQTT documents under
// <baseTopic>/session/<printer>. Consumers (a companion app rendering a
// lock-screen surface) subscribe to the topic; an empty retained payload
// clears the session.
type MQTTBackend struct {
	client    *mqtt.Client
	baseTopic string
	logger    *logrus.Logger

	mutex    sync.Mutex
	sessions map[string]sessionDocument // handle -> document
}

func NewMQTTBackend(client *mqtt.Client, baseTopic string, logger *logrus.Logger) *MQTTBackend {
	return &MQTTBackend{
		client:    client,
		baseTopic: baseTopic,
		logger:    logger,
		sessions:  make(map[string]sessionDocument),
	}
}

func (b *MQTTBackend) Start(ctx context.Context, printerID string, state notify.SessionState) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	doc := sessionDocument{
		Handle:    uuid.NewString(),
		Printer:   printerID,
		StartedAt: now,
		UpdatedAt: now,
		State:     state,
	}

	if err := b.publish(doc); err != nil {
		return "", err
	}

	b.mutex.Lock()
	b.sessions[doc.Handle] = doc
	b.mutex.Unlock()

	return doc.Handle, nil
}

func (b *MQTTBackend) Update(ctx context.Context, handle string, state notify.SessionState) error {
	b.mutex.Lock()
	doc, ok := b.sessions[handle]
	b.mutex.Unlock()
	if !ok {
		return fmt.Errorf("unknown session handle %s", handle)
	}

	doc.State = state
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := b.publish(doc); err != nil {
		return err
	}

	b.mutex.Lock()
	b.sessions[handle] = doc
	b.mutex.Unlock()

	return nil
}

func (b *MQTTBackend) End(ctx context.Context, handle string) error {
	b.mutex.Lock()
	doc, ok := b.sessions[handle]
	delete(b.sessions, handle)
	b.mutex.Unlock()
	if !ok {
		// Ending an untracked handle is harmless.
		return nil
	}

	// Clear the retained document so subscribers drop the surface.
	return b.client.Publish(b.topic(doc.Printer), "", true)
}

func (b *MQTTBackend) publish(doc sessionDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal session document: %w", err)
	}
	return b.client.Publish(b.topic(doc.Printer), string(payload), true)
}

func (b *MQTTBackend) topic(printerID string) string {
	return fmt.Sprintf("%s/session/%s", b.baseTopic, printerID)
}
