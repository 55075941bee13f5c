// Package sink publishes resolved printer state to MQTT for downstream
// presentation (dashboards, companion apps). It treats snapshots as
// immutable values: everything is marshaled, nothing is retained by
// reference beyond the republish cache.
package sink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/mqtt"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/notify"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
)

type statePayload struct {
	Snapshot printer.Snapshot       `json:"snapshot"`
	Feeders  []printer.FeederStatus `json:"feeders,omitempty"`
}

// MQTTSink publishes snapshots with their feeder readings to
// <base>/<printer>/state (retained) and notification events to
// <base>/<printer>/event.
type MQTTSink struct {
	client    *mqtt.Client
	baseTopic string
	logger    *logrus.Logger

	mutex     sync.Mutex
	lastState map[string]string // printer id -> marshaled state payload
}

func NewMQTTSink(client *mqtt.Client, baseTopic string, logger *logrus.Logger) *MQTTSink {
	return &MQTTSink{
		client:    client,
		baseTopic: baseTopic,
		logger:    logger,
		lastState: make(map[string]string),
	}
}

// Start registers the reconnect republish hook (implements the app Service
// interface).
func (s *MQTTSink) Start() error {
	s.client.SetOnConnectCallback(s.republish)
	return nil
}

func (s *MQTTSink) Stop() error {
	return nil
}

// PublishSnapshot publishes one tick's resolved state.
func (s *MQTTSink) PublishSnapshot(printerID string, snap printer.Snapshot, feeders []printer.FeederStatus) error {
	payload, err := json.Marshal(statePayload{Snapshot: snap, Feeders: feeders})
	if err != nil {
		return fmt.Errorf("failed to marshal state payload: %w", err)
	}

	s.mutex.Lock()
	s.lastState[printerID] = string(payload)
	s.mutex.Unlock()

	if !s.client.IsConnected() {
		return nil
	}

	return s.client.Publish(s.stateTopic(printerID), string(payload), true)
}

// PublishEvent publishes a notification event. Events are delivered with
// retry: a transition lost to a reconnect window never fires again.
func (s *MQTTSink) PublishEvent(printerID string, event notify.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/event", s.baseTopic, printerID)
	return s.client.PublishWithRetry(topic, string(payload), 3, 2*time.Second)
}

// republish restores the retained state topics after a reconnect.
func (s *MQTTSink) republish() {
	s.mutex.Lock()
	states := make(map[string]string, len(s.lastState))
	for id, payload := range s.lastState {
		states[id] = payload
	}
	s.mutex.Unlock()

	for id, payload := range states {
		if err := s.client.Publish(s.stateTopic(id), payload, true); err != nil {
			s.logger.WithField("printer", id).WithError(err).Warn("Failed to republish state after reconnect")
		}
	}
}

func (s *MQTTSink) stateTopic(printerID string) string {
	return fmt.Sprintf("%s/%s/state", s.baseTopic, printerID)
}
