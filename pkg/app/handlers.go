package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davidalonso/homeassistant-printer-bridge/pkg/config"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/httpapi"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/metrics"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/notify"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/printer"
	"github.com/davidalonso/homeassistant-printer-bridge/pkg/sink"
)

// EventHandlers connects each printer's poll monitor to the downstream
// consumers: tracker, session manager, sink, status server and metrics.
type EventHandlers struct {
	logger *logrus.Logger
}

func NewEventHandlers(logger *logrus.Logger) *EventHandlers {
	return &EventHandlers{
		logger: logger,
	}
}

// WirePrinter installs the snapshot and error callbacks for one printer.
// The monitor goroutine is the single caller of both, which serializes
// transition detection and session lifecycle per printer.
func (h *EventHandlers) WirePrinter(
	runtime *PrinterRuntime,
	eventSink *sink.MQTTSink,
	statusServer *httpapi.Server,
	m *metrics.Metrics,
) {
	runtime.Monitor.SetOnSnapshot(h.createSnapshotHandler(runtime, eventSink, statusServer, m))
	runtime.Monitor.SetOnError(h.createErrorHandler(runtime, m))
}

func (h *EventHandlers) createSnapshotHandler(
	runtime *PrinterRuntime,
	eventSink *sink.MQTTSink,
	statusServer *httpapi.Server,
	m *metrics.Metrics,
) func(printer.Snapshot, []printer.FeederStatus) {
	return func(snap printer.Snapshot, feeders []printer.FeederStatus) {
		m.PollTicks.WithLabelValues(runtime.ID).Inc()
		m.Progress.WithLabelValues(runtime.ID).Set(snap.Progress)

		events := runtime.Tracker.Observe(snap)

		h.applySession(runtime, m, snap, events)
		h.dispatchEvents(runtime, eventSink, m, events)

		if eventSink != nil {
			if err := eventSink.PublishSnapshot(runtime.ID, snap, feeders); err != nil {
				h.logger.WithField("printer", runtime.ID).WithError(err).Warn("Failed to publish snapshot")
			}
		}
		if statusServer != nil {
			statusServer.UpdatePrinter(runtime.ID, snap, feeders)
		}
	}
}

func (h *EventHandlers) applySession(
	runtime *PrinterRuntime,
	m *metrics.Metrics,
	snap printer.Snapshot,
	events []notify.Event,
) {
	wasActive := runtime.Sessions.Active()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	runtime.Sessions.Apply(ctx, snap, events)

	switch {
	case runtime.Sessions.Active() && !wasActive:
		m.Sessions.WithLabelValues(runtime.ID, "start").Inc()
	case !runtime.Sessions.Active() && wasActive:
		m.Sessions.WithLabelValues(runtime.ID, "end").Inc()
	}
}

func (h *EventHandlers) dispatchEvents(
	runtime *PrinterRuntime,
	eventSink *sink.MQTTSink,
	m *metrics.Metrics,
	events []notify.Event,
) {
	for _, event := range events {
		if !notificationEnabled(event.Kind, runtime.Config.Notifications) {
			continue
		}

		logger := h.logger.WithFields(map[string]interface{}{
			"printer": runtime.ID,
			"kind":    event.Kind,
			"file":    event.Snapshot.FileName,
		})
		if event.Kind == notify.KindMilestone {
			logger = logger.WithField("milestone", event.Milestone)
		}
		logger.Info("Print notification")

		m.Notifications.WithLabelValues(runtime.ID, string(event.Kind)).Inc()

		if eventSink != nil {
			if err := eventSink.PublishEvent(runtime.ID, event); err != nil {
				logger.WithError(err).Error("Failed to publish notification event")
			}
		}
	}
}

// notificationEnabled applies the user's per-kind toggles. The tracker and
// session manager already saw the event; this only gates user-facing
// delivery.
func notificationEnabled(kind notify.Kind, cfg config.NotificationConfig) bool {
	switch kind {
	case notify.KindStarted:
		return cfg.Started
	case notify.KindPaused:
		return cfg.Paused
	case notify.KindResumed:
		return cfg.Resumed
	case notify.KindCompleted:
		return cfg.Completed
	case notify.KindFailed:
		return cfg.Failed
	case notify.KindMilestone:
		return cfg.MilestoneInterval > 0
	default:
		return false
	}
}

func (h *EventHandlers) createErrorHandler(runtime *PrinterRuntime, m *metrics.Metrics) func(error) {
	return func(err error) {
		m.PollFailures.WithLabelValues(runtime.ID).Inc()
		h.logger.WithField("printer", runtime.ID).WithError(err).Warn("Poll tick failed")
	}
}
