package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bridge's prometheus collectors. One instance is shared
// across all monitored printers; series are split by the printer label.
type Metrics struct {
	Registry *prometheus.Registry

	PollTicks     *prometheus.CounterVec
	PollFailures  *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Sessions      *prometheus.CounterVec
	Progress      *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PollTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printerbridge_poll_ticks_total",
			Help: "Completed poll ticks per printer.",
		}, []string{"printer"}),
		PollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printerbridge_poll_failures_total",
			Help: "Aborted poll ticks per printer.",
		}, []string{"printer"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printerbridge_notifications_total",
			Help: "Notification events emitted, by kind.",
		}, []string{"printer", "kind"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "printerbridge_live_sessions_total",
			Help: "Live session lifecycle operations, by action (start/end).",
		}, []string{"printer", "action"}),
		Progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "printerbridge_print_progress_percent",
			Help: "Current print progress per printer.",
		}, []string{"printer"}),
	}

	m.Registry.MustRegister(m.PollTicks, m.PollFailures, m.Notifications, m.Sessions, m.Progress)
	return m
}
