// Package metrics registers the Prometheus collectors the engine updates
// as it dispatches frames, reports errors, times out sessions and hands
// out pool slots: register-once package-level collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FramesDispatched counts successfully dispatched frames, labeled by
	// command mnemonic.
	FramesDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfu",
		Subsystem: "engine",
		Name:      "frames_dispatched_total",
		Help:      "Frames dispatched to a handler, by command.",
	}, []string{"command"})

	// ErrorsReported counts errors surfaced via the engine's error
	// callback, labeled by ErrorKind.
	ErrorsReported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfu",
		Subsystem: "engine",
		Name:      "errors_reported_total",
		Help:      "Errors reported through the engine's error callback, by kind.",
	}, []string{"kind"})

	// SessionTimeouts counts idle/starting session-timer expirations.
	SessionTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dfu",
		Subsystem: "engine",
		Name:      "session_timeouts_total",
		Help:      "Session timer expirations, by the state they fired from.",
	}, []string{"from_state"})

	// InstancesInUse gauges how many pool slots are currently reserved.
	InstancesInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dfu",
		Subsystem: "engine",
		Name:      "instances_in_use",
		Help:      "Protocol engine instances currently reserved from the pool.",
	})
)

// MustRegister registers all engine collectors against reg. Calling this
// is optional — an engine embedded in a bootloader without a metrics
// scrape endpoint can skip it and the counters simply accumulate unread
// in memory.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(FramesDispatched, ErrorsReported, SessionTimeouts, InstancesInUse)
}
