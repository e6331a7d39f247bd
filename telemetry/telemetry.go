// Package telemetry exposes Prometheus collectors for bus traffic, agent
// failures, query latency and adaptive fallbacks. Collectors are built
// against an injected registerer so parallel test instances never collide on
// global state.
package telemetry

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutormesh/tutormesh/core"
)

// Recorder bundles the collectors one TutorMesh instance reports into. A nil
// *Recorder is valid and records nothing, so callers can wire it
// unconditionally.
type Recorder struct {
	messagesRouted  *prometheus.CounterVec
	deadLetters     *prometheus.CounterVec
	agentErrors     *prometheus.CounterVec
	queryDuration   prometheus.Histogram
	fallbackRetries prometheus.Counter
	trackedEvents   *prometheus.CounterVec
}

// NewRecorder registers the TutorMesh collectors with reg. Passing
// prometheus.DefaultRegisterer gives the conventional process-global metrics.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		messagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tutormesh_bus_messages_routed_total",
			Help: "Messages successfully enqueued for a recipient.",
		}, []string{"recipient"}),
		deadLetters: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tutormesh_bus_dead_letters_total",
			Help: "Messages set aside as undeliverable.",
		}, []string{"reason"}),
		agentErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tutormesh_agent_errors_total",
			Help: "Typed agent failures by agent type and error code.",
		}, []string{"agent", "code"}),
		queryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutormesh_query_duration_seconds",
			Help:    "End-to-end ProcessQuery latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		fallbackRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "tutormesh_adaptive_fallbacks_total",
			Help: "Modality fallback transitions attempted by the adaptive engine.",
		}),
		trackedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tutormesh_events_total",
			Help: "System events observed on the emitter.",
		}, []string{"type"}),
	}
}

// RecordRouted counts a message enqueued for a recipient.
func (r *Recorder) RecordRouted(recipient core.AgentType) {
	if r == nil {
		return
	}
	r.messagesRouted.WithLabelValues(string(recipient)).Inc()
}

// RecordDeadLetter counts an undeliverable message by reason.
func (r *Recorder) RecordDeadLetter(reason string) {
	if r == nil {
		return
	}
	r.deadLetters.WithLabelValues(normalizeReason(reason)).Inc()
}

// RecordAgentError counts a typed agent failure.
func (r *Recorder) RecordAgentError(agent core.AgentType, code core.ErrorCode) {
	if r == nil {
		return
	}
	r.agentErrors.WithLabelValues(string(agent), string(code)).Inc()
}

// ObserveQueryDuration records one end-to-end query latency in seconds.
func (r *Recorder) ObserveQueryDuration(seconds float64) {
	if r == nil {
		return
	}
	r.queryDuration.Observe(seconds)
}

// RecordFallback counts one modality fallback transition.
func (r *Recorder) RecordFallback() {
	if r == nil {
		return
	}
	r.fallbackRetries.Inc()
}

// Observe is an event listener counting system events by type. Subscribe it
// to the emitter to mirror the outbound event stream into metrics.
func (r *Recorder) Observe(ev core.SystemEvent) {
	if r == nil {
		return
	}
	r.trackedEvents.WithLabelValues(string(ev.Type)).Inc()
}

// normalizeReason collapses free-form dead-letter reasons to a bounded label set.
func normalizeReason(reason string) string {
	switch {
	case strings.Contains(reason, "no subscriber"):
		return "unknown_recipient"
	case strings.Contains(reason, "queue full"):
		return "queue_full"
	case strings.Contains(reason, "handler"):
		return "handler_error"
	case strings.Contains(reason, "not permitted"):
		return "routing_rejected"
	default:
		return "other"
	}
}
