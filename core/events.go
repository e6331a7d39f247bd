package core

import (
	"sync"
	"time"
)

// EventType names an observable system event. These are telemetry signals for
// collaborators, not bus messages; delivery makes no ordering guarantee.
type EventType string

const (
	// EventAgentInitialized fires when an agent completes initialization.
	EventAgentInitialized EventType = "agent_initialized"
	// EventAgentInitFailed fires when agent initialization fails.
	EventAgentInitFailed EventType = "agent_init_failed"
	// EventMessageDeadLettered fires when a message has no reachable recipient.
	EventMessageDeadLettered EventType = "message_dead_lettered"
	// EventMessageDeliveryFailed fires when a recipient's handler rejects a message.
	EventMessageDeliveryFailed EventType = "message_delivery_failed"
	// EventAgentUnhealthy fires when a health check finds an agent degraded.
	EventAgentUnhealthy EventType = "agent_unhealthy"
	// EventHealthCheckFailed fires when a health check itself errors.
	EventHealthCheckFailed EventType = "health_check_failed"
	// EventAgentError fires when an agent call inside a query fails.
	EventAgentError EventType = "agent_error"
	// EventQueryProcessed fires when a query completes with a merged response.
	EventQueryProcessed EventType = "query_processed"
	// EventQueryFailed fires when a query falls back to the degraded response.
	EventQueryFailed EventType = "query_failed"
	// EventLearningMilestone fires on a notable per-user learning signal.
	EventLearningMilestone EventType = "learning_milestone"
	// EventConceptMastered fires when a user's success rate crosses the
	// mastery threshold for a modality.
	EventConceptMastered EventType = "concept_mastered"
	// EventConfusionSuspected is the advisory signal from an expired
	// confusion timer. It never mutates already-delivered content.
	EventConfusionSuspected EventType = "confusion_suspected"
)

// SystemEvent is one observable occurrence. Fields beyond Type are populated
// only where meaningful for that event type.
type SystemEvent struct {
	Type      EventType
	Agent     AgentType
	MessageID string
	UserID    string
	Concept   string
	Err       error
	Detail    map[string]string
	Timestamp time.Time
}

// EventListener observes system events. Listeners must not block; slow
// consumers should hand off to their own goroutine.
type EventListener func(SystemEvent)

// Emitter is an explicit observer registry fanning system events out to every
// subscribed listener. Fan-out order is unspecified. A nil *Emitter is valid
// and drops all events, so components can treat it as always present.
type Emitter struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]EventListener
}

// NewEmitter creates an empty event registry.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[int]EventListener)}
}

// Subscribe registers a listener and returns its cancel function. Cancel is
// idempotent.
func (e *Emitter) Subscribe(fn EventListener) func() {
	if e == nil || fn == nil {
		return func() {}
	}
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Emit delivers the event to every registered listener. The timestamp is
// stamped here if the caller left it zero.
func (e *Emitter) Emit(ev SystemEvent) {
	if e == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	e.mu.RLock()
	listeners := make([]EventListener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
