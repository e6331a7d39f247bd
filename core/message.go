package core

import (
	"time"
)

// MessageType categorizes a bus message envelope.
type MessageType string

const (
	// MessageRequest expects a correlated response.
	MessageRequest MessageType = "REQUEST"
	// MessageResponse answers a previous request, echoing its correlation ID.
	MessageResponse MessageType = "RESPONSE"
	// MessageNotification is one-way and never answered.
	MessageNotification MessageType = "NOTIFICATION"
	// MessageError reports an agent failure to the orchestrator.
	MessageError MessageType = "ERROR"
	// MessageHeartbeat is a periodic liveness signal.
	MessageHeartbeat MessageType = "HEARTBEAT"
	// MessageTaskAssignment hands a unit of background work to an agent.
	MessageTaskAssignment MessageType = "TASK_ASSIGNMENT"
)

// Priority orders competing messages for an agent.
type Priority int

const (
	// PriorityLow is background work.
	PriorityLow Priority = iota
	// PriorityMedium is the default.
	PriorityMedium
	// PriorityHigh is interactive, latency-sensitive work.
	PriorityHigh
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Message is the envelope routed between bus endpoints. After it is handed to
// the bus it must be treated as immutable.
//
// Every REQUEST that expects a reply carries a CorrelationID unique among
// in-flight requests; the response echoes it. Timeout, when non-zero,
// overrides the receiving agent's configured processing deadline for this
// message only.
type Message struct {
	ID            string        `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	Sender        AgentType     `json:"sender"`
	Recipient     AgentType     `json:"recipient"`
	Type          MessageType   `json:"type"`
	Priority      Priority      `json:"priority"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	Timeout       time.Duration `json:"timeout,omitempty"`
	Payload       Payload       `json:"payload"`
}

// NewRequest creates a REQUEST envelope carrying the given correlation ID.
func NewRequest(sender, recipient AgentType, correlationID string, payload Payload) Message {
	return Message{
		ID:            NewID(),
		Timestamp:     time.Now().UTC(),
		Sender:        sender,
		Recipient:     recipient,
		Type:          MessageRequest,
		Priority:      PriorityMedium,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

// NewResponse answers a request, echoing its correlation ID back to the sender.
func NewResponse(req Message, sender AgentType, payload Payload) Message {
	return Message{
		ID:            NewID(),
		Timestamp:     time.Now().UTC(),
		Sender:        sender,
		Recipient:     req.Sender,
		Type:          MessageResponse,
		Priority:      req.Priority,
		CorrelationID: req.CorrelationID,
		Payload:       payload,
	}
}

// NewErrorResponse answers a request with a typed agent error. The response
// carries the failing message's correlation ID so the waiting caller settles.
func NewErrorResponse(req Message, sender AgentType, agentErr *AgentError) Message {
	return Message{
		ID:            NewID(),
		Timestamp:     time.Now().UTC(),
		Sender:        sender,
		Recipient:     req.Sender,
		Type:          MessageError,
		Priority:      req.Priority,
		CorrelationID: req.CorrelationID,
		Payload: ErrorPayload{
			Code:      agentErr.Code,
			Message:   agentErr.Message,
			Retryable: agentErr.Retryable,
		},
	}
}

// NewNotification creates a one-way NOTIFICATION envelope.
func NewNotification(sender, recipient AgentType, payload Payload) Message {
	return Message{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Sender:    sender,
		Recipient: recipient,
		Type:      MessageNotification,
		Priority:  PriorityLow,
		Payload:   payload,
	}
}

// NewHeartbeat creates a liveness signal from an agent to the orchestrator.
func NewHeartbeat(sender AgentType) Message {
	return Message{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Sender:    sender,
		Recipient: AgentOrchestrator,
		Type:      MessageHeartbeat,
		Priority:  PriorityLow,
		Payload:   HeartbeatPayload{Agent: sender, SentAt: time.Now().UTC()},
	}
}

// Validate checks the envelope for the fields every message must carry.
// A malformed envelope is rejected with an InvalidMessage error before any
// payload handling happens.
func (m Message) Validate() error {
	switch {
	case m.ID == "":
		return NewInvalidMessageError(m.Recipient, m.ID, "missing message id")
	case m.Sender == "":
		return NewInvalidMessageError(m.Recipient, m.ID, "missing sender")
	case m.Type == "":
		return NewInvalidMessageError(m.Recipient, m.ID, "missing message type")
	case m.Payload == nil:
		return NewInvalidMessageError(m.Recipient, m.ID, "missing payload")
	}
	return nil
}
