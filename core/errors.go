package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode classifies agent failures for propagation and retry decisions.
type ErrorCode string

const (
	// ErrCodeInvalidMessage marks a malformed envelope (missing id, sender,
	// type or payload).
	ErrCodeInvalidMessage ErrorCode = "INVALID_MESSAGE"
	// ErrCodeUnsupportedOperation marks a payload variant the agent cannot handle.
	ErrCodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	// ErrCodeProcessing marks a generic internal failure.
	ErrCodeProcessing ErrorCode = "PROCESSING_ERROR"
	// ErrCodeTimeout marks a call that exceeded its allotted duration.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeServiceConnection marks an unreachable external collaborator.
	ErrCodeServiceConnection ErrorCode = "SERVICE_CONNECTION_FAILED"
	// ErrCodeCriticalPath marks a conversation agent failure that aborts the query.
	ErrCodeCriticalPath ErrorCode = "CRITICAL_PATH_FAILURE"
)

// AgentError is the typed failure every agent-level error is converted to at
// the message-handling boundary. MessageID binds the error to the message
// that triggered it; Retryable tells callers whether a fresh attempt could
// succeed.
type AgentError struct {
	Code      ErrorCode
	Agent     AgentType
	MessageID string
	Message   string
	Retryable bool
	Err       error
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("%s: agent %s: %s", e.Code, e.Agent, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *AgentError) Unwrap() error { return e.Err }

// NewInvalidMessageError reports a malformed envelope.
func NewInvalidMessageError(agent AgentType, messageID, detail string) *AgentError {
	return &AgentError{
		Code:      ErrCodeInvalidMessage,
		Agent:     agent,
		MessageID: messageID,
		Message:   detail,
	}
}

// NewUnsupportedOperationError reports a payload variant the agent does not handle.
func NewUnsupportedOperationError(agent AgentType, messageID string, payload Payload) *AgentError {
	return &AgentError{
		Code:      ErrCodeUnsupportedOperation,
		Agent:     agent,
		MessageID: messageID,
		Message:   fmt.Sprintf("unsupported payload %T", payload),
	}
}

// NewProcessingError wraps a generic internal failure. Processing failures
// are retryable from the caller's perspective.
func NewProcessingError(agent AgentType, messageID string, err error) *AgentError {
	return &AgentError{
		Code:      ErrCodeProcessing,
		Agent:     agent,
		MessageID: messageID,
		Message:   err.Error(),
		Retryable: true,
		Err:       err,
	}
}

// NewTimeoutError reports an exceeded deadline bound to the message id. The
// error is raised independently of whether the underlying work eventually
// completes; a late result is discarded by the first-wins listener rule.
func NewTimeoutError(agent AgentType, messageID string, d time.Duration) *AgentError {
	return &AgentError{
		Code:      ErrCodeTimeout,
		Agent:     agent,
		MessageID: messageID,
		Message:   fmt.Sprintf("processing exceeded %s", d),
		Retryable: true,
	}
}

// NewServiceConnectionError reports an unreachable external collaborator.
func NewServiceConnectionError(agent AgentType, service string, err error) *AgentError {
	return &AgentError{
		Code:      ErrCodeServiceConnection,
		Agent:     agent,
		Message:   fmt.Sprintf("service %s unreachable: %v", service, err),
		Retryable: true,
		Err:       err,
	}
}

// NewCriticalPathError marks a critical-path agent failure that aborts an
// entire query.
func NewCriticalPathError(agent AgentType, err error) *AgentError {
	return &AgentError{
		Code:    ErrCodeCriticalPath,
		Agent:   agent,
		Message: fmt.Sprintf("%s agent failed: %v", agent, err),
		Err:     err,
	}
}

// AsAgentError unwraps err to an *AgentError if one is in the chain.
func AsAgentError(err error) (*AgentError, bool) {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsTimeout reports whether err carries the Timeout code.
func IsTimeout(err error) bool {
	if ae, ok := AsAgentError(err); ok {
		return ae.Code == ErrCodeTimeout
	}
	return false
}
