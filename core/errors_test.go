package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCriticalPathError(t *testing.T) {
	cause := errors.New("no subscriber")
	err := NewCriticalPathError(AgentConversation, cause)

	assert.Equal(t, ErrCodeCriticalPath, err.Code)
	assert.Equal(t, AgentConversation, err.Agent)
	assert.Contains(t, err.Message, string(AgentConversation))
	assert.False(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
}

func TestNewCriticalPathError_CarriesAgent(t *testing.T) {
	err := NewCriticalPathError(AgentContentSpecialist, errors.New("boom"))
	assert.Equal(t, AgentContentSpecialist, err.Agent)
	assert.Contains(t, err.Message, string(AgentContentSpecialist))
}

func TestAsAgentError(t *testing.T) {
	inner := NewTimeoutError(AgentVisualLearning, "m-1", 0)
	wrapped := fmt.Errorf("request failed: %w", inner)

	got, ok := AsAgentError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeTimeout, got.Code)
	assert.Equal(t, AgentVisualLearning, got.Agent)
	assert.True(t, got.Retryable)

	_, ok = AsAgentError(errors.New("plain"))
	assert.False(t, ok)
}
