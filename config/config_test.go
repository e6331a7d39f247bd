package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 64, cfg.Bus.QueueSize)
	assert.Equal(t, 256, cfg.Bus.DeadLetterLimit)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.ConversationTimeout.Duration)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.AgentTimeout.Duration)
	assert.Equal(t, 45*time.Second, cfg.Adaptive.ConfusionThreshold.Duration)
	assert.Equal(t, "static", cfg.Provider.AI)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
bus:
  queue_size: 128
orchestrator:
  conversation_timeout: 10s
adaptive:
  confusion_threshold: 90s
provider:
  ai: anthropic
  anthropic_model: claude-sonnet-4-20250514
`))
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Bus.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.Orchestrator.ConversationTimeout.Duration)
	assert.Equal(t, 90*time.Second, cfg.Adaptive.ConfusionThreshold.Duration)
	assert.Equal(t, "anthropic", cfg.Provider.AI)

	// Untouched sections keep their defaults.
	assert.Equal(t, 256, cfg.Bus.DeadLetterLimit)
	assert.Equal(t, 60*time.Second, cfg.Orchestrator.AgentTimeout.Duration)
}

func TestParse_RejectsUnknownProvider(t *testing.T) {
	_, err := Parse([]byte("provider:\n  ai: mystery\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate")
}

func TestParse_RejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte("agents:\n  timeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestParse_BadgerRequiresPath(t *testing.T) {
	_, err := Parse([]byte("store:\n  backend: badger\n"))
	require.Error(t, err)

	cfg, err := Parse([]byte("store:\n  backend: badger\n  path: /tmp/tutormesh\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tutormesh", cfg.Store.Path)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus:\n  queue_size: 32\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Bus.QueueSize)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
