// Package config loads and validates the YAML runtime configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// BusConfig tunes the message bus.
type BusConfig struct {
	QueueSize       int `yaml:"queue_size" validate:"gt=0"`
	DeadLetterLimit int `yaml:"dead_letter_limit" validate:"gt=0"`
}

// OrchestratorConfig tunes the query coordinator.
type OrchestratorConfig struct {
	ConversationTimeout Duration `yaml:"conversation_timeout"`
	AgentTimeout        Duration `yaml:"agent_timeout"`
	HealthInterval      Duration `yaml:"health_interval"`
}

// AgentConfig tunes the shared worker agent defaults.
type AgentConfig struct {
	MaxConcurrentTasks int      `yaml:"max_concurrent_tasks" validate:"gt=0"`
	Timeout            Duration `yaml:"timeout"`
	HealthInterval     Duration `yaml:"health_interval"`
	HeartbeatInterval  Duration `yaml:"heartbeat_interval"`
}

// AdaptiveConfig tunes the fallback engine.
type AdaptiveConfig struct {
	AttemptTimeout     Duration `yaml:"attempt_timeout"`
	ConfusionThreshold Duration `yaml:"confusion_threshold"`
}

// ProviderConfig selects the AI backend.
type ProviderConfig struct {
	AI             string `yaml:"ai" validate:"oneof=static anthropic openai"`
	AnthropicModel string `yaml:"anthropic_model"`
	OpenAIModel    string `yaml:"openai_model"`
}

// StoreConfig selects user-model persistence.
type StoreConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory badger"`
	Path    string `yaml:"path" validate:"required_if=Backend badger"`
}

// Config is the full runtime configuration.
type Config struct {
	Bus          BusConfig          `yaml:"bus"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Agents       AgentConfig        `yaml:"agents"`
	Adaptive     AdaptiveConfig     `yaml:"adaptive"`
	Provider     ProviderConfig     `yaml:"provider"`
	Store        StoreConfig        `yaml:"store"`
}

// Default returns the baseline configuration every load starts from.
func Default() Config {
	return Config{
		Bus: BusConfig{
			QueueSize:       64,
			DeadLetterLimit: 256,
		},
		Orchestrator: OrchestratorConfig{
			ConversationTimeout: Duration{30 * time.Second},
			AgentTimeout:        Duration{60 * time.Second},
			HealthInterval:      Duration{30 * time.Second},
		},
		Agents: AgentConfig{
			MaxConcurrentTasks: 4,
			Timeout:            Duration{60 * time.Second},
			HealthInterval:     Duration{30 * time.Second},
			HeartbeatInterval:  Duration{30 * time.Second},
		},
		Adaptive: AdaptiveConfig{
			AttemptTimeout:     Duration{30 * time.Second},
			ConfusionThreshold: Duration{45 * time.Second},
		},
		Provider: ProviderConfig{
			AI: "static",
		},
		Store: StoreConfig{
			Backend: "memory",
		},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}
