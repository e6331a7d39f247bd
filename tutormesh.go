// Package tutormesh provides a high-level façade over the message bus, the
// agent workers, the query orchestrator and the adaptive content engine.
// Most applications interact with this package by:
//  1. Creating a TutorMesh via New() (optionally overriding defaults)
//  2. Starting it with Start, which wires and initializes every agent
//  3. Calling ProcessQuery for tutoring turns and GenerateAdaptiveContent
//     for modality-adaptive explanations
//
// All defaults are safe for local development and testing: static service
// backends, an in-memory user-model store and a no-op logger. Production
// deployments typically supply an AI-backed provider layer, a durable store
// and a structured logger.
package tutormesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/tutormesh/tutormesh/adaptive"
	"github.com/tutormesh/tutormesh/agent"
	"github.com/tutormesh/tutormesh/bayes"
	"github.com/tutormesh/tutormesh/bus"
	"github.com/tutormesh/tutormesh/config"
	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/orchestrator"
	"github.com/tutormesh/tutormesh/provider"
	"github.com/tutormesh/tutormesh/store"
	"github.com/tutormesh/tutormesh/telemetry"
)

// Options configures the TutorMesh instance.
type Options struct {
	// Config supplies timeouts and buffer sizes. Defaults to config.Default().
	Config config.Config
	// Services backs the agents' tool calls. Defaults to the static layer.
	Services provider.ServiceLayer
	// Store persists per-user belief state. Defaults to in-memory.
	Store core.UserModelStore
	// Events is the shared system event emitter. Defaults to a fresh one.
	Events *core.Emitter
	// Telemetry records counters and latencies. Optional.
	Telemetry *telemetry.Recorder
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// TutorMesh aggregates the bus, the six agents, the orchestrator, the
// Bayesian predictor and the adaptive engine behind one setup call.
type TutorMesh struct {
	opts      Options
	bus       *bus.Bus
	orch      *orchestrator.Orchestrator
	predictor *bayes.Predictor
	engine    *adaptive.Engine
	agents    []agent.Agent
}

// New creates a TutorMesh with optional overrides. Any unset collaborator is
// initialized with its in-process default.
func New(optFns ...func(o *Options)) *TutorMesh {
	opts := Options{
		Config:   config.Default(),
		Services: provider.Static(),
		Store:    store.NewInMemoryStore(),
		Events:   core.NewEmitter(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	b := bus.New(func(o *bus.Options) {
		o.QueueSize = opts.Config.Bus.QueueSize
		o.DeadLetterLimit = opts.Config.Bus.DeadLetterLimit
		o.Events = opts.Events
		o.Telemetry = opts.Telemetry
		o.Logger = opts.Logger
	})

	predictor := bayes.New(func(o *bayes.Options) {
		o.Store = opts.Store
		o.Events = opts.Events
		o.Logger = opts.Logger
	})

	engine := adaptive.NewEngine(func(o *adaptive.Options) {
		o.Ranker = predictor
		o.Recorder = predictor
		o.Events = opts.Events
		o.Telemetry = opts.Telemetry
		o.Logger = opts.Logger
		o.AttemptTimeout = opts.Config.Adaptive.AttemptTimeout.Duration
		o.ConfusionThreshold = opts.Config.Adaptive.ConfusionThreshold.Duration
	})

	orch := orchestrator.New(b, func(o *orchestrator.Options) {
		o.Events = opts.Events
		o.Telemetry = opts.Telemetry
		o.Services = opts.Services
		o.Logger = opts.Logger
		o.ConversationTimeout = opts.Config.Orchestrator.ConversationTimeout.Duration
		o.AgentTimeout = opts.Config.Orchestrator.AgentTimeout.Duration
		o.HealthInterval = opts.Config.Orchestrator.HealthInterval.Duration
	})

	deps := agent.Deps{
		Bus:      b,
		Services: opts.Services,
		Events:   opts.Events,
		Logger:   opts.Logger,
	}
	tune := func(c *agent.Config) {
		c.MaxConcurrentTasks = opts.Config.Agents.MaxConcurrentTasks
		c.Timeout = opts.Config.Agents.Timeout.Duration
		c.HealthInterval = opts.Config.Agents.HealthInterval.Duration
		c.HeartbeatInterval = opts.Config.Agents.HeartbeatInterval.Duration
	}
	agents := []agent.Agent{
		agent.NewConversationAgent(deps, tune),
		agent.NewContentSpecialistAgent(deps, tune),
		agent.NewVisualLearningAgent(deps, tune),
		agent.NewAssessmentAgent(deps, tune),
		agent.NewResourceAgent(deps, tune),
		agent.NewPedagogyAgent(deps, tune),
	}
	orch.Register(agents...)

	return &TutorMesh{
		opts:      opts,
		bus:       b,
		orch:      orch,
		predictor: predictor,
		engine:    engine,
		agents:    agents,
	}
}

// Start brings up the orchestrator endpoint and initializes every registered
// agent. A failed agent aborts startup; already-initialized agents are shut
// down before the error is returned.
func (m *TutorMesh) Start(ctx context.Context) error {
	if err := m.orch.Start(ctx); err != nil {
		return err
	}
	for i, a := range m.agents {
		if err := a.Initialize(ctx); err != nil {
			for _, started := range m.agents[:i] {
				_ = started.Shutdown(ctx)
			}
			_ = m.orch.Stop(ctx)
			return fmt.Errorf("tutormesh: initialize %s: %w", a.Type(), err)
		}
	}
	return nil
}

// ProcessQuery runs one tutoring turn through the staged agent pipeline.
func (m *TutorMesh) ProcessQuery(ctx context.Context, text string, queryCtx core.QueryContext) (core.TutorResponse, error) {
	return m.orch.ProcessQuery(ctx, text, queryCtx)
}

// GenerateAdaptiveContent produces content for a concept, walking the
// modality fallback chain until an attempt succeeds.
func (m *TutorMesh) GenerateAdaptiveContent(ctx context.Context, userID string, analysis core.ConceptAnalysis) (core.GeneratedContent, error) {
	return m.engine.GenerateAdaptiveContent(ctx, userID, analysis)
}

// PredictBestModality ranks modalities for a user and concept without
// generating anything.
func (m *TutorMesh) PredictBestModality(ctx context.Context, userID string, analysis core.ConceptAnalysis) (core.Recommendation, error) {
	return m.predictor.PredictBestModality(ctx, userID, analysis)
}

// RecordInteraction folds one observed learning interaction into the user's
// belief state.
func (m *TutorMesh) RecordInteraction(ctx context.Context, rec core.InteractionRecord) error {
	return m.predictor.UpdateBeliefsAfterInteraction(ctx, rec)
}

// StartAdaptiveSession arms the confusion timer for a content view.
func (m *TutorMesh) StartAdaptiveSession(userID, contentID, concept string) {
	m.engine.StartAdaptiveSession(userID, contentID, concept)
}

// StopAdaptiveSession cancels the confusion timer for a content view.
func (m *TutorMesh) StopAdaptiveSession(userID, contentID string) {
	m.engine.StopAdaptiveSession(userID, contentID)
}

// Events exposes the shared emitter so callers can observe system events.
func (m *TutorMesh) Events() *core.Emitter {
	return m.opts.Events
}

// Predictor exposes the underlying belief model for history and confidence
// interval queries.
func (m *TutorMesh) Predictor() *bayes.Predictor {
	return m.predictor
}

// Shutdown stops the orchestrator, shuts every agent down, cancels pending
// confusion timers and closes the store. All errors are joined.
func (m *TutorMesh) Shutdown(ctx context.Context) error {
	var errs []error
	if err := m.orch.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, a := range m.agents {
		if err := a.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", a.Type(), err))
		}
	}
	m.engine.Close()
	if err := m.opts.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
