package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tutormesh/tutormesh/bus"
	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/provider"
)

// State is the lifecycle state of an agent. The shutdown state is terminal.
type State int32

const (
	// StateUninitialized is the zero state before Initialize.
	StateUninitialized State = iota
	// StateInitializing covers bus subscription and tool validation.
	StateInitializing
	// StateHealthy means the agent is processing messages normally.
	StateHealthy
	// StateUnhealthy means a health check failed; processing continues but
	// the orchestrator is notified.
	StateUnhealthy
	// StateShutdown is terminal.
	StateShutdown
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Processor is the single operation a concrete agent implements: given a
// validated message, produce a response payload or fail with an error. The
// surrounding BaseAgent enforces the deadline, converts failures to typed
// errors and answers requests on the bus.
type Processor interface {
	Process(ctx context.Context, msg core.Message) (core.Payload, error)
}

// HealthChecker is the optional agent-specific health check composed with the
// base check.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Config holds per-agent tuning. Zero values are filled by DefaultConfig.
type Config struct {
	Type               core.AgentType
	MaxConcurrentTasks int
	Timeout            time.Duration
	RetryAttempts      int
	Priority           core.Priority
	RequiredTools      []string
	HealthInterval     time.Duration
	HeartbeatInterval  time.Duration
}

// DefaultConfig returns the baseline configuration for an agent type.
func DefaultConfig(agentType core.AgentType) Config {
	return Config{
		Type:               agentType,
		MaxConcurrentTasks: 4,
		Timeout:            60 * time.Second,
		RetryAttempts:      1,
		Priority:           core.PriorityMedium,
		HealthInterval:     30 * time.Second,
		HeartbeatInterval:  30 * time.Second,
	}
}

// Deps bundles the collaborators every agent needs.
type Deps struct {
	Bus      *bus.Bus
	Services provider.ServiceLayer
	Events   *core.Emitter
	Logger   logging.Logger
}

// Agent is the contract the orchestrator's registry holds. Concrete agents
// embed *BaseAgent, which provides everything except Process.
type Agent interface {
	Type() core.AgentType
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	State() State
	Metrics() MetricsSnapshot
}

// BaseAgent bundles the shared lifecycle, the timeout-guarded message
// pipeline, health checking, heartbeats and metrics. Embed it in a concrete
// agent and bind the Processor after construction. All exported methods are
// safe for concurrent use.
type BaseAgent struct {
	cfg      Config
	bus      *bus.Bus
	services provider.ServiceLayer
	events   *core.Emitter
	logger   logging.Logger

	mu          sync.Mutex
	state       State
	initialized bool

	proc    Processor
	metrics *Metrics
	sem     chan struct{}
	stop    chan struct{}
}

// NewBaseAgent constructs the shared agent core. The concrete agent must call
// bind before Initialize.
func NewBaseAgent(cfg Config, deps Deps) *BaseAgent {
	def := DefaultConfig(cfg.Type)
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = def.MaxConcurrentTasks
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = def.HealthInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &BaseAgent{
		cfg:      cfg,
		bus:      deps.Bus,
		services: deps.Services,
		events:   deps.Events,
		logger:   logger,
		state:    StateUninitialized,
		metrics:  NewMetrics(),
		sem:      make(chan struct{}, cfg.MaxConcurrentTasks),
		stop:     make(chan struct{}),
	}
}

// bind attaches the concrete processor. Called by concrete constructors.
func (b *BaseAgent) bind(p Processor) { b.proc = p }

// Type returns the agent's bus endpoint type.
func (b *BaseAgent) Type() core.AgentType { return b.cfg.Type }

// Config returns a copy of the effective configuration.
func (b *BaseAgent) Config() Config { return b.cfg }

// State returns the current lifecycle state.
func (b *BaseAgent) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Metrics returns the current metrics snapshot.
func (b *BaseAgent) Metrics() MetricsSnapshot { return b.metrics.Snapshot() }

// Initialize subscribes to the bus, validates required external tools and
// starts the periodic health check and heartbeat loops. It must not be
// called twice.
func (b *BaseAgent) Initialize(ctx context.Context) error {
	b.mu.Lock()
	if b.initialized {
		b.mu.Unlock()
		return fmt.Errorf("agent %s: initialize called twice", b.cfg.Type)
	}
	b.initialized = true
	b.state = StateInitializing
	b.mu.Unlock()

	if b.proc == nil {
		return b.failInit(errors.New("no processor bound"))
	}
	if err := b.validateTools(ctx); err != nil {
		return b.failInit(err)
	}
	if err := b.bus.Subscribe(b.cfg.Type, b.handle); err != nil {
		return b.failInit(err)
	}

	b.metrics.Start()
	go b.healthLoop()
	go b.heartbeatLoop()

	b.mu.Lock()
	b.state = StateHealthy
	b.mu.Unlock()

	b.logger.Info("agent initialized", "agent", b.cfg.Type)
	b.events.Emit(core.SystemEvent{Type: core.EventAgentInitialized, Agent: b.cfg.Type})
	return nil
}

func (b *BaseAgent) failInit(err error) error {
	b.mu.Lock()
	b.state = StateUnhealthy
	b.mu.Unlock()
	b.logger.Error("agent initialization failed", "agent", b.cfg.Type, "error", err)
	b.events.Emit(core.SystemEvent{Type: core.EventAgentInitFailed, Agent: b.cfg.Type, Err: err})
	return fmt.Errorf("agent %s: init: %w", b.cfg.Type, err)
}

// validateTools checks that every required external tool is reachable
// through the service layer's health report.
func (b *BaseAgent) validateTools(ctx context.Context) error {
	if len(b.cfg.RequiredTools) == 0 {
		return nil
	}
	health := b.services.GetHealth(ctx)
	for _, tool := range b.cfg.RequiredTools {
		if up, ok := health.Services[tool]; !ok || !up {
			return core.NewServiceConnectionError(b.cfg.Type, tool, errors.New("required tool unavailable"))
		}
	}
	return nil
}

// Shutdown unsubscribes from the bus and stops the periodic loops. The
// shutdown state is terminal; a shut-down agent cannot be re-initialized.
func (b *BaseAgent) Shutdown(context.Context) error {
	b.mu.Lock()
	if b.state == StateShutdown {
		b.mu.Unlock()
		return nil
	}
	b.state = StateShutdown
	b.mu.Unlock()

	close(b.stop)
	b.bus.Unsubscribe(b.cfg.Type)
	b.logger.Info("agent shut down", "agent", b.cfg.Type)
	return nil
}

// HealthCheck composes the base check (initialized, service layer reachable)
// with the agent-specific check when the processor implements HealthChecker.
func (b *BaseAgent) HealthCheck(ctx context.Context) error {
	b.mu.Lock()
	state := b.state
	b.mu.Unlock()
	switch state {
	case StateUninitialized, StateInitializing:
		return fmt.Errorf("agent %s: not initialized", b.cfg.Type)
	case StateShutdown:
		return fmt.Errorf("agent %s: shut down", b.cfg.Type)
	}
	if health := b.services.GetHealth(ctx); !health.OK() {
		return core.NewServiceConnectionError(b.cfg.Type, "service layer", fmt.Errorf("status %s", health.Status))
	}
	if checker, ok := b.proc.(HealthChecker); ok {
		if err := checker.CheckHealth(ctx); err != nil {
			return err
		}
	}
	return nil
}

// handle is the bus handler: it validates the envelope, runs the processor
// under the message deadline and answers requests. Failures never propagate
// as panics; they become typed errors answered on the bus.
func (b *BaseAgent) handle(ctx context.Context, msg core.Message) error {
	switch msg.Type {
	case core.MessageHeartbeat, core.MessageNotification:
		// Informational traffic; worker agents have nothing to do with it.
		return nil
	}

	if err := msg.Validate(); err != nil {
		if msg.Type == core.MessageRequest && msg.CorrelationID != "" {
			b.respondError(msg, toAgentError(b.cfg.Type, msg.ID, err))
			return nil
		}
		return err
	}

	payload, err := b.dispatch(ctx, msg)
	if err != nil {
		agentErr := toAgentError(b.cfg.Type, msg.ID, err)
		b.logger.Warn("message processing failed", "agent", b.cfg.Type, "message_id", msg.ID, "code", agentErr.Code, "error", agentErr)
		if msg.Type == core.MessageRequest {
			b.respondError(msg, agentErr)
		} else {
			b.notifyError(agentErr)
		}
		return nil
	}

	if msg.Type == core.MessageRequest {
		if routeErr := b.bus.Route(core.NewResponse(msg, b.cfg.Type, payload)); routeErr != nil {
			b.logger.Warn("response could not be routed", "agent", b.cfg.Type, "message_id", msg.ID, "error", routeErr)
		}
	}
	return nil
}

// dispatch runs the processor bounded by the message-specific deadline
// (envelope override, else the configured default). The result channel is
// buffered so a late result after timeout is discarded without leaking the
// goroutine; the timeout error stays bound to the message id regardless of
// whether the work eventually finishes.
func (b *BaseAgent) dispatch(ctx context.Context, msg core.Message) (core.Payload, error) {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return nil, core.NewTimeoutError(b.cfg.Type, msg.ID, 0)
	case <-b.stop:
		return nil, fmt.Errorf("agent %s: shutting down", b.cfg.Type)
	}

	timeout := msg.Timeout
	if timeout <= 0 {
		timeout = b.cfg.Timeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		payload core.Payload
		err     error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		p, err := b.proc.Process(cctx, msg)
		done <- result{payload: p, err: err}
	}()

	select {
	case r := <-done:
		b.metrics.Record(time.Since(start), r.err != nil)
		return r.payload, r.err
	case <-cctx.Done():
		b.metrics.Record(time.Since(start), true)
		return nil, core.NewTimeoutError(b.cfg.Type, msg.ID, timeout)
	}
}

func (b *BaseAgent) respondError(req core.Message, agentErr *core.AgentError) {
	if err := b.bus.Route(core.NewErrorResponse(req, b.cfg.Type, agentErr)); err != nil {
		b.logger.Warn("error response could not be routed", "agent", b.cfg.Type, "message_id", req.ID, "error", err)
	}
}

// notifyError reports a non-request failure to the orchestrator so it still
// observes errors that have no waiting caller.
func (b *BaseAgent) notifyError(agentErr *core.AgentError) {
	msg := core.NewNotification(b.cfg.Type, core.AgentOrchestrator, core.ErrorPayload{
		Code:      agentErr.Code,
		Message:   agentErr.Message,
		Retryable: agentErr.Retryable,
	})
	msg.Type = core.MessageError
	_ = b.bus.Route(msg)
}

func (b *BaseAgent) healthLoop() {
	ticker := time.NewTicker(b.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := b.HealthCheck(ctx)
			cancel()

			b.mu.Lock()
			if b.state == StateShutdown {
				b.mu.Unlock()
				return
			}
			if err != nil {
				b.state = StateUnhealthy
			} else if b.state == StateUnhealthy {
				b.state = StateHealthy
			}
			state := b.state
			b.mu.Unlock()

			if err != nil {
				b.logger.Warn("health check failed", "agent", b.cfg.Type, "error", err)
				b.events.Emit(core.SystemEvent{Type: core.EventAgentUnhealthy, Agent: b.cfg.Type, Err: err})
			} else if state == StateHealthy {
				b.logger.Debug("health check passed", "agent", b.cfg.Type)
			}
		}
	}
}

func (b *BaseAgent) heartbeatLoop() {
	ticker := time.NewTicker(b.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			_ = b.bus.Route(core.NewHeartbeat(b.cfg.Type))
		}
	}
}

// toAgentError converts any processing failure to a typed *core.AgentError,
// preserving one that is already typed.
func toAgentError(agent core.AgentType, messageID string, err error) *core.AgentError {
	if ae, ok := core.AsAgentError(err); ok {
		return ae
	}
	return core.NewProcessingError(agent, messageID, err)
}
