package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tutormesh/tutormesh/agent"
	"github.com/tutormesh/tutormesh/bus"
	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/provider"
	"github.com/tutormesh/tutormesh/telemetry"
)

// Options configures an Orchestrator.
type Options struct {
	// Events receives query lifecycle and health events. Optional.
	Events *core.Emitter
	// Telemetry records latencies and agent errors. Optional.
	Telemetry *telemetry.Recorder
	// Services receives fire-and-forget analytics events for processed and
	// failed queries. Optional.
	Services provider.ServiceLayer
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// ConversationTimeout bounds the critical-path conversation call.
	ConversationTimeout time.Duration
	// AgentTimeout bounds every other per-agent call.
	AgentTimeout time.Duration
	// HealthInterval is the period of the agent health sweep.
	HealthInterval time.Duration
}

// Orchestrator owns the agent registry, correlates request/response pairs on
// the bus and runs the staged query plan. Safe for concurrent use; queries
// from different callers interleave freely.
type Orchestrator struct {
	bus       *bus.Bus
	events    *core.Emitter
	telemetry *telemetry.Recorder
	services  provider.ServiceLayer
	logger    logging.Logger

	convTimeout    time.Duration
	agentTimeout   time.Duration
	healthInterval time.Duration

	mu         sync.Mutex
	agents     map[core.AgentType]agent.Agent
	pending    map[string]chan core.Message
	heartbeats map[core.AgentType]time.Time
	started    bool
	stop       chan struct{}
}

// New constructs an Orchestrator on the given bus.
func New(b *bus.Bus, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Logger:              logging.NoOpLogger{},
		ConversationTimeout: 30 * time.Second,
		AgentTimeout:        60 * time.Second,
		HealthInterval:      30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Orchestrator{
		bus:            b,
		events:         opts.Events,
		telemetry:      opts.Telemetry,
		services:       opts.Services,
		logger:         opts.Logger,
		convTimeout:    opts.ConversationTimeout,
		agentTimeout:   opts.AgentTimeout,
		healthInterval: opts.HealthInterval,
		agents:         make(map[core.AgentType]agent.Agent),
		pending:        make(map[string]chan core.Message),
		heartbeats:     make(map[core.AgentType]time.Time),
		stop:           make(chan struct{}),
	}
}

// Register adds agents to the registry. Registration does not initialize
// them; the caller owns agent lifecycles.
func (o *Orchestrator) Register(agents ...agent.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range agents {
		o.agents[a.Type()] = a
	}
}

// Agents returns a snapshot of the registered agents.
func (o *Orchestrator) Agents() []agent.Agent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]agent.Agent, 0, len(o.agents))
	for _, a := range o.agents {
		out = append(out, a)
	}
	return out
}

// Start subscribes the orchestrator endpoint on the bus and begins the
// health sweep. It must be called once before ProcessQuery.
func (o *Orchestrator) Start(context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: already started")
	}
	o.started = true
	o.mu.Unlock()

	if err := o.bus.Subscribe(core.AgentOrchestrator, o.handle); err != nil {
		return fmt.Errorf("orchestrator: subscribe: %w", err)
	}
	go o.healthSweepLoop()
	o.logger.Info("orchestrator started")
	return nil
}

// Stop halts the health sweep and unsubscribes from the bus. In-flight
// queries settle through their own timeouts.
func (o *Orchestrator) Stop(context.Context) error {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return nil
	}
	o.started = false
	o.mu.Unlock()

	close(o.stop)
	o.bus.Unsubscribe(core.AgentOrchestrator)
	o.logger.Info("orchestrator stopped")
	return nil
}

// handle is the orchestrator's bus endpoint: responses and error responses
// resolve their pending correlation slot; uncorrelated errors and heartbeats
// feed the event stream and liveness table. A response arriving after its
// slot is gone is a late arrival and is dropped.
func (o *Orchestrator) handle(_ context.Context, msg core.Message) error {
	switch msg.Type {
	case core.MessageResponse, core.MessageError:
		if msg.CorrelationID != "" {
			o.resolve(msg)
			return nil
		}
		if ep, ok := msg.Payload.(core.ErrorPayload); ok {
			o.recordAgentError(msg.Sender, ep)
		}
	case core.MessageHeartbeat:
		o.mu.Lock()
		o.heartbeats[msg.Sender] = time.Now()
		o.mu.Unlock()
	}
	return nil
}

func (o *Orchestrator) resolve(msg core.Message) {
	o.mu.Lock()
	ch, ok := o.pending[msg.CorrelationID]
	if ok {
		delete(o.pending, msg.CorrelationID)
	}
	o.mu.Unlock()

	if !ok {
		o.logger.Debug("late response dropped", "correlation_id", msg.CorrelationID, "sender", msg.Sender)
		return
	}
	ch <- msg
}

func (o *Orchestrator) recordAgentError(sender core.AgentType, ep core.ErrorPayload) {
	o.logger.Warn("agent reported error", "agent", sender, "code", ep.Code, "error", ep.Message)
	o.telemetry.RecordAgentError(sender, ep.Code)
	o.events.Emit(core.SystemEvent{
		Type:   core.EventAgentError,
		Agent:  sender,
		Err:    fmt.Errorf("%s: %s", ep.Code, ep.Message),
		Detail: map[string]string{"retryable": fmt.Sprintf("%t", ep.Retryable)},
	})
}

// LastHeartbeat reports when the agent last announced liveness.
func (o *Orchestrator) LastHeartbeat(at core.AgentType) (time.Time, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.heartbeats[at]
	return t, ok
}

// request sends one correlated request and waits for its answer or the
// deadline. The correlation slot is registered before the send and removed
// on first match or timeout, so a late answer finds no slot and is dropped.
func (o *Orchestrator) request(ctx context.Context, recipient core.AgentType, corrID string, payload core.Payload, timeout time.Duration) (core.Message, error) {
	ch := make(chan core.Message, 1)
	o.mu.Lock()
	o.pending[corrID] = ch
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.pending, corrID)
		o.mu.Unlock()
	}()

	req := core.NewRequest(core.AgentOrchestrator, recipient, corrID, payload)
	req.Timeout = timeout
	if err := o.bus.Route(req); err != nil {
		return core.Message{}, fmt.Errorf("orchestrator: route to %s: %w", recipient, err)
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case resp := <-ch:
		if resp.Type == core.MessageError {
			ep, _ := resp.Payload.(core.ErrorPayload)
			return core.Message{}, &core.AgentError{
				Code:      ep.Code,
				Agent:     recipient,
				MessageID: req.ID,
				Message:   ep.Message,
				Retryable: ep.Retryable,
			}
		}
		return resp, nil
	case <-cctx.Done():
		return core.Message{}, core.NewTimeoutError(recipient, req.ID, timeout)
	}
}

// ProcessQuery answers one student query end to end. The conversation call
// is the critical path: its failure short-circuits to the degraded response.
// Stage failures elsewhere are tolerated and reflected in the response
// metadata.
func (o *Orchestrator) ProcessQuery(ctx context.Context, text string, queryCtx core.QueryContext) (core.TutorResponse, error) {
	requestID := core.NewID()
	start := time.Now()
	log := o.logger
	log.Info("query received", "request_id", requestID, "user_id", queryCtx.UserID)

	convResp, err := o.request(ctx, core.AgentConversation,
		correlationID(requestID, core.AgentConversation),
		core.AnalyzeQueryPayload{Text: text, Context: queryCtx},
		o.convTimeout)
	if err != nil {
		return o.failQuery(ctx, requestID, queryCtx, start, core.NewCriticalPathError(core.AgentConversation, err)), nil
	}
	analysis, ok := convResp.Payload.(core.QueryAnalysisPayload)
	if !ok {
		return o.failQuery(ctx, requestID, queryCtx, start,
			core.NewCriticalPathError(core.AgentConversation, fmt.Errorf("unexpected payload %T", convResp.Payload))), nil
	}

	contributions := map[core.AgentType]core.Contribution{
		core.AgentConversation: analysis.Contribution,
	}
	var failed []core.AgentType

	for _, stage := range buildPlan(analysis.Query) {
		for at, res := range o.dispatchStage(ctx, requestID, stage, analysis.Query, queryCtx) {
			if res.err != nil {
				failed = append(failed, at)
				log.Warn("stage call failed", "request_id", requestID, "agent", at, "error", res.err)
				if ae, ok := core.AsAgentError(res.err); ok {
					o.telemetry.RecordAgentError(at, ae.Code)
				}
				o.events.Emit(core.SystemEvent{Type: core.EventAgentError, Agent: at, Err: res.err})
				continue
			}
			contributions[at] = res.contribution
		}
	}

	response := synthesize(analysis.Query, contributions)
	response.Metadata = core.ResponseMetadata{
		RequestID:      requestID,
		AgentsInvolved: contributionOrder(contributions),
		FailedAgents:   failed,
		Duration:       time.Since(start),
	}

	o.telemetry.ObserveQueryDuration(time.Since(start).Seconds())
	o.events.Emit(core.SystemEvent{
		Type:   core.EventQueryProcessed,
		UserID: queryCtx.UserID,
		Detail: map[string]string{
			"request_id": requestID,
			"intent":     analysis.Query.Intent,
			"type":       string(response.Type),
		},
	})
	o.track(ctx, "query_processed", map[string]string{
		"request_id": requestID,
		"user_id":    queryCtx.UserID,
		"type":       string(response.Type),
	})
	log.Info("query processed",
		"request_id", requestID, "type", response.Type,
		"agents", len(contributions), "failed", len(failed),
		"duration", time.Since(start))
	return response, nil
}

type stageResult struct {
	contribution core.Contribution
	err          error
}

// dispatchStage sends every call of one stage concurrently and joins with
// wait-for-all semantics: the stage settles only when each member has
// answered, failed or timed out.
func (o *Orchestrator) dispatchStage(ctx context.Context, requestID string, stage []core.AgentType, query core.ProcessedQuery, queryCtx core.QueryContext) map[core.AgentType]stageResult {
	results := make(map[core.AgentType]stageResult, len(stage))
	if len(stage) == 0 {
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, at := range stage {
		at := at
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := o.request(ctx, at, correlationID(requestID, at), payloadFor(at, query, queryCtx), o.agentTimeout)
			res := stageResult{err: err}
			if err == nil {
				contribution, ok := core.ContributionOf(resp.Payload)
				if !ok {
					res.err = fmt.Errorf("orchestrator: %s answered with %T", at, resp.Payload)
				} else {
					res.contribution = contribution
				}
			}
			mu.Lock()
			results[at] = res
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// failQuery emits the failure events and returns the fixed degraded
// response. The error itself is absorbed: callers always get a usable
// TutorResponse.
func (o *Orchestrator) failQuery(ctx context.Context, requestID string, queryCtx core.QueryContext, start time.Time, err *core.AgentError) core.TutorResponse {
	o.logger.Error("query failed on the critical path", "request_id", requestID, "error", err)
	o.telemetry.RecordAgentError(err.Agent, err.Code)
	o.events.Emit(core.SystemEvent{
		Type:   core.EventQueryFailed,
		Agent:  err.Agent,
		UserID: queryCtx.UserID,
		Err:    err,
		Detail: map[string]string{"request_id": requestID},
	})
	o.track(ctx, "query_failed", map[string]string{
		"request_id": requestID,
		"user_id":    queryCtx.UserID,
		"code":       string(err.Code),
	})
	return degradedResponse(requestID, time.Since(start))
}

// track forwards a fire-and-forget analytics event to the service layer.
func (o *Orchestrator) track(ctx context.Context, event string, data map[string]string) {
	if o.services == nil {
		return
	}
	o.services.TrackEvent(ctx, event, data)
}

func correlationID(requestID string, at core.AgentType) string {
	return requestID + ":" + string(at)
}
