package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/agent"
	"github.com/tutormesh/tutormesh/bus"
	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/provider"
)

type eventCollector struct {
	mu     sync.Mutex
	events []core.SystemEvent
}

func (c *eventCollector) listen(ev core.SystemEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) count(t core.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	bus       *bus.Bus
	emitter   *core.Emitter
	collector *eventCollector
	orch      *Orchestrator
	deps      agent.Deps
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	collector := &eventCollector{}
	emitter := core.NewEmitter()
	emitter.Subscribe(collector.listen)
	b := bus.New(func(o *bus.Options) { o.Events = emitter })
	t.Cleanup(b.Close)

	opts := append([]func(o *Options){func(o *Options) { o.Events = emitter }}, optFns...)
	orch := New(b, opts...)
	require.NoError(t, orch.Start(context.Background()))
	t.Cleanup(func() { _ = orch.Stop(context.Background()) })

	return &fixture{
		bus:       b,
		emitter:   emitter,
		collector: collector,
		orch:      orch,
		deps:      agent.Deps{Bus: b, Services: provider.Static(), Events: emitter},
	}
}

// startAgents initializes the given agents and registers them.
func (f *fixture) startAgents(t *testing.T, agents ...agent.Agent) {
	t.Helper()
	for _, a := range agents {
		require.NoError(t, a.Initialize(context.Background()))
		a := a
		t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	}
	f.orch.Register(agents...)
}

func TestProcessQuery_FullPipeline(t *testing.T) {
	f := newFixture(t)
	f.startAgents(t,
		agent.NewConversationAgent(f.deps),
		agent.NewContentSpecialistAgent(f.deps),
		agent.NewVisualLearningAgent(f.deps),
		agent.NewAssessmentAgent(f.deps),
		agent.NewResourceAgent(f.deps),
		agent.NewPedagogyAgent(f.deps),
	)

	resp, err := f.orch.ProcessQuery(context.Background(), "How does SN2 substitution work?", core.QueryContext{
		SessionID: "s1", UserID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, core.ResponseExplanation, resp.Type)
	assert.NotEmpty(t, resp.Text)
	assert.NotEmpty(t, resp.Visualizations, "chemistry explanations carry a visualization")
	assert.Greater(t, resp.Confidence, 0.0)
	assert.Contains(t, resp.Metadata.AgentsInvolved, core.AgentConversation)
	assert.Contains(t, resp.Metadata.AgentsInvolved, core.AgentContentSpecialist)
	assert.Contains(t, resp.Metadata.AgentsInvolved, core.AgentVisualLearning)
	assert.Empty(t, resp.Metadata.FailedAgents)
	assert.NotEmpty(t, resp.Metadata.RequestID)
	assert.Equal(t, 1, f.collector.count(core.EventQueryProcessed))
}

func TestProcessQuery_ToleratesStageFailure(t *testing.T) {
	f := newFixture(t)
	f.startAgents(t,
		agent.NewConversationAgent(f.deps),
		agent.NewContentSpecialistAgent(f.deps),
	)

	// The visual endpoint answers every request with a typed error.
	require.NoError(t, f.bus.Subscribe(core.AgentVisualLearning, func(_ context.Context, msg core.Message) error {
		failure := core.NewProcessingError(core.AgentVisualLearning, msg.ID, assert.AnError)
		return f.bus.Route(core.NewErrorResponse(msg, core.AgentVisualLearning, failure))
	}))

	resp, err := f.orch.ProcessQuery(context.Background(), "Show me how SN2 substitution works", core.QueryContext{SessionID: "s2"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Text, "surviving agents still synthesize")
	assert.Empty(t, resp.Visualizations)
	assert.Contains(t, resp.Metadata.FailedAgents, core.AgentVisualLearning)
	assert.NotContains(t, resp.Metadata.AgentsInvolved, core.AgentVisualLearning)
	assert.GreaterOrEqual(t, f.collector.count(core.EventAgentError), 1)
	assert.Equal(t, 1, f.collector.count(core.EventQueryProcessed))
}

func TestProcessQuery_ConversationFailureDegrades(t *testing.T) {
	f := newFixture(t)
	// No conversation agent subscribed at all.

	resp, err := f.orch.ProcessQuery(context.Background(), "Anything", core.QueryContext{SessionID: "s3"})
	require.NoError(t, err, "the degraded response replaces the error")

	assert.Zero(t, resp.Confidence)
	assert.Contains(t, resp.Text, "sorry")
	assert.NotEmpty(t, resp.FollowUpSuggestions)
	assert.Equal(t, 1, f.collector.count(core.EventQueryFailed))
	assert.Zero(t, f.collector.count(core.EventQueryProcessed))
}

func TestRequest_TimeoutDropsLateResponse(t *testing.T) {
	f := newFixture(t)

	// A handler that answers well past the caller's deadline.
	require.NoError(t, f.bus.Subscribe(core.AgentContentSpecialist, func(_ context.Context, msg core.Message) error {
		time.Sleep(100 * time.Millisecond)
		return f.bus.Route(core.NewResponse(msg, core.AgentContentSpecialist, core.ExplanationPayload{}))
	}))

	_, err := f.orch.request(context.Background(), core.AgentContentSpecialist, "req:late",
		core.ExplainConceptPayload{}, 20*time.Millisecond)
	require.Error(t, err)
	assert.True(t, core.IsTimeout(err))

	// The correlation slot is gone; the late answer must find nothing.
	time.Sleep(150 * time.Millisecond)
	f.orch.mu.Lock()
	pending := len(f.orch.pending)
	f.orch.mu.Unlock()
	assert.Zero(t, pending)
}

func TestProcessQuery_StageBarrier(t *testing.T) {
	f := newFixture(t)
	f.startAgents(t, agent.NewConversationAgent(f.deps))

	var (
		mu            sync.Mutex
		contentDone   time.Time
		visualStarted time.Time
	)
	require.NoError(t, f.bus.Subscribe(core.AgentContentSpecialist, func(_ context.Context, msg core.Message) error {
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		contentDone = time.Now()
		mu.Unlock()
		return f.bus.Route(core.NewResponse(msg, core.AgentContentSpecialist, core.ExplanationPayload{
			Contribution: core.Contribution{Text: "explanation"},
		}))
	}))
	require.NoError(t, f.bus.Subscribe(core.AgentVisualLearning, func(_ context.Context, msg core.Message) error {
		mu.Lock()
		visualStarted = time.Now()
		mu.Unlock()
		return f.bus.Route(core.NewResponse(msg, core.AgentVisualLearning, core.VisualizationPayload{}))
	}))

	_, err := f.orch.ProcessQuery(context.Background(), "Show me how SN2 substitution works", core.QueryContext{SessionID: "s4"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.False(t, contentDone.IsZero())
	require.False(t, visualStarted.IsZero())
	assert.True(t, visualStarted.After(contentDone), "stage 2 must not start before stage 1 settles")
}

func TestHealthSweep_EmitsUnhealthyEvent(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.HealthInterval = 20 * time.Millisecond })

	a := agent.NewAssessmentAgent(f.deps)
	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))
	f.orch.Register(a)

	assert.Eventually(t, func() bool {
		return f.collector.count(core.EventAgentUnhealthy) >= 1
	}, time.Second, 10*time.Millisecond)

	// The sweep reports; it never deregisters.
	assert.Len(t, f.orch.Agents(), 1)
}

func TestHeartbeatUpdatesLiveness(t *testing.T) {
	f := newFixture(t)

	hb := core.NewHeartbeat(core.AgentResource)
	require.NoError(t, f.bus.Route(hb))

	assert.Eventually(t, func() bool {
		_, ok := f.orch.LastHeartbeat(core.AgentResource)
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestProcessQuery_TracksAnalyticsEvents(t *testing.T) {
	tracker := provider.NewCountingTracker()
	services := provider.NewLayer(func(o *provider.Options) { o.Tracker = tracker })
	f := newFixture(t, func(o *Options) { o.Services = services })
	f.deps.Services = services
	f.startAgents(t,
		agent.NewConversationAgent(f.deps),
		agent.NewContentSpecialistAgent(f.deps),
		agent.NewVisualLearningAgent(f.deps),
		agent.NewAssessmentAgent(f.deps),
		agent.NewResourceAgent(f.deps),
		agent.NewPedagogyAgent(f.deps),
	)

	_, err := f.orch.ProcessQuery(context.Background(), "How does SN2 substitution work?", core.QueryContext{
		SessionID: "s6", UserID: "u6",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, tracker.Count("query_processed"))
	assert.Zero(t, tracker.Count("query_failed"))
}

func TestProcessQuery_TracksFailedQuery(t *testing.T) {
	tracker := provider.NewCountingTracker()
	services := provider.NewLayer(func(o *provider.Options) { o.Tracker = tracker })
	f := newFixture(t, func(o *Options) { o.Services = services })
	// No conversation agent subscribed, so the critical path fails.

	resp, err := f.orch.ProcessQuery(context.Background(), "Anything", core.QueryContext{SessionID: "s7"})
	require.NoError(t, err)

	assert.Zero(t, resp.Confidence)
	assert.Equal(t, 1, tracker.Count("query_failed"))
	assert.Zero(t, tracker.Count("query_processed"))
}
