package tutormesh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/core"
)

func startMesh(t *testing.T, optFns ...func(o *Options)) *TutorMesh {
	t.Helper()
	m := New(optFns...)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, m.Shutdown(context.Background()))
	})
	return m
}

func TestTutorMesh_ProcessQuery(t *testing.T) {
	m := startMesh(t)

	resp, err := m.ProcessQuery(context.Background(), "How does SN2 substitution work?", core.QueryContext{
		SessionID: "s-1",
		UserID:    "u-1",
	})
	require.NoError(t, err)

	assert.Equal(t, core.ResponseExplanation, resp.Type)
	assert.NotEmpty(t, resp.Text)
	assert.Greater(t, resp.Confidence, 0.0)
	assert.Contains(t, resp.Metadata.AgentsInvolved, core.AgentConversation)
	assert.Contains(t, resp.Metadata.AgentsInvolved, core.AgentContentSpecialist)
}

func TestTutorMesh_AdaptiveContentAndBeliefs(t *testing.T) {
	m := startMesh(t)
	ctx := context.Background()

	analysis := core.ConceptAnalysis{Concept: "cellular respiration", Subject: "biology", Complexity: 5}

	content, err := m.GenerateAdaptiveContent(ctx, "u-2", analysis)
	require.NoError(t, err)
	assert.Equal(t, "cellular respiration", content.Concept)
	assert.NotEmpty(t, content.Body)

	require.NoError(t, m.RecordInteraction(ctx, core.InteractionRecord{
		UserID:     "u-2",
		Concept:    "cellular respiration",
		Modality:   content.Modality,
		Understood: true,
		TimeSpent:  2 * time.Minute,
	}))

	rec, err := m.PredictBestModality(ctx, "u-2", analysis)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Modality)
	assert.Len(t, rec.Fallbacks, 3)
}

func TestTutorMesh_EventsAndSessions(t *testing.T) {
	events := core.NewEmitter()
	var mu sync.Mutex
	var seen []core.EventType
	done := make(chan struct{})
	events.Subscribe(func(ev core.SystemEvent) {
		mu.Lock()
		seen = append(seen, ev.Type)
		mu.Unlock()
		if ev.Type == core.EventConfusionSuspected {
			close(done)
		}
	})

	m := startMesh(t, func(o *Options) {
		o.Events = events
		o.Config.Adaptive.ConfusionThreshold.Duration = 20 * time.Millisecond
	})

	m.StartAdaptiveSession("u-3", "c-1", "osmosis")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("confusion event never fired")
	}
	m.StopAdaptiveSession("u-3", "c-1")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, core.EventAgentInitialized)
	assert.Same(t, events, m.Events())
}

func TestTutorMesh_ShutdownIsClean(t *testing.T) {
	m := New()
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Shutdown(context.Background()))

	// A second shutdown finds every agent already terminal and nothing to
	// unsubscribe; it must not error.
	assert.NoError(t, m.Shutdown(context.Background()))
}
