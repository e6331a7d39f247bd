package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutormesh/tutormesh/core"
)

// eventCollector records emitted system events for assertions.
type eventCollector struct {
	mu     sync.Mutex
	events []core.SystemEvent
}

func (c *eventCollector) listen(ev core.SystemEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *eventCollector) ofType(t core.EventType) []core.SystemEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []core.SystemEvent
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestBus(t *testing.T) (*Bus, *eventCollector) {
	t.Helper()
	collector := &eventCollector{}
	emitter := core.NewEmitter()
	emitter.Subscribe(collector.listen)
	b := New(func(o *Options) {
		o.Events = emitter
		o.QueueSize = 4
	})
	t.Cleanup(b.Close)
	return b, collector
}

func testRequest(recipient core.AgentType) core.Message {
	return core.NewRequest(core.AgentOrchestrator, recipient, core.NewID(), core.AnalyzeQueryPayload{Text: "hello"})
}

func TestBus_RouteDeliversToSubscriber(t *testing.T) {
	b, collector := newTestBus(t)

	received := make(chan core.Message, 1)
	err := b.Subscribe(core.AgentConversation, func(_ context.Context, msg core.Message) error {
		received <- msg
		return nil
	})
	require.NoError(t, err)

	msg := testRequest(core.AgentConversation)
	require.NoError(t, b.Route(msg))

	select {
	case got := <-received:
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, msg.CorrelationID, got.CorrelationID)
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}

	// Successful delivery must not produce any failure events.
	assert.Empty(t, collector.ofType(core.EventMessageDeadLettered))
	assert.Empty(t, collector.ofType(core.EventMessageDeliveryFailed))
	assert.Empty(t, b.DeadLetters())
}

func TestBus_RouteUnknownRecipientDeadLetters(t *testing.T) {
	b, collector := newTestBus(t)

	msg := testRequest(core.AgentAssessment)
	err := b.Route(msg)
	assert.ErrorIs(t, err, ErrUnknownRecipient)

	letters := b.DeadLetters()
	require.Len(t, letters, 1)
	assert.Equal(t, msg.ID, letters[0].Message.ID)

	events := collector.ofType(core.EventMessageDeadLettered)
	require.Len(t, events, 1)
	assert.Equal(t, msg.ID, events[0].MessageID)
	assert.Empty(t, collector.ofType(core.EventMessageDeliveryFailed))
}

func TestBus_HandlerErrorEmitsDeliveryFailed(t *testing.T) {
	b, collector := newTestBus(t)

	sentinel := errors.New("boom")
	require.NoError(t, b.Subscribe(core.AgentResource, func(context.Context, core.Message) error {
		return sentinel
	}))

	msg := testRequest(core.AgentResource)
	require.NoError(t, b.Route(msg))

	assert.Eventually(t, func() bool {
		return len(collector.ofType(core.EventMessageDeliveryFailed)) == 1
	}, time.Second, 10*time.Millisecond)

	letters := b.DeadLetters()
	require.Len(t, letters, 1)
	assert.Contains(t, letters[0].Reason, "rejected")
	// A handler error is delivery failure, never an unknown-recipient event.
	assert.Empty(t, collector.ofType(core.EventMessageDeadLettered))
}

func TestBus_FIFOPerRecipient(t *testing.T) {
	b, _ := newTestBus(t)

	var mu sync.Mutex
	var order []string
	require.NoError(t, b.Subscribe(core.AgentConversation, func(_ context.Context, msg core.Message) error {
		mu.Lock()
		order = append(order, msg.ID)
		mu.Unlock()
		return nil
	}))

	var sent []string
	for i := 0; i < 4; i++ {
		msg := testRequest(core.AgentConversation)
		sent = append(sent, msg.ID)
		require.NoError(t, b.Route(msg))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == len(sent)
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sent, order)
}

func TestBus_BroadcastExcludesSenderAndIsolatesFailures(t *testing.T) {
	b, _ := newTestBus(t)

	var mu sync.Mutex
	delivered := map[core.AgentType]int{}
	recordingHandler := func(at core.AgentType, fail bool) Handler {
		return func(context.Context, core.Message) error {
			mu.Lock()
			delivered[at]++
			mu.Unlock()
			if fail {
				return errors.New("subscriber failure")
			}
			return nil
		}
	}

	require.NoError(t, b.Subscribe(core.AgentConversation, recordingHandler(core.AgentConversation, false)))
	require.NoError(t, b.Subscribe(core.AgentAssessment, recordingHandler(core.AgentAssessment, true)))
	require.NoError(t, b.Subscribe(core.AgentResource, recordingHandler(core.AgentResource, false)))

	msg := core.NewHeartbeat(core.AgentConversation)
	msg.Sender = core.AgentConversation
	b.Broadcast(msg)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered[core.AgentAssessment] == 1 && delivered[core.AgentResource] == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// The sender never receives its own broadcast.
	assert.Zero(t, delivered[core.AgentConversation])
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b, _ := newTestBus(t)

	require.NoError(t, b.Subscribe(core.AgentPedagogy, func(context.Context, core.Message) error { return nil }))

	assert.NotPanics(t, func() {
		b.Unsubscribe(core.AgentPedagogy)
		b.Unsubscribe(core.AgentPedagogy)
		b.Unsubscribe(core.AgentVisualLearning) // never subscribed
	})

	err := b.Route(testRequest(core.AgentPedagogy))
	assert.ErrorIs(t, err, ErrUnknownRecipient)
}

func TestBus_SubscribeTwiceSwapsHandler(t *testing.T) {
	b, _ := newTestBus(t)

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	require.NoError(t, b.Subscribe(core.AgentConversation, func(context.Context, core.Message) error {
		first <- struct{}{}
		return nil
	}))
	require.NoError(t, b.Subscribe(core.AgentConversation, func(context.Context, core.Message) error {
		second <- struct{}{}
		return nil
	}))

	require.NoError(t, b.Route(testRequest(core.AgentConversation)))

	select {
	case <-second:
	case <-first:
		t.Fatal("stale handler received the message")
	case <-time.After(time.Second):
		t.Fatal("no handler received the message")
	}
}

func TestBus_RoutingTableRejectsRecipient(t *testing.T) {
	b, collector := newTestBus(t)

	require.NoError(t, b.Subscribe(core.AgentResource, func(context.Context, core.Message) error { return nil }))
	b.SetupRouting(core.MessageTaskAssignment, core.AgentAssessment)

	msg := core.Message{
		ID:        core.NewID(),
		Timestamp: time.Now(),
		Sender:    core.AgentOrchestrator,
		Recipient: core.AgentResource,
		Type:      core.MessageTaskAssignment,
		Payload:   core.TaskAssignmentPayload{Task: "reindex"},
	}
	assert.ErrorIs(t, b.Route(msg), ErrRoutingRejected)
	assert.Len(t, collector.ofType(core.EventMessageDeadLettered), 1)
}

func TestBus_QueueFullDeadLetters(t *testing.T) {
	b, _ := newTestBus(t)

	block := make(chan struct{})
	require.NoError(t, b.Subscribe(core.AgentConversation, func(context.Context, core.Message) error {
		<-block
		return nil
	}))
	defer close(block)

	// One message sits in the handler, QueueSize more fill the buffer; the
	// next enqueue must dead-letter instead of blocking.
	var err error
	for i := 0; i < 6; i++ {
		err = b.Route(testRequest(core.AgentConversation))
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.NotEmpty(t, b.DeadLetters())
}

func TestBus_DeadLetterRetentionIsBounded(t *testing.T) {
	b := New(func(o *Options) { o.DeadLetterLimit = 3 })
	defer b.Close()

	for i := 0; i < 10; i++ {
		_ = b.Route(testRequest(core.AgentAssessment))
	}
	assert.Len(t, b.DeadLetters(), 3)
}
