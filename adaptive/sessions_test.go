package adaptive

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tutormesh/tutormesh/core"
)

func collectEvents(emitter *core.Emitter) func() []core.SystemEvent {
	var mu sync.Mutex
	var events []core.SystemEvent
	emitter.Subscribe(func(ev core.SystemEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	return func() []core.SystemEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]core.SystemEvent(nil), events...)
	}
}

func TestSessions_ConfusionTimerFires(t *testing.T) {
	emitter := core.NewEmitter()
	events := collectEvents(emitter)

	e := NewEngine(func(o *Options) {
		o.Events = emitter
		o.ConfusionThreshold = 20 * time.Millisecond
	})
	t.Cleanup(e.Close)

	e.StartAdaptiveSession("u1", "content-1", "osmosis")

	assert.Eventually(t, func() bool {
		for _, ev := range events() {
			if ev.Type == core.EventConfusionSuspected && ev.UserID == "u1" {
				return ev.Detail["content_id"] == "content-1"
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestSessions_StopCancelsTimer(t *testing.T) {
	emitter := core.NewEmitter()
	events := collectEvents(emitter)

	e := NewEngine(func(o *Options) {
		o.Events = emitter
		o.ConfusionThreshold = 30 * time.Millisecond
	})
	t.Cleanup(e.Close)

	e.StartAdaptiveSession("u2", "content-2", "mitosis")
	e.StopAdaptiveSession("u2", "content-2")

	time.Sleep(80 * time.Millisecond)
	for _, ev := range events() {
		assert.NotEqual(t, core.EventConfusionSuspected, ev.Type)
	}
}

func TestSessions_RestartReplacesTimer(t *testing.T) {
	emitter := core.NewEmitter()
	events := collectEvents(emitter)

	e := NewEngine(func(o *Options) {
		o.Events = emitter
		o.ConfusionThreshold = 40 * time.Millisecond
	})
	t.Cleanup(e.Close)

	e.StartAdaptiveSession("u3", "content-3", "waves")
	time.Sleep(25 * time.Millisecond)
	e.StartAdaptiveSession("u3", "content-3", "waves")
	time.Sleep(25 * time.Millisecond)

	var fired int
	for _, ev := range events() {
		if ev.Type == core.EventConfusionSuspected {
			fired++
		}
	}
	assert.Zero(t, fired, "restarting rearms the timer from zero")

	assert.Eventually(t, func() bool {
		count := 0
		for _, ev := range events() {
			if ev.Type == core.EventConfusionSuspected {
				count++
			}
		}
		return count == 1
	}, time.Second, 5*time.Millisecond)
}
