// Package bus implements the typed pub/sub router between agent endpoints.
//
// Each agent type holds at most one subscription. Direct routing delivers to
// that single subscriber with FIFO ordering per recipient (one drain
// goroutine per subscription); broadcast fans out to every subscriber except
// the sender with per-handler failure isolation. A message that cannot be
// delivered is never silently dropped: it lands in the dead-letter store with
// either a message_dead_lettered event (no reachable recipient) or a
// message_delivery_failed event (the handler rejected it) — exactly one of
// the two per failed route call. The bus never retries; retry policy belongs
// to callers.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tutormesh/tutormesh/core"
	"github.com/tutormesh/tutormesh/logging"
	"github.com/tutormesh/tutormesh/telemetry"
)

var (
	// ErrUnknownRecipient is returned by Route when no subscriber exists for
	// the recipient. The message has been dead-lettered.
	ErrUnknownRecipient = errors.New("bus: no subscriber for recipient")
	// ErrQueueFull is returned by Route when the recipient's queue is full.
	// The message has been dead-lettered.
	ErrQueueFull = errors.New("bus: recipient queue full")
	// ErrRoutingRejected is returned by Route when a routing rule forbids the
	// recipient for the message type. The message has been dead-lettered.
	ErrRoutingRejected = errors.New("bus: recipient not permitted for message type")
	// ErrClosed is returned once the bus has been shut down.
	ErrClosed = errors.New("bus: closed")
)

// Handler consumes one message for a subscribed endpoint. Returning an error
// dead-letters the message and emits a delivery-failure event.
type Handler func(ctx context.Context, msg core.Message) error

// DeadLetter is one undeliverable message set aside with its reason.
type DeadLetter struct {
	Message core.Message
	Reason  string
	At      time.Time
}

type subscription struct {
	mu      sync.RWMutex
	handler Handler
	ch      chan core.Message
	quit    chan struct{}
}

func (s *subscription) get() Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

func (s *subscription) set(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// Options configures a Bus.
type Options struct {
	// QueueSize is the per-recipient buffer. Routing to a full queue
	// dead-letters instead of blocking.
	QueueSize int
	// DeadLetterLimit bounds the dead-letter store; the oldest entries are
	// evicted first.
	DeadLetterLimit int
	// Events receives delivery-failure and dead-letter events. Optional.
	Events *core.Emitter
	// Telemetry counts routed and dead-lettered messages. Optional.
	Telemetry *telemetry.Recorder
	// Logger defaults to NoOp when nil.
	Logger logging.Logger
}

// Bus routes messages between agent endpoints. All methods are safe for
// concurrent use.
type Bus struct {
	mu      sync.RWMutex
	subs    map[core.AgentType]*subscription
	routing map[core.MessageType]map[core.AgentType]bool
	closed  bool

	dlMu        sync.Mutex
	deadLetters []DeadLetter
	dlLimit     int

	queueSize int
	events    *core.Emitter
	recorder  *telemetry.Recorder
	logger    logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Bus with optional overrides.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{
		QueueSize:       64,
		DeadLetterLimit: 256,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		subs:      make(map[core.AgentType]*subscription),
		routing:   make(map[core.MessageType]map[core.AgentType]bool),
		dlLimit:   opts.DeadLetterLimit,
		queueSize: opts.QueueSize,
		events:    opts.Events,
		recorder:  opts.Telemetry,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Subscribe registers handler as the single subscriber for agentType.
// Subscribing an already-subscribed type swaps the handler in place, keeping
// the queue and its FIFO order intact, so the call is idempotent.
func (b *Bus) Subscribe(agentType core.AgentType, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("bus: nil handler for %s", agentType)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if sub, ok := b.subs[agentType]; ok {
		sub.set(handler)
		return nil
	}
	sub := &subscription{
		handler: handler,
		ch:      make(chan core.Message, b.queueSize),
		quit:    make(chan struct{}),
	}
	b.subs[agentType] = sub
	b.wg.Add(1)
	go b.drain(agentType, sub)
	return nil
}

// Unsubscribe removes the subscription for agentType. Unsubscribing an
// unknown type is a no-op, never an error, and the call is idempotent.
func (b *Bus) Unsubscribe(agentType core.AgentType) {
	b.mu.Lock()
	sub, ok := b.subs[agentType]
	if ok {
		delete(b.subs, agentType)
	}
	b.mu.Unlock()
	if ok {
		close(sub.quit)
	}
}

// SetupRouting declares which agent types may legally receive messages of the
// given type. Route rejects recipients outside a declared rule; message types
// with no rule accept any recipient.
func (b *Bus) SetupRouting(messageType core.MessageType, allowed ...core.AgentType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := make(map[core.AgentType]bool, len(allowed))
	for _, at := range allowed {
		set[at] = true
	}
	b.routing[messageType] = set
}

// Route delivers msg to the single subscriber for msg.Recipient. Delivery is
// asynchronous; the returned error reports enqueue failures only, and every
// failure path has already dead-lettered the message.
func (b *Bus) Route(msg core.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	allowed, hasRule := b.routing[msg.Type]
	sub, ok := b.subs[msg.Recipient]
	b.mu.RUnlock()

	if hasRule && !allowed[msg.Recipient] {
		b.deadLetter(msg, fmt.Sprintf("recipient %s not permitted for %s", msg.Recipient, msg.Type), core.EventMessageDeadLettered)
		return ErrRoutingRejected
	}
	if !ok {
		b.deadLetter(msg, fmt.Sprintf("no subscriber for %s", msg.Recipient), core.EventMessageDeadLettered)
		return ErrUnknownRecipient
	}
	return b.enqueue(sub, msg)
}

// Broadcast delivers msg to every subscriber except the sender. Failures are
// isolated per recipient: one full queue never blocks delivery to the rest.
func (b *Bus) Broadcast(msg core.Message) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make(map[core.AgentType]*subscription, len(b.subs))
	for at, sub := range b.subs {
		if at == msg.Sender {
			continue
		}
		targets[at] = sub
	}
	b.mu.RUnlock()

	for at, sub := range targets {
		m := msg
		m.Recipient = at
		// Errors are already dead-lettered; nothing more for broadcast to do.
		_ = b.enqueue(sub, m)
	}
}

// DeadLetters returns a copy of the retained dead letters, oldest first.
func (b *Bus) DeadLetters() []DeadLetter {
	b.dlMu.Lock()
	defer b.dlMu.Unlock()
	out := make([]DeadLetter, len(b.deadLetters))
	copy(out, b.deadLetters)
	return out
}

// Close stops all subscriptions and waits for in-flight deliveries to finish.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[core.AgentType]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.quit)
	}
	b.cancel()
	b.wg.Wait()
}

func (b *Bus) enqueue(sub *subscription, msg core.Message) error {
	select {
	case sub.ch <- msg:
		b.recorder.RecordRouted(msg.Recipient)
		return nil
	default:
		b.deadLetter(msg, fmt.Sprintf("queue full for %s", msg.Recipient), core.EventMessageDeliveryFailed)
		return ErrQueueFull
	}
}

// drain delivers queued messages for one subscription in FIFO order until the
// subscription is cancelled.
func (b *Bus) drain(agentType core.AgentType, sub *subscription) {
	defer b.wg.Done()
	for {
		select {
		case <-sub.quit:
			return
		case msg := <-sub.ch:
			handler := sub.get()
			if err := handler(b.ctx, msg); err != nil {
				b.logger.Warn("message delivery failed", "recipient", agentType, "message_id", msg.ID, "error", err)
				b.deadLetter(msg, fmt.Sprintf("handler for %s rejected message: %v", agentType, err), core.EventMessageDeliveryFailed)
			}
		}
	}
}

func (b *Bus) deadLetter(msg core.Message, reason string, eventType core.EventType) {
	b.dlMu.Lock()
	b.deadLetters = append(b.deadLetters, DeadLetter{Message: msg, Reason: reason, At: time.Now().UTC()})
	if b.dlLimit > 0 && len(b.deadLetters) > b.dlLimit {
		b.deadLetters = b.deadLetters[len(b.deadLetters)-b.dlLimit:]
	}
	b.dlMu.Unlock()

	b.recorder.RecordDeadLetter(reason)
	b.logger.Debug("message dead lettered", "message_id", msg.ID, "recipient", msg.Recipient, "reason", reason)
	b.events.Emit(core.SystemEvent{
		Type:      eventType,
		Agent:     msg.Recipient,
		MessageID: msg.ID,
		Detail:    map[string]string{"reason": reason},
	})
}
