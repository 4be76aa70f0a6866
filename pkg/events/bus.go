package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics emitted by the catalogs and the scheduler.
const (
	TopicRouteCreated      = "route.created"
	TopicLinkCreated       = "link.created"
	TopicAssignmentCreated = "assignment.created"

	// TopicAll subscribes a handler to every topic.
	TopicAll = "*"
)

// Event is a change notification.
type Event struct {
	ID       string
	Topic    string
	Payload  interface{}
	Occurred time.Time
}

// Handler reacts to a published event.
type Handler func(context.Context, Event) error

// Bus dispatches events to subscribers synchronously, in subscription order.
// A failing handler is logged and does not stop the remaining handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *zap.Logger
}

// NewBus builds an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[string][]Handler), logger: logger}
}

// Subscribe registers handler for topic, or for every topic when topic is TopicAll.
func (b *Bus) Subscribe(topic string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

// Publish delivers an event and returns once every handler has run.
// It returns the number of handlers that failed.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) int {
	if b == nil {
		return 0
	}
	evt := Event{ID: uuid.NewString(), Topic: topic, Payload: payload, Occurred: time.Now().UTC()}

	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[topic])+len(b.handlers[TopicAll]))
	targets = append(targets, b.handlers[topic]...)
	if topic != TopicAll {
		targets = append(targets, b.handlers[TopicAll]...)
	}
	b.mu.RUnlock()

	failed := 0
	for _, h := range targets {
		if err := b.dispatch(ctx, h, evt); err != nil {
			failed++
			b.logger.Sugar().Warnw("event handler failed", "topic", evt.Topic, "event_id", evt.ID, "error", err)
		}
	}
	return failed
}

func (b *Bus) dispatch(ctx context.Context, h Handler, evt Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, evt)
}
