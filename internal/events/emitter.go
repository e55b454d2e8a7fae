package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/pantognostis-api/internal/platform/logger"
)

// anyType subscribes a handler to every event type.
const anyType = "*"

type subscription struct {
	eventType string
	handler   EventHandler
}

// InMemoryEventEmitter dispatches events synchronously, in registration
// order, to the handlers subscribed to their type.
type InMemoryEventEmitter struct {
	mu     sync.RWMutex
	subs   []subscription
	logger *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no subscribers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "event_emitter")),
	}
}

// Subscribe registers handler for events of eventType only.
func (e *InMemoryEventEmitter) Subscribe(eventType string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, subscription{eventType: eventType, handler: handler})
	e.logger.Debug("event handler subscribed",
		slog.String("event_type", eventType),
		slog.Int("subscriptions", len(e.subs)))
}

// RegisterHandler registers handler for every event type.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.Subscribe(anyType, handler)
}

// EmitEvent delivers event to each matching handler. A failing or panicking
// handler does not stop delivery to the others; their errors are joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("cannot emit nil event")
	}
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type))

	handlers := e.handlersFor(event.Type)
	if len(handlers) == 0 {
		log.Warn("no handlers subscribed to event")
		return nil
	}

	var errs []error
	for _, h := range handlers {
		if err := deliver(ctx, h, event); err != nil {
			log.Error("event handler failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	log.Debug("event dispatched",
		slog.Int("handlers", len(handlers)),
		slog.Int("failures", len(errs)))
	return errors.Join(errs...)
}

func (e *InMemoryEventEmitter) handlersFor(eventType string) []EventHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []EventHandler
	for _, s := range e.subs {
		if s.eventType == anyType || s.eventType == eventType {
			out = append(out, s.handler)
		}
	}
	return out
}

func deliver(ctx context.Context, h EventHandler, event *Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("event handler panicked: %v", p)
		}
	}()
	return h.HandleEvent(ctx, event)
}
