// internal/events/handler.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrUnexpectedEvent is returned by typed handlers fed an event of another type.
var ErrUnexpectedEvent = errors.New("unexpected event")

// Handler consumes engine events. The host publishes only after an
// instruction's writes are committed, so a handler never sees state that was
// rolled back. A handler error is logged by the bus and does not undo the
// instruction.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// On adapts a function over one concrete event type, e.g.
//
//	bus.Subscribe(events.TradeExecuted, events.On(func(ctx context.Context, e *events.TradeExecutedEvent) error { ... }))
func On[E Event](fn func(ctx context.Context, event E) error) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		typed, ok := event.(E)
		if !ok {
			return fmt.Errorf("%w: %s (%T)", ErrUnexpectedEvent, event.Type(), event)
		}
		return fn(ctx, typed)
	})
}

// Subscription detaches a handler. Unsubscribe may be called more than once.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	once sync.Once
	id   string
	bus  *Bus
	typ  EventType
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.unsubscribe(s.id, s.typ) })
}
