package events

import (
	"fmt"
	"sync"
)

// Handler processes one event pulled off the bus.
type Handler func(evt Event) error

// Router maps event types to handlers. A handler failure or panic is
// contained to that one event; dispatch continues.
type Router struct {
	evHandler EventHandler

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter constructs a router reporting through the given event
// handler function.
func NewRouter(ev EventHandler) *Router {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	return &Router{
		evHandler: ev,
		handlers:  make(map[string]Handler),
	}
}

// Register binds a handler to an event type, replacing any previous
// binding for that type.
func (r *Router) Register(eventType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[eventType] = handler
}

// Dispatch routes the event to its registered handler. Events with no
// matching handler are logged and dropped.
func (r *Router) Dispatch(evt Event) {
	r.mu.RLock()
	handler, exists := r.handlers[evt.Type]
	r.mu.RUnlock()

	if !exists {
		r.evHandler("events: router: no handler for type[%s], dropped", evt.Type)
		return
	}

	if err := r.run(handler, evt); err != nil {
		r.evHandler("events: router: handler[%s]: ERROR: %s", evt.Type, err)
	}
}

// run executes the handler, converting a panic into an error.
func (r *Router) run(handler Handler, evt Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()

	return handler(evt)
}
