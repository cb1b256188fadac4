// Package event implements the synchronous, priority ordered event bus every moderation component
// communicates through.
package event

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sync"
)

// Priority is the tier a handler runs in. Lower tiers run first.
type Priority int

const (
	Lowest Priority = iota
	Low
	Normal
	High
	Highest
	// Monitor handlers always run, even for cancelled events, but may not change whether an event is cancelled.
	Monitor
)

// String ...
func (p Priority) String() string {
	switch p {
	case Lowest:
		return "LOWEST"
	case Low:
		return "LOW"
	case Normal:
		return "NORMAL"
	case High:
		return "HIGH"
	case Highest:
		return "HIGHEST"
	case Monitor:
		return "MONITOR"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// Event is implemented by every event type through an embedded Envelope.
type Event interface {
	envelope() *Envelope
}

// Envelope carries the cancellation state of an event. Every event embeds one.
type Envelope struct {
	cancellable bool
	cancelled   bool
}

// Cancellable returns an envelope for an event that handlers may cancel.
func Cancellable() Envelope {
	return Envelope{cancellable: true}
}

// envelope ...
func (e *Envelope) envelope() *Envelope {
	return e
}

// IsCancellable reports whether the event may be cancelled.
func (e *Envelope) IsCancellable() bool {
	return e.cancellable
}

// Cancelled reports whether the event was cancelled.
func (e *Envelope) Cancelled() bool {
	return e.cancelled
}

// Cancel cancels the event. It is a no-op for events that are not cancellable.
func (e *Envelope) Cancel() {
	e.SetCancelled(true)
}

// SetCancelled sets the cancellation state of a cancellable event.
func (e *Envelope) SetCancelled(cancelled bool) {
	if e.cancellable {
		e.cancelled = cancelled
	}
}

// registration ...
type registration struct {
	priority        Priority
	ignoreCancelled bool
	handle          func(Event)
}

// Bus dispatches events to the handlers registered for their concrete type. Dispatch is synchronous and runs
// on the calling goroutine.
type Bus struct {
	log *slog.Logger

	mu       sync.RWMutex
	handlers map[reflect.Type][]registration
}

// NewBus ...
func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		log:      log,
		handlers: make(map[reflect.Type][]registration),
	}
}

// Register subscribes h to events of type E at the given priority. Unless ignoreCancelled is set, the handler
// is skipped once the event has been cancelled. Monitor handlers always run.
func Register[E Event](b *Bus, priority Priority, ignoreCancelled bool, h func(E)) {
	t := reflect.TypeFor[E]()
	reg := registration{
		priority:        priority,
		ignoreCancelled: ignoreCancelled,
		handle: func(e Event) {
			h(e.(E))
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Dispatch iterates the old slice without holding the lock, so it is never modified in place.
	regs := append(slices.Clone(b.handlers[t]), reg)
	slices.SortStableFunc(regs, func(a, b registration) int {
		return int(a.priority) - int(b.priority)
	})
	b.handlers[t] = regs
}

// Dispatch runs every handler registered for the concrete type of e in priority order. A panicking handler is
// logged and does not stop the remaining handlers.
func (b *Bus) Dispatch(e Event) {
	b.mu.RLock()
	regs := b.handlers[reflect.TypeOf(e)]
	b.mu.RUnlock()

	env := e.envelope()
	for _, reg := range regs {
		if reg.priority == Monitor {
			was := env.cancelled
			b.call(reg, e)
			if env.cancelled != was {
				env.cancelled = was
				b.log.Warn("MONITOR listener attempted to change cancellation state", "event", reflect.TypeOf(e).String())
			}
			continue
		}
		if env.cancelled && !reg.ignoreCancelled {
			continue
		}
		b.call(reg, e)
	}
}

// call ...
func (b *Bus) call(reg registration, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked", "event", reflect.TypeOf(e).String(), "priority", reg.priority.String(), "error", r)
		}
	}()
	reg.handle(e)
}
