// Package events provides the typed in-process event bus the grading core
// uses to expose state changes to the rendering layer. Handlers run in
// registration order and failures are isolated per handler.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/opencampus/gradeflow/internal/domain/model"
)

// Event is a named notification published on the bus.
type Event interface {
	Name() string
}

// JobStatusChanged is published whenever a submission's status transitions.
type JobStatusChanged struct {
	SubmissionID string
	Status       model.SubmissionStatus
	OccurredAt   time.Time
}

// Name implements Event.
func (JobStatusChanged) Name() string { return "job.status_changed" }

// GradeUpdated is published whenever the aggregator updates a user task grade.
type GradeUpdated struct {
	Username   string
	CourseID   string
	TaskID     string
	Grade      float64
	Succeeded  bool
	OccurredAt time.Time
}

// Name implements Event.
func (GradeUpdated) Name() string { return "grade.updated" }

// Handler consumes a published event. Handlers must not block for long; the
// bus calls them synchronously on the publisher's goroutine.
type Handler func(ctx context.Context, evt Event)

type registration struct {
	id      uint64
	handler Handler
}

// Bus dispatches events by name to registered handlers.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]registration
}

// NewBus constructs an event bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger.With("component", "event_bus"),
		subs:   make(map[string][]registration),
	}
}

// Subscribe registers a handler for the named event and returns an
// unsubscribe function. Handlers for the same name run in registration order.
func (b *Bus) Subscribe(name string, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], registration{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		regs := b.subs[name]
		for i, reg := range regs {
			if reg.id == id {
				b.subs[name] = append(regs[:i], regs[i+1:]...)
				break
			}
		}
		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

// Publish delivers the event to every handler registered for its name.
// A panicking handler is logged and skipped; remaining handlers still run.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt == nil {
		return
	}

	b.mu.RLock()
	regs := make([]registration, len(b.subs[evt.Name()]))
	copy(regs, b.subs[evt.Name()])
	b.mu.RUnlock()

	for _, reg := range regs {
		b.invoke(ctx, evt, reg)
	}
}

func (b *Bus) invoke(ctx context.Context, evt Event, reg registration) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "event handler panicked",
				"event", evt.Name(),
				"panic", r,
			)
		}
	}()
	reg.handler(ctx, evt)
}
