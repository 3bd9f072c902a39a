package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Common priorities. Lower runs first.
const (
	PriorityEarly   = 1
	PriorityDefault = 10
	PriorityLate    = 20
)

type (
	// ActionFunc reacts to a signal
	ActionFunc func(ctx context.Context, payload any) error

	// FilterFunc returns a possibly modified value
	FilterFunc func(ctx context.Context, value any) (any, error)

	// HandlerID identifies a registered callback for removal
	HandlerID uint64
)

type callback struct {
	id       HandlerID
	priority int
	action   ActionFunc
	filter   FilterFunc
}

// Dispatcher routes named signals to registered callbacks.
// All methods are safe for concurrent use.
type Dispatcher struct {
	mu      sync.RWMutex
	actions map[string][]callback
	filters map[string][]callback
	fired   map[string]int
	nextID  HandlerID
	logger  *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger used for callback failures
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates an empty dispatcher
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		actions: make(map[string][]callback),
		filters: make(map[string][]callback),
		fired:   make(map[string]int),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddAction registers fn for the named signal
func (d *Dispatcher) AddAction(name string, priority int, fn ActionFunc) HandlerID {
	return d.add(d.actions, name, callback{priority: priority, action: fn})
}

// AddFilter registers fn for the named filter
func (d *Dispatcher) AddFilter(name string, priority int, fn FilterFunc) HandlerID {
	return d.add(d.filters, name, callback{priority: priority, filter: fn})
}

// RemoveAction unregisters an action callback, reporting whether it existed
func (d *Dispatcher) RemoveAction(name string, id HandlerID) bool {
	return d.remove(d.actions, name, id)
}

// RemoveFilter unregisters a filter callback, reporting whether it existed
func (d *Dispatcher) RemoveFilter(name string, id HandlerID) bool {
	return d.remove(d.filters, name, id)
}

// HasAction reports whether any action callback is registered for name
func (d *Dispatcher) HasAction(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.actions[name]) > 0
}

// HasFilter reports whether any filter callback is registered for name
func (d *Dispatcher) HasFilter(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.filters[name]) > 0
}

// Fired returns how many times the named action has been dispatched
func (d *Dispatcher) Fired(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fired[name]
}

// Do runs every action registered for name. Callbacks registered while the
// signal is being dispatched take effect from the next dispatch.
func (d *Dispatcher) Do(ctx context.Context, name string, payload any) error {
	if name == "" {
		return ErrEmptySignalName
	}

	d.mu.Lock()
	d.fired[name]++
	chain := slices.Clone(d.actions[name])
	d.mu.Unlock()

	var errs []error
	for _, cb := range chain {
		if err := d.runAction(ctx, name, cb, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyFilters passes value through every filter registered for name.
// A failing filter leaves the value as it was before that filter ran.
func (d *Dispatcher) ApplyFilters(ctx context.Context, name string, value any) (any, error) {
	if name == "" {
		return value, ErrEmptySignalName
	}

	d.mu.RLock()
	chain := slices.Clone(d.filters[name])
	d.mu.RUnlock()

	var errs []error
	for _, cb := range chain {
		next, err := d.runFilter(ctx, name, cb, value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		value = next
	}
	return value, errors.Join(errs...)
}

func (d *Dispatcher) runAction(ctx context.Context, name string, cb callback, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCallbackPanic, name, r)
		}
		if err != nil {
			d.logger.ErrorContext(ctx, "action callback failed",
				slog.String("signal", name),
				slog.Int("priority", cb.priority),
				slog.String("error", err.Error()))
		}
	}()
	return cb.action(ctx, payload)
}

func (d *Dispatcher) runFilter(ctx context.Context, name string, cb callback, value any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCallbackPanic, name, r)
		}
		if err != nil {
			d.logger.ErrorContext(ctx, "filter callback failed",
				slog.String("filter", name),
				slog.Int("priority", cb.priority),
				slog.String("error", err.Error()))
		}
	}()
	return cb.filter(ctx, value)
}

func (d *Dispatcher) add(set map[string][]callback, name string, cb callback) HandlerID {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	cb.id = d.nextID

	chain := append(set[name], cb)
	// stable sort keeps registration order within a priority
	slices.SortStableFunc(chain, func(a, b callback) int { return a.priority - b.priority })
	set[name] = chain

	return cb.id
}

func (d *Dispatcher) remove(set map[string][]callback, name string, id HandlerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	before := len(set[name])
	set[name] = slices.DeleteFunc(set[name], func(cb callback) bool { return cb.id == id })
	return len(set[name]) < before
}
