package queue

import (
	"context"
	"encoding/json"
)

type (
	// Handler processes tasks whose TaskName equals Name()
	Handler interface {
		Name() string
		Handle(ctx context.Context, payload json.RawMessage) error
	}

	ActionHandlerFunc[T any] func(ctx context.Context, args T) error
	PeriodicTaskHandlerFunc  func(ctx context.Context) error
)

// NewActionHandler decodes the task payload into T and calls fn
func NewActionHandler[T any](action string, fn ActionHandlerFunc[T]) Handler {
	return &actionHandler[T]{name: action, fn: fn}
}

// NewPeriodicTaskHandler wraps a handler for a payload-less periodic task
func NewPeriodicTaskHandler(name string, fn PeriodicTaskHandlerFunc) Handler {
	return &periodicTaskHandler{name: name, fn: fn}
}

type actionHandler[T any] struct {
	name string
	fn   ActionHandlerFunc[T]
}

func (h *actionHandler[T]) Name() string {
	return h.name
}

func (h *actionHandler[T]) Handle(ctx context.Context, payload json.RawMessage) error {
	var args T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &args); err != nil {
			return err
		}
	}
	return h.fn(ctx, args)
}

type periodicTaskHandler struct {
	name string
	fn   PeriodicTaskHandlerFunc
}

func (h *periodicTaskHandler) Name() string {
	return h.name
}

func (h *periodicTaskHandler) Handle(ctx context.Context, _ json.RawMessage) error {
	return h.fn(ctx)
}
