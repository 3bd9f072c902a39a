package hooks

import (
	"context"
	"fmt"
)

// On registers a typed action callback. A payload of another type yields ErrPayloadType.
func On[T any](d *Dispatcher, name string, priority int, fn func(ctx context.Context, payload T) error) HandlerID {
	return d.AddAction(name, priority, func(ctx context.Context, payload any) error {
		p, ok := payload.(T)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrPayloadType, name, payload)
		}
		return fn(ctx, p)
	})
}

// Filter registers a typed filter callback
func Filter[T any](d *Dispatcher, name string, priority int, fn func(ctx context.Context, value T) (T, error)) HandlerID {
	return d.AddFilter(name, priority, func(ctx context.Context, value any) (any, error) {
		v, ok := value.(T)
		if !ok {
			return value, fmt.Errorf("%w: %s got %T", ErrPayloadType, name, value)
		}
		return fn(ctx, v)
	})
}

// Apply runs the named filters over value and returns the typed result.
// If a filter replaced the value with another type the original value is returned.
func Apply[T any](ctx context.Context, d *Dispatcher, name string, value T) (T, error) {
	out, err := d.ApplyFilters(ctx, name, value)
	v, ok := out.(T)
	if !ok {
		return value, fmt.Errorf("%w: %s returned %T", ErrPayloadType, name, out)
	}
	return v, err
}
