package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ActionRepository defines the persistence needed to schedule and cancel actions
type ActionRepository interface {
	// CreateTask stores a new pending task
	CreateTask(ctx context.Context, task *Task) error

	// FindPendingAction returns the earliest pending task with the given name and args key.
	// Returns ErrTaskNotFound when there is none.
	FindPendingAction(ctx context.Context, name, argsKey string) (*Task, error)

	// CancelPendingActions cancels every pending task with the given name and args key
	// and reports how many were cancelled.
	CancelPendingActions(ctx context.Context, name, argsKey string) (int, error)
}

// Actions schedules named actions with JSON arguments
type Actions struct {
	repo       ActionRepository
	queue      string
	maxRetries int8
	logger     *slog.Logger
}

// NewActions creates a new Actions facade over the given repository
func NewActions(repo ActionRepository, opts ...ActionsOption) (*Actions, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &actionsOptions{
		queue:      DefaultQueueName,
		maxRetries: 3,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Actions{
		repo:       repo,
		queue:      options.queue,
		maxRetries: options.maxRetries,
		logger:     options.logger,
	}, nil
}

// Schedule adds a one-off action due at the given time.
// It does not replace an existing pending action with the same name and args.
func (a *Actions) Schedule(ctx context.Context, action string, args any, at time.Time) error {
	if action == "" {
		return ErrActionNameEmpty
	}

	payload, key, err := encodeArgs(args)
	if err != nil {
		return err
	}

	task := &Task{
		ID:          uuid.New(),
		Queue:       a.queue,
		TaskType:    TaskTypeOneTime,
		TaskName:    action,
		Payload:     payload,
		ArgsKey:     key,
		Status:      TaskStatusPending,
		MaxRetries:  a.maxRetries,
		ScheduledAt: at.UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := a.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to schedule action %q in queue %q: %w", action, a.queue, err)
	}

	a.logger.DebugContext(ctx, "action scheduled",
		slog.String("action", action),
		slog.String("args", key),
		slog.Time("scheduled_at", task.ScheduledAt))

	return nil
}

// Unschedule cancels every pending action with the given name and args
func (a *Actions) Unschedule(ctx context.Context, action string, args any) error {
	if action == "" {
		return ErrActionNameEmpty
	}

	_, key, err := encodeArgs(args)
	if err != nil {
		return err
	}

	n, err := a.repo.CancelPendingActions(ctx, action, key)
	if err != nil {
		return fmt.Errorf("failed to unschedule action %q: %w", action, err)
	}

	if n > 0 {
		a.logger.DebugContext(ctx, "action unscheduled",
			slog.String("action", action),
			slog.String("args", key),
			slog.Int("cancelled", n))
	}

	return nil
}

// NextScheduled returns the due time of the earliest pending action with the given
// name and args. The boolean is false when nothing is scheduled.
func (a *Actions) NextScheduled(ctx context.Context, action string, args any) (time.Time, bool, error) {
	if action == "" {
		return time.Time{}, false, ErrActionNameEmpty
	}

	_, key, err := encodeArgs(args)
	if err != nil {
		return time.Time{}, false, err
	}

	task, err := a.repo.FindPendingAction(ctx, action, key)
	if errors.Is(err, ErrTaskNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to look up action %q: %w", action, err)
	}

	return task.ScheduledAt, true, nil
}

// encodeArgs returns the JSON payload and its canonical key.
// encoding/json emits struct fields in declaration order and map keys sorted,
// so equal arguments always produce equal keys.
func encodeArgs(args any) ([]byte, string, error) {
	if args == nil {
		return nil, "", nil
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return nil, "", errors.Join(ErrArgsMarshal, err)
	}

	return payload, string(payload), nil
}
