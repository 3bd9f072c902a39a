package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SchedulerRepository defines the persistence needed for periodic tasks
type SchedulerRepository interface {
	CreateTask(ctx context.Context, task *Task) error
	FindPendingAction(ctx context.Context, name, argsKey string) (*Task, error)
}

// Scheduler keeps exactly one pending instance of every registered periodic task
type Scheduler struct {
	repo     SchedulerRepository
	tasks    map[string]*periodicTask
	mu       sync.RWMutex
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type periodicTask struct {
	name       string
	schedule   Schedule
	queue      string
	maxRetries int8
}

// NewScheduler creates a new periodic task scheduler
func NewScheduler(repo SchedulerRepository, opts ...SchedulerOption) (*Scheduler, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &schedulerOptions{
		checkInterval: 30 * time.Second,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Scheduler{
		repo:     repo,
		tasks:    make(map[string]*periodicTask),
		interval: options.checkInterval,
		now:      options.now,
		logger:   options.logger,
	}, nil
}

// AddTask registers a periodic task. Registering the same name twice is an error.
func (s *Scheduler) AddTask(name string, schedule Schedule, opts ...SchedulerTaskOption) error {
	if name == "" {
		return ErrActionNameEmpty
	}

	taskOpts := &schedulerTaskOptions{
		queue:      DefaultQueueName,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(taskOpts)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return ErrTaskAlreadyRegistered
	}

	s.tasks[name] = &periodicTask{
		name:       name,
		schedule:   schedule,
		queue:      taskOpts.queue,
		maxRetries: taskOpts.maxRetries,
	}

	s.logger.Info("registered periodic task",
		slog.String("task_name", name),
		slog.String("schedule", schedule.String()))

	return nil
}

// HasTask reports whether a periodic task with the given name is registered
func (s *Scheduler) HasTask(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tasks[name]
	return ok
}

// Start checks registered tasks immediately and then on every interval until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.RLock()
	n := len(s.tasks)
	s.mu.RUnlock()

	if n == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick creates the next instance of every periodic task that has no pending one
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.RLock()
	tasks := make([]*periodicTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.RUnlock()

	for _, t := range tasks {
		if err := s.ensurePending(ctx, t); err != nil {
			s.logger.Error("failed to schedule periodic task",
				slog.String("task_name", t.name),
				slog.String("error", err.Error()))
		}
	}
}

func (s *Scheduler) ensurePending(ctx context.Context, t *periodicTask) error {
	existing, err := s.repo.FindPendingAction(ctx, t.name, "")
	if err == nil && existing != nil {
		return nil
	}
	if err != nil && !errors.Is(err, ErrTaskNotFound) {
		return fmt.Errorf("failed to look up pending periodic task: %w", err)
	}

	now := s.now()
	next := t.schedule.Next(now)

	task := &Task{
		ID:          uuid.New(),
		Queue:       t.queue,
		TaskType:    TaskTypePeriodic,
		TaskName:    t.name,
		Status:      TaskStatusPending,
		MaxRetries:  t.maxRetries,
		ScheduledAt: next.UTC(),
		CreatedAt:   now.UTC(),
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to create periodic task: %w", err)
	}

	s.logger.Info("created periodic task",
		slog.String("task_name", t.name),
		slog.Time("scheduled_for", next))

	return nil
}
