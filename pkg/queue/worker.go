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

// WorkerRepository defines the persistence needed to process tasks
type WorkerRepository interface {
	// ClaimTask atomically claims the earliest due pending task in one of the queues.
	// Returns ErrNoTaskToClaim when nothing is due.
	ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error)

	// CompleteTask marks a processing task as completed
	CompleteTask(ctx context.Context, taskID uuid.UUID) error

	// FailTask records the error, increments the retry count and either puts the task
	// back to pending after backoff or marks it failed once retries are exhausted
	FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string, backoff time.Duration) error

	// MoveToDLQ moves a task into the dead letter store
	MoveToDLQ(ctx context.Context, taskID uuid.UUID) error
}

// Worker claims due tasks and dispatches them by action name
type Worker struct {
	repo     WorkerRepository
	handlers map[string]Handler
	queues   []string
	workerID uuid.UUID
	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex

	pullInterval time.Duration
	lockTimeout  time.Duration
	retryBackoff time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
}

// NewWorker creates a new task worker
func NewWorker(repo WorkerRepository, opts ...WorkerOption) (*Worker, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}

	options := &workerOptions{
		queues:             []string{DefaultQueueName},
		pullInterval:       5 * time.Second,
		lockTimeout:        5 * time.Minute,
		retryBackoff:       30 * time.Second,
		maxConcurrentTasks: 1,
		logger:             slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		repo:         repo,
		handlers:     make(map[string]Handler),
		queues:       options.queues,
		workerID:     uuid.New(),
		sem:          make(chan struct{}, options.maxConcurrentTasks),
		pullInterval: options.pullInterval,
		lockTimeout:  options.lockTimeout,
		retryBackoff: options.retryBackoff,
		logger:       options.logger,
	}, nil
}

// RegisterHandler registers handlers by their action name, replacing earlier ones
func (w *Worker) RegisterHandler(handlers ...Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, h := range handlers {
		if h == nil {
			continue
		}
		w.handlers[h.Name()] = h
	}
	return nil
}

// Start begins processing tasks in the background
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerAlreadyStarted
	}
	if len(w.handlers) == 0 {
		return ErrNoHandlers
	}

	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()

	w.logger.Info("worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Any("queues", w.queues),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop cancels polling and waits for in-flight tasks to finish
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()

	w.logger.Info("worker stopped", slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run starts the worker and returns a function suitable for errgroup
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims tasks until nothing is due or every slot is busy
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		select {
		case w.sem <- struct{}{}:
		default:
			return
		}

		task, err := w.repo.ClaimTask(ctx, w.workerID, w.queues, w.lockTimeout)
		if err != nil {
			<-w.sem
			if !errors.Is(err, ErrNoTaskToClaim) && !errors.Is(err, context.Canceled) {
				w.logger.Error("failed to claim task",
					slog.String("worker_id", w.workerID.String()),
					slog.String("error", err.Error()))
			}
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()

			if err := w.process(task); err != nil && !errors.Is(err, ErrHandlerNotFound) {
				w.logger.Error("failed to process task",
					slog.String("worker_id", w.workerID.String()),
					slog.String("task_id", task.ID.String()),
					slog.String("error", err.Error()))
			}
		}()
	}
}

// process runs the handler detached from the worker context so shutdown lets it finish
func (w *Worker) process(task *Task) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	w.mu.RLock()
	handler, ok := w.handlers[task.TaskName]
	w.mu.RUnlock()

	if !ok {
		w.logger.Error("no handler registered for action",
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.TaskName))

		if err := w.repo.FailTask(ctx, task.ID, ErrHandlerNotFound.Error()+": "+task.TaskName, 0); err != nil {
			return fmt.Errorf("failed to mark task %s as failed: %w", task.ID, err)
		}
		if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to move task %s to DLQ: %w", task.ID, err)
		}
		return ErrHandlerNotFound
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("handler panicked",
				slog.String("task_id", task.ID.String()),
				slog.String("task_name", task.TaskName),
				slog.Any("panic", r))
			err = w.fail(ctx, task, fmt.Errorf("panic in handler: %v", r), time.Since(start))
		}
	}()

	if herr := handler.Handle(ctx, task.Payload); herr != nil {
		return w.fail(ctx, task, herr, time.Since(start))
	}

	if err := w.repo.CompleteTask(ctx, task.ID); err != nil {
		return fmt.Errorf("failed to mark task %s as completed: %w", task.ID, err)
	}

	w.logger.Info("task completed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.Duration("duration", time.Since(start)))

	return nil
}

func (w *Worker) fail(ctx context.Context, task *Task, cause error, duration time.Duration) error {
	w.logger.Error("task failed",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.TaskName),
		slog.Int("retry_count", int(task.RetryCount)),
		slog.Int("max_retries", int(task.MaxRetries)),
		slog.Duration("duration", duration),
		slog.String("error", cause.Error()))

	backoff := time.Duration(task.RetryCount+1) * w.retryBackoff
	if err := w.repo.FailTask(ctx, task.ID, cause.Error(), backoff); err != nil {
		return fmt.Errorf("failed to mark task %s as failed: %w", task.ID, err)
	}

	// FailTask incremented the stored count; task holds the pre-failure value
	if task.RetryCount+1 >= task.MaxRetries {
		if err := w.repo.MoveToDLQ(ctx, task.ID); err != nil {
			return fmt.Errorf("failed to move task %s to DLQ: %w", task.ID, err)
		}
		w.logger.Warn("task moved to dead letter queue",
			slog.String("task_id", task.ID.String()),
			slog.String("task_name", task.TaskName))
	}

	return nil
}
