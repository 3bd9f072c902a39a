package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements every queue repository interface in process memory.
// Intended for tests and local development.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
	dead  []DeadTask

	// pending task ids per action key
	byAction map[string][]uuid.UUID

	lockTicker *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStorage creates an empty in-memory storage and starts lock expiry
func NewMemoryStorage() *MemoryStorage {
	ms := &MemoryStorage{
		tasks:      make(map[uuid.UUID]*Task),
		byAction:   make(map[string][]uuid.UUID),
		lockTicker: time.NewTicker(time.Second),
		done:       make(chan struct{}),
	}
	go ms.expireLocksLoop()
	return ms
}

// Close stops the lock expiry goroutine
func (ms *MemoryStorage) Close() error {
	ms.closeOnce.Do(func() {
		close(ms.done)
		ms.lockTicker.Stop()
	})
	return nil
}

func actionKey(name, argsKey string) string {
	return name + "\x00" + argsKey
}

// CreateTask implements ActionRepository and SchedulerRepository
func (ms *MemoryStorage) CreateTask(_ context.Context, task *Task) error {
	if task == nil {
		return ErrTaskNil
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.tasks[task.ID]; exists {
		return ErrTaskExists
	}

	cp := *task
	ms.tasks[task.ID] = &cp
	if cp.Status == TaskStatusPending {
		k := actionKey(cp.TaskName, cp.ArgsKey)
		ms.byAction[k] = append(ms.byAction[k], cp.ID)
	}

	return nil
}

// FindPendingAction implements ActionRepository and SchedulerRepository
func (ms *MemoryStorage) FindPendingAction(_ context.Context, name, argsKey string) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var best *Task
	for _, id := range ms.byAction[actionKey(name, argsKey)] {
		t := ms.tasks[id]
		if best == nil || t.ScheduledAt.Before(best.ScheduledAt) {
			best = t
		}
	}
	if best == nil {
		return nil, ErrTaskNotFound
	}

	cp := *best
	return &cp, nil
}

// CancelPendingActions implements ActionRepository
func (ms *MemoryStorage) CancelPendingActions(_ context.Context, name, argsKey string) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	k := actionKey(name, argsKey)
	ids := ms.byAction[k]
	now := time.Now().UTC()
	for _, id := range ids {
		t := ms.tasks[id]
		t.Status = TaskStatusCancelled
		t.ProcessedAt = &now
	}
	delete(ms.byAction, k)

	return len(ids), nil
}

// ClaimTask implements WorkerRepository
func (ms *MemoryStorage) ClaimTask(_ context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	var best *Task
	for _, ids := range ms.byAction {
		for _, id := range ids {
			t := ms.tasks[id]
			if !slices.Contains(queues, t.Queue) || t.ScheduledAt.After(now) {
				continue
			}
			if best == nil || t.ScheduledAt.Before(best.ScheduledAt) {
				best = t
			}
		}
	}
	if best == nil {
		return nil, ErrNoTaskToClaim
	}

	lockUntil := now.Add(lockDuration)
	best.Status = TaskStatusProcessing
	best.LockedUntil = &lockUntil
	best.LockedBy = &workerID
	ms.unindex(best)

	cp := *best
	return &cp, nil
}

// CompleteTask implements WorkerRepository
func (ms *MemoryStorage) CompleteTask(_ context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, err := ms.processing(taskID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	t.Status = TaskStatusCompleted
	t.ProcessedAt = &now
	t.LockedUntil = nil
	t.LockedBy = nil

	return nil
}

// FailTask implements WorkerRepository
func (ms *MemoryStorage) FailTask(_ context.Context, taskID uuid.UUID, errorMsg string, backoff time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, err := ms.processing(taskID)
	if err != nil {
		return err
	}

	t.RetryCount++
	t.Error = &errorMsg
	t.LockedUntil = nil
	t.LockedBy = nil

	if t.RetryCount >= t.MaxRetries {
		t.Status = TaskStatusFailed
		return nil
	}

	t.Status = TaskStatusPending
	t.ScheduledAt = time.Now().Add(backoff).UTC()
	k := actionKey(t.TaskName, t.ArgsKey)
	ms.byAction[k] = append(ms.byAction[k], t.ID)

	return nil
}

// MoveToDLQ implements WorkerRepository
func (ms *MemoryStorage) MoveToDLQ(_ context.Context, taskID uuid.UUID) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	t, ok := ms.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}

	dt := DeadTask{
		ID:         uuid.New(),
		TaskID:     t.ID,
		Queue:      t.Queue,
		TaskName:   t.TaskName,
		Payload:    t.Payload,
		RetryCount: t.RetryCount,
		FailedAt:   time.Now().UTC(),
	}
	if t.Error != nil {
		dt.Error = *t.Error
	}
	ms.dead = append(ms.dead, dt)

	ms.unindex(t)
	delete(ms.tasks, taskID)

	return nil
}

// PendingTasks returns copies of all pending tasks with the given action name,
// earliest first. An empty name returns every pending task.
func (ms *MemoryStorage) PendingTasks(name string) []Task {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []Task
	for _, ids := range ms.byAction {
		for _, id := range ids {
			t := ms.tasks[id]
			if name == "" || t.TaskName == name {
				out = append(out, *t)
			}
		}
	}
	slices.SortFunc(out, func(a, b Task) int { return a.ScheduledAt.Compare(b.ScheduledAt) })
	return out
}

// DeadTasks returns copies of the dead letter entries
func (ms *MemoryStorage) DeadTasks() []DeadTask {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return slices.Clone(ms.dead)
}

func (ms *MemoryStorage) processing(taskID uuid.UUID) (*Task, error) {
	t, ok := ms.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if t.Status != TaskStatusProcessing {
		return nil, ErrTaskNotProcessing
	}
	return t, nil
}

func (ms *MemoryStorage) unindex(t *Task) {
	k := actionKey(t.TaskName, t.ArgsKey)
	ids := slices.DeleteFunc(ms.byAction[k], func(id uuid.UUID) bool { return id == t.ID })
	if len(ids) == 0 {
		delete(ms.byAction, k)
		return
	}
	ms.byAction[k] = ids
}

// expireLocksLoop returns tasks held by crashed workers to pending
func (ms *MemoryStorage) expireLocksLoop() {
	for {
		select {
		case <-ms.done:
			return
		case <-ms.lockTicker.C:
			ms.expireLocks()
		}
	}
}

func (ms *MemoryStorage) expireLocks() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	for _, t := range ms.tasks {
		if t.Status != TaskStatusProcessing || t.LockedUntil == nil || t.LockedUntil.After(now) {
			continue
		}
		t.Status = TaskStatusPending
		t.LockedUntil = nil
		t.LockedBy = nil
		k := actionKey(t.TaskName, t.ArgsKey)
		ms.byAction[k] = append(ms.byAction[k], t.ID)
	}
}
