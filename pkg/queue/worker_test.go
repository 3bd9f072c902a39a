package queue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/renewalkit/pkg/queue"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWorker(t *testing.T, storage *queue.MemoryStorage, opts ...queue.WorkerOption) *queue.Worker {
	t.Helper()
	opts = append([]queue.WorkerOption{
		queue.WithPullInterval(10 * time.Millisecond),
		queue.WithRetryBackoff(0),
		queue.WithWorkerLogger(quietLogger()),
	}, opts...)
	w, err := queue.NewWorker(storage, opts...)
	require.NoError(t, err)
	return w
}

func TestWorker_Lifecycle(t *testing.T) {
	t.Parallel()

	t.Run("nil repository", func(t *testing.T) {
		t.Parallel()
		_, err := queue.NewWorker(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	})

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		defer storage.Close()

		w := newWorker(t, storage)
		assert.ErrorIs(t, w.Start(context.Background()), queue.ErrNoHandlers)
	})

	t.Run("double start and stop", func(t *testing.T) {
		t.Parallel()
		storage := queue.NewMemoryStorage()
		defer storage.Close()

		w := newWorker(t, storage)
		require.NoError(t, w.RegisterHandler(queue.NewPeriodicTaskHandler("noop", func(context.Context) error { return nil })))

		require.NoError(t, w.Start(context.Background()))
		assert.ErrorIs(t, w.Start(context.Background()), queue.ErrWorkerAlreadyStarted)
		require.NoError(t, w.Stop())
		assert.ErrorIs(t, w.Stop(), queue.ErrWorkerNotStarted)
	})
}

func TestWorker_DispatchesByActionName(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	ctx := context.Background()

	actions, err := queue.NewActions(storage)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []int64
	w := newWorker(t, storage, queue.WithMaxConcurrentTasks(2))
	require.NoError(t, w.RegisterHandler(queue.NewActionHandler("remind", func(_ context.Context, args subArgs) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, args.SubscriptionID)
		return nil
	})))

	require.NoError(t, actions.Schedule(ctx, "remind", subArgs{7}, time.Now().Add(-time.Second)))
	require.NoError(t, actions.Schedule(ctx, "remind", subArgs{8}, time.Now().Add(time.Hour)))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- w.Run(runCtx)() }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	assert.Equal(t, []int64{7}, got)
	mu.Unlock()
	assert.Len(t, storage.PendingTasks("remind"), 1, "future action stays pending")
}

func TestWorker_RetriesThenDeadLetters(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	ctx := context.Background()

	actions, err := queue.NewActions(storage, queue.WithMaxRetries(2))
	require.NoError(t, err)

	var calls atomic.Int32
	w := newWorker(t, storage)
	require.NoError(t, w.RegisterHandler(queue.NewActionHandler("flaky", func(context.Context, subArgs) error {
		calls.Add(1)
		return errors.New("downstream unavailable")
	})))

	require.NoError(t, actions.Schedule(ctx, "flaky", subArgs{1}, time.Now().Add(-time.Second)))

	require.NoError(t, w.Start(ctx))
	assert.Eventually(t, func() bool { return len(storage.DeadTasks()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "downstream unavailable", storage.DeadTasks()[0].Error)
}

func TestWorker_MissingHandlerGoesToDLQ(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	ctx := context.Background()

	actions, err := queue.NewActions(storage)
	require.NoError(t, err)
	require.NoError(t, actions.Schedule(ctx, "unknown", nil, time.Now().Add(-time.Second)))

	w := newWorker(t, storage)
	require.NoError(t, w.RegisterHandler(queue.NewPeriodicTaskHandler("other", func(context.Context) error { return nil })))

	require.NoError(t, w.Start(ctx))
	assert.Eventually(t, func() bool { return len(storage.DeadTasks()) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Equal(t, "unknown", storage.DeadTasks()[0].TaskName)
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	defer storage.Close()
	ctx := context.Background()

	actions, err := queue.NewActions(storage, queue.WithMaxRetries(1))
	require.NoError(t, err)
	require.NoError(t, actions.Schedule(ctx, "explode", nil, time.Now().Add(-time.Second)))

	w := newWorker(t, storage)
	require.NoError(t, w.RegisterHandler(queue.NewPeriodicTaskHandler("explode", func(context.Context) error {
		panic("kaboom")
	})))

	require.NoError(t, w.Start(ctx))
	assert.Eventually(t, func() bool { return len(storage.DeadTasks()) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())

	assert.Contains(t, storage.DeadTasks()[0].Error, "kaboom")
}
