// Package queue provides a storage-agnostic timed action queue with support for
// one-off and periodic execution.
//
// The package is organised around three components:
//
//   - Actions    - schedules, cancels and looks up named actions keyed by their arguments
//   - Scheduler  - turns Schedule definitions into periodic tasks at runtime
//   - Worker     - claims due tasks and dispatches them to a Handler by action name
//
// An action is identified by its name plus the canonical JSON encoding of its
// arguments (Task.ArgsKey). At most one pending task per (name, args) pair is
// expected; callers that reschedule an action cancel the existing entry first.
//
// Components talk to persistence only through small repository interfaces.
// MemoryStorage backs tests and local development, RedisStorage backs production.
//
// # Usage
//
//	storage := queue.NewMemoryStorage()
//	defer storage.Close()
//
//	actions, _ := queue.NewActions(storage)
//	_ = actions.Schedule(ctx, "send_reminder", map[string]int64{"subscription_id": 42}, when)
//
//	worker, _ := queue.NewWorker(storage)
//	_ = worker.RegisterHandler(queue.NewActionHandler("send_reminder",
//	    func(ctx context.Context, args reminderArgs) error { return nil }))
//
//	scheduler, _ := queue.NewScheduler(storage)
//	_ = scheduler.AddTask("daily_sweep", queue.DailyAt(0, 0))
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(worker.Run(ctx))
//	g.Go(func() error { return scheduler.Start(ctx) })
//
// # Storage
//
// RedisStorage keeps each task as JSON and its due time in one sorted set per
// queue. Claimed tasks carry a lock. When a worker dies the lock expires and
// the task goes back to its due set.
//
//	client, err := redis.Connect(ctx, redisCfg)
//	if err != nil {
//		return err
//	}
//	storage, err := queue.NewRedisStorage(client, queueCfg.RedisKeyPrefix)
//
// # Periodic tasks
//
// Schedules are computed in the location of the scheduler clock. DailyAt(0, 0)
// with a clock in the shop's time zone fires at local midnight:
//
//	scheduler, _ := queue.NewScheduler(storage,
//		queue.WithSchedulerClock(func() time.Time { return time.Now().In(shopZone) }))
//	_ = scheduler.AddTask("daily_overdue_check", queue.DailyAt(0, 0),
//		queue.WithTaskQueue("renewals"))
//
// Failed tasks are retried with the worker's backoff until MaxRetries is
// reached, then moved aside as dead.
//
// # Error handling
//
// Exported sentinel errors (ErrRepositoryNil, ErrNoTaskToClaim, ErrTaskNotFound, ...)
// are returned directly or wrapped with %w and can be matched with errors.Is.
package queue
