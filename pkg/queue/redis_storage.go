package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// finishedTaskTTL bounds how long completed and cancelled tasks stay readable
const finishedTaskTTL = 7 * 24 * time.Hour

// RedisStorage implements every queue repository interface on top of Redis.
//
// Layout under the key prefix:
//
//	task:<id>               JSON encoded Task
//	due:<queue>             ZSET of pending task ids scored by ScheduledAt (ms)
//	action:<name>:<args>    ZSET of pending task ids for one action key
//	processing              ZSET of claimed task ids scored by LockedUntil (ms)
//	dead                    LIST of JSON encoded DeadTask
//
// A pending task is claimed by removing it from its due set; only the caller
// whose ZREM succeeds owns it.
type RedisStorage struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStorage creates a Redis backed storage using the given key prefix
func NewRedisStorage(client redis.UniversalClient, prefix string) (*RedisStorage, error) {
	if client == nil {
		return nil, ErrRepositoryNil
	}
	if prefix == "" {
		prefix = "queue"
	}
	return &RedisStorage{client: client, prefix: prefix}, nil
}

func (rs *RedisStorage) taskKey(id uuid.UUID) string { return rs.prefix + ":task:" + id.String() }
func (rs *RedisStorage) dueKey(queue string) string  { return rs.prefix + ":due:" + queue }
func (rs *RedisStorage) processingKey() string       { return rs.prefix + ":processing" }
func (rs *RedisStorage) deadKey() string             { return rs.prefix + ":dead" }

func (rs *RedisStorage) actionSetKey(name, argsKey string) string {
	return rs.prefix + ":action:" + name + ":" + argsKey
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

// CreateTask implements ActionRepository and SchedulerRepository
func (rs *RedisStorage) CreateTask(ctx context.Context, task *Task) error {
	if task == nil {
		return ErrTaskNil
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	ok, err := rs.client.SetNX(ctx, rs.taskKey(task.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to store task: %w", err)
	}
	if !ok {
		return ErrTaskExists
	}

	if task.Status != TaskStatusPending {
		return nil
	}

	member := redis.Z{Score: score(task.ScheduledAt), Member: task.ID.String()}
	_, err = rs.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, rs.dueKey(task.Queue), member)
		p.ZAdd(ctx, rs.actionSetKey(task.TaskName, task.ArgsKey), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index task: %w", err)
	}

	return nil
}

// FindPendingAction implements ActionRepository and SchedulerRepository
func (rs *RedisStorage) FindPendingAction(ctx context.Context, name, argsKey string) (*Task, error) {
	ids, err := rs.client.ZRange(ctx, rs.actionSetKey(name, argsKey), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read action index: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrTaskNotFound
	}

	id, err := uuid.Parse(ids[0])
	if err != nil {
		return nil, fmt.Errorf("corrupt action index entry %q: %w", ids[0], err)
	}

	return rs.load(ctx, id)
}

// CancelPendingActions implements ActionRepository
func (rs *RedisStorage) CancelPendingActions(ctx context.Context, name, argsKey string) (int, error) {
	setKey := rs.actionSetKey(name, argsKey)
	ids, err := rs.client.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read action index: %w", err)
	}

	cancelled := 0
	now := time.Now().UTC()
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		task, err := rs.load(ctx, id)
		if errors.Is(err, ErrTaskNotFound) {
			continue
		}
		if err != nil {
			return cancelled, err
		}

		removed, err := rs.client.ZRem(ctx, rs.dueKey(task.Queue), raw).Result()
		if err != nil {
			return cancelled, fmt.Errorf("failed to remove task from due set: %w", err)
		}
		if removed == 0 {
			// claimed by a worker in the meantime
			continue
		}

		task.Status = TaskStatusCancelled
		task.ProcessedAt = &now
		if err := rs.save(ctx, task, finishedTaskTTL); err != nil {
			return cancelled, err
		}
		cancelled++
	}

	if err := rs.client.Del(ctx, setKey).Err(); err != nil {
		return cancelled, fmt.Errorf("failed to clear action index: %w", err)
	}

	return cancelled, nil
}

// ClaimTask implements WorkerRepository
func (rs *RedisStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	now := time.Now()
	if err := rs.requeueExpired(ctx, now); err != nil {
		return nil, err
	}

	upper := strconv.FormatInt(now.UnixMilli(), 10)
	for _, q := range queues {
		ids, err := rs.client.ZRangeByScore(ctx, rs.dueKey(q), &redis.ZRangeBy{
			Min: "-inf", Max: upper, Offset: 0, Count: 5,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read due set: %w", err)
		}

		for _, raw := range ids {
			removed, err := rs.client.ZRem(ctx, rs.dueKey(q), raw).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to claim task: %w", err)
			}
			if removed == 0 {
				continue
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			task, err := rs.load(ctx, id)
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}

			lockUntil := now.Add(lockDuration)
			task.Status = TaskStatusProcessing
			task.LockedUntil = &lockUntil
			task.LockedBy = &workerID

			if err := rs.save(ctx, task, 0); err != nil {
				return nil, err
			}
			_, err = rs.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.ZRem(ctx, rs.actionSetKey(task.TaskName, task.ArgsKey), raw)
				p.ZAdd(ctx, rs.processingKey(), redis.Z{Score: score(lockUntil), Member: raw})
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("failed to record claim: %w", err)
			}

			return task, nil
		}
	}

	return nil, ErrNoTaskToClaim
}

// CompleteTask implements WorkerRepository
func (rs *RedisStorage) CompleteTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := rs.processing(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	task.Status = TaskStatusCompleted
	task.ProcessedAt = &now
	task.LockedUntil = nil
	task.LockedBy = nil

	if err := rs.save(ctx, task, finishedTaskTTL); err != nil {
		return err
	}
	return rs.client.ZRem(ctx, rs.processingKey(), taskID.String()).Err()
}

// FailTask implements WorkerRepository
func (rs *RedisStorage) FailTask(ctx context.Context, taskID uuid.UUID, errorMsg string, backoff time.Duration) error {
	task, err := rs.processing(ctx, taskID)
	if err != nil {
		return err
	}

	task.RetryCount++
	task.Error = &errorMsg
	task.LockedUntil = nil
	task.LockedBy = nil

	if err := rs.client.ZRem(ctx, rs.processingKey(), taskID.String()).Err(); err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}

	if task.RetryCount >= task.MaxRetries {
		task.Status = TaskStatusFailed
		return rs.save(ctx, task, 0)
	}

	task.Status = TaskStatusPending
	task.ScheduledAt = time.Now().Add(backoff).UTC()
	if err := rs.save(ctx, task, 0); err != nil {
		return err
	}
	return rs.index(ctx, task)
}

// MoveToDLQ implements WorkerRepository
func (rs *RedisStorage) MoveToDLQ(ctx context.Context, taskID uuid.UUID) error {
	task, err := rs.load(ctx, taskID)
	if err != nil {
		return err
	}

	dt := DeadTask{
		ID:         uuid.New(),
		TaskID:     task.ID,
		Queue:      task.Queue,
		TaskName:   task.TaskName,
		Payload:    task.Payload,
		RetryCount: task.RetryCount,
		FailedAt:   time.Now().UTC(),
	}
	if task.Error != nil {
		dt.Error = *task.Error
	}
	data, err := json.Marshal(dt)
	if err != nil {
		return fmt.Errorf("failed to encode dead task: %w", err)
	}

	raw := taskID.String()
	_, err = rs.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, rs.deadKey(), data)
		p.ZRem(ctx, rs.dueKey(task.Queue), raw)
		p.ZRem(ctx, rs.actionSetKey(task.TaskName, task.ArgsKey), raw)
		p.ZRem(ctx, rs.processingKey(), raw)
		p.Del(ctx, rs.taskKey(taskID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to move task to dead letter list: %w", err)
	}
	return nil
}

// requeueExpired returns tasks whose lock has lapsed back to their due set
func (rs *RedisStorage) requeueExpired(ctx context.Context, now time.Time) error {
	ids, err := rs.client.ZRangeByScore(ctx, rs.processingKey(), &redis.ZRangeBy{
		Min: "-inf", Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read processing set: %w", err)
	}

	for _, raw := range ids {
		removed, err := rs.client.ZRem(ctx, rs.processingKey(), raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		task, err := rs.load(ctx, id)
		if err != nil {
			continue
		}
		task.Status = TaskStatusPending
		task.LockedUntil = nil
		task.LockedBy = nil
		if err := rs.save(ctx, task, 0); err != nil {
			return err
		}
		if err := rs.index(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (rs *RedisStorage) index(ctx context.Context, task *Task) error {
	member := redis.Z{Score: score(task.ScheduledAt), Member: task.ID.String()}
	_, err := rs.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, rs.dueKey(task.Queue), member)
		p.ZAdd(ctx, rs.actionSetKey(task.TaskName, task.ArgsKey), member)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index task: %w", err)
	}
	return nil
}

func (rs *RedisStorage) processing(ctx context.Context, id uuid.UUID) (*Task, error) {
	task, err := rs.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status != TaskStatusProcessing {
		return nil, ErrTaskNotProcessing
	}
	return task, nil
}

func (rs *RedisStorage) load(ctx context.Context, id uuid.UUID) (*Task, error) {
	data, err := rs.client.Get(ctx, rs.taskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return &task, nil
}

func (rs *RedisStorage) save(ctx context.Context, task *Task, ttl time.Duration) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := rs.client.Set(ctx, rs.taskKey(task.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store task: %w", err)
	}
	return nil
}
