package taskqueue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue backed by a single Redis list. Producers RPUSH
// gob-encoded tasks and consumers BLPOP them, which preserves FIFO order
// across processes sharing the list.
type RedisQueue struct {
	client   *redis.Client
	key      string
	blockFor time.Duration
}

// NewRedisQueue returns a queue stored under key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "tempalert:tasks"
	}
	return &RedisQueue{
		client:   client,
		key:      key,
		blockFor: time.Second,
	}
}

var _ Queue = (*RedisQueue)(nil)

func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, data).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := q.client.BLPop(ctx, q.blockFor, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		// res is [key, value].
		return DecodeTask([]byte(res[1]))
	}
}

func (q *RedisQueue) Len() int {
	n, err := q.client.LLen(context.Background(), q.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}
