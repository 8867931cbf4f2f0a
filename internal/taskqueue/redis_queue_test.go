package taskqueue

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/petrijr/tempalert/internal/testutil"
)

func TestRedisQueue(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testutil.GetRedisAddress(t)})
	t.Cleanup(func() { _ = client.Close() })

	key := "tempalert:test:tasks:" + uuid.NewString()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	q := NewRedisQueue(client, key)
	runQueueContract(t, q)
}
