package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/tempalert/pkg/api"
)

// DefaultRedisPrefix is used when no key prefix is given.
const DefaultRedisPrefix = "tempalert:"

// RedisInstanceStore is an InstanceStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>:inst:<id>            => gob-encoded instanceRecord
//	<prefix>:idx:all              => SET of all instance IDs
//	<prefix>:idx:wf:<workflow>    => SET of instance IDs for a given workflow
//
// Status changes on every transition, so it is filtered from the payload
// rather than indexed.
type RedisInstanceStore struct {
	client *redis.Client
	prefix string
}

var _ InstanceStore = (*RedisInstanceStore)(nil)

// NewRedisInstanceStore creates a RedisInstanceStore.
// prefix is optional but recommended (e.g. "tempalert:").
func NewRedisInstanceStore(client *redis.Client, prefix string) *RedisInstanceStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisInstanceStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisInstanceStore) keyInstance(id string) string {
	return s.prefix + "inst:" + id
}

func (s *RedisInstanceStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisInstanceStore) keyWorkflow(name string) string {
	return s.prefix + "idx:wf:" + name
}

func (s *RedisInstanceStore) SaveInstance(inst *api.WorkflowInstance) error {
	ctx := context.Background()

	data, err := marshalRecord(inst)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyInstance(inst.ID), data, 0)
	pipe.SAdd(ctx, s.keyAll(), inst.ID)
	pipe.SAdd(ctx, s.keyWorkflow(inst.Name), inst.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisInstanceStore) UpdateInstance(inst *api.WorkflowInstance) error {
	ctx := context.Background()

	data, err := marshalRecord(inst)
	if err != nil {
		return err
	}

	// SET XX only overwrites an existing key.
	ok, err := s.client.SetXX(ctx, s.keyInstance(inst.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrInstanceNotFound
	}
	return nil
}

func (s *RedisInstanceStore) GetInstance(id string) (*api.WorkflowInstance, error) {
	ctx := context.Background()

	data, err := s.client.Get(ctx, s.keyInstance(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return unmarshalRecord(data)
}

func (s *RedisInstanceStore) ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error) {
	ctx := context.Background()

	key := s.keyAll()
	if filter.WorkflowName != "" {
		key = s.keyWorkflow(filter.WorkflowName)
	}

	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	instances := []*api.WorkflowInstance{}
	if len(ids) == 0 {
		return instances, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.keyInstance(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		inst, err := unmarshalRecord(data)
		if err != nil {
			return nil, err
		}
		if filter.match(inst) {
			instances = append(instances, inst)
		}
	}
	sortInstances(instances)

	return instances, nil
}

// RedisEventStore appends events to one Redis list per instance:
//
//	<prefix>:events:<id> => LIST of gob-encoded api.WorkflowEvent
type RedisEventStore struct {
	client *redis.Client
	prefix string
}

var _ EventStore = (*RedisEventStore)(nil)

// NewRedisEventStore creates a RedisEventStore.
func NewRedisEventStore(client *redis.Client, prefix string) *RedisEventStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisEventStore{client: client, prefix: prefix}
}

func (s *RedisEventStore) keyEvents(id string) string {
	return s.prefix + "events:" + id
}

func (s *RedisEventStore) AppendEvent(ctx context.Context, ev api.WorkflowEvent) error {
	data, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, s.keyEvents(ev.InstanceID), data).Err()
}

func (s *RedisEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	items, err := s.client.LRange(ctx, s.keyEvents(instanceID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]api.WorkflowEvent, 0, len(items))
	for _, item := range items {
		ev, err := unmarshalEvent([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
