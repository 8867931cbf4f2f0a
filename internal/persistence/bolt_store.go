package persistence

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/petrijr/tempalert/pkg/api"
)

var (
	boltInstancesBucket = []byte("instances")
	boltEventsBucket    = []byte("events")
)

// BoltInstanceStore is an InstanceStore backed by a bbolt file.
// Each instance is one gob-encoded value keyed by ID in the "instances" bucket.
type BoltInstanceStore struct {
	db *bolt.DB
}

var _ InstanceStore = (*BoltInstanceStore)(nil)

// NewBoltInstanceStore creates the instances bucket if needed.
func NewBoltInstanceStore(db *bolt.DB) (*BoltInstanceStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltInstancesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltInstanceStore{db: db}, nil
}

func (s *BoltInstanceStore) SaveInstance(inst *api.WorkflowInstance) error {
	data, err := marshalRecord(inst)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltInstancesBucket).Put([]byte(inst.ID), data)
	})
}

func (s *BoltInstanceStore) UpdateInstance(inst *api.WorkflowInstance) error {
	data, err := marshalRecord(inst)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltInstancesBucket)
		if b.Get([]byte(inst.ID)) == nil {
			return ErrInstanceNotFound
		}
		return b.Put([]byte(inst.ID), data)
	})
}

func (s *BoltInstanceStore) GetInstance(id string) (*api.WorkflowInstance, error) {
	var inst *api.WorkflowInstance
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(boltInstancesBucket).Get([]byte(id))
		if data == nil {
			return ErrInstanceNotFound
		}
		var err error
		inst, err = unmarshalRecord(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (s *BoltInstanceStore) ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error) {
	instances := []*api.WorkflowInstance{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltInstancesBucket).ForEach(func(k, v []byte) error {
			inst, err := unmarshalRecord(v)
			if err != nil {
				return fmt.Errorf("instance %s: %w", k, err)
			}
			if filter.match(inst) {
				instances = append(instances, inst)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortInstances(instances)
	return instances, nil
}

// BoltEventStore keeps one nested bucket per instance under "events", with
// events keyed by the bucket's big-endian sequence number.
type BoltEventStore struct {
	db *bolt.DB
}

var _ EventStore = (*BoltEventStore)(nil)

// NewBoltEventStore creates the events bucket if needed.
func NewBoltEventStore(db *bolt.DB) (*BoltEventStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltEventsBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltEventStore{db: db}, nil
}

func (s *BoltEventStore) AppendEvent(ctx context.Context, ev api.WorkflowEvent) error {
	data, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(boltEventsBucket).CreateBucketIfNotExists([]byte(ev.InstanceID))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

func (s *BoltEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	var out []api.WorkflowEvent
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltEventsBucket).Bucket([]byte(instanceID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			ev, err := unmarshalEvent(v)
			if err != nil {
				return err
			}
			out = append(out, ev)
			return nil
		})
	})
	return out, err
}
