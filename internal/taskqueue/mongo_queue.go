package taskqueue

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoQueue implements Queue on top of a MongoDB collection.
//
// Collection schema:
//
//	{
//	  _id:         ObjectID,  // insertion order
//	  task_id:     string,
//	  payload:     []byte,    // gob-encoded Task
//	  enqueued_at: int64,
//	}
type MongoQueue struct {
	coll         *mongo.Collection
	pollInterval time.Duration
}

// NewMongoQueue creates a Mongo-backed queue.
// dbName defaults to "tempalert", collName to "queue_tasks".
func NewMongoQueue(client *mongo.Client, dbName, collName string) *MongoQueue {
	if dbName == "" {
		dbName = "tempalert"
	}
	if collName == "" {
		collName = "queue_tasks"
	}
	return &MongoQueue{
		coll:         client.Database(dbName).Collection(collName),
		pollInterval: 100 * time.Millisecond,
	}
}

var _ Queue = (*MongoQueue)(nil)

type mongoQueueDoc struct {
	ID         primitive.ObjectID `bson:"_id"`
	TaskID     string             `bson:"task_id"`
	Payload    []byte             `bson:"payload"`
	EnqueuedAt int64              `bson:"enqueued_at"`
}

// Enqueue inserts a document for the given Task.
func (q *MongoQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	_, err = q.coll.InsertOne(ctx, mongoQueueDoc{
		ID:         primitive.NewObjectID(),
		TaskID:     t.ID,
		Payload:    data,
		EnqueuedAt: t.EnqueuedAt.UnixNano(),
	})
	return err
}

// Dequeue removes the oldest document, polling until one is available or
// ctx is cancelled.
func (q *MongoQueue) Dequeue(ctx context.Context) (*Task, error) {
	tmr := time.NewTimer(q.pollInterval)
	defer tmr.Stop()

	opts := options.FindOneAndDelete().SetSort(bson.D{{Key: "_id", Value: 1}})
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var doc mongoQueueDoc
		err := q.coll.FindOneAndDelete(ctx, bson.M{}, opts).Decode(&doc)
		if err == nil {
			return DecodeTask(doc.Payload)
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}

		tmr.Reset(q.pollInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tmr.C:
		}
	}
}

// Len returns an approximate number of queued tasks.
func (q *MongoQueue) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := q.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0
	}
	return int(n)
}
