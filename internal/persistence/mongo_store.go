package persistence

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/tempalert/pkg/api"
)

// DefaultMongoDatabase is used when no database name is given.
const DefaultMongoDatabase = "tempalert"

const mongoOpTimeout = 5 * time.Second

// MongoInstanceStore is an InstanceStore backed by a MongoDB collection.
type MongoInstanceStore struct {
	coll *mongo.Collection
}

var _ InstanceStore = (*MongoInstanceStore)(nil)

// NewMongoInstanceStore creates a Mongo-backed instance store.
// dbName defaults to "tempalert" if empty, collName defaults to "instances".
func NewMongoInstanceStore(client *mongo.Client, dbName, collName string) *MongoInstanceStore {
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}
	if collName == "" {
		collName = "instances"
	}
	return &MongoInstanceStore{
		coll: client.Database(dbName).Collection(collName),
	}
}

type mongoInstanceDoc struct {
	ID        string `bson:"_id"`
	Workflow  string `bson:"workflow_name"`
	Status    string `bson:"status"`
	Phase     string `bson:"phase"`
	Input     []byte `bson:"input,omitempty"`
	Output    []byte `bson:"output,omitempty"`
	Error     string `bson:"error,omitempty"`
	ParentID  string `bson:"parent_id,omitempty"`
	StartedAt int64  `bson:"started_at"`
	ClosedAt  int64  `bson:"closed_at"`
}

func toMongoDoc(inst *api.WorkflowInstance) (mongoInstanceDoc, error) {
	rec, err := toRecord(inst)
	if err != nil {
		return mongoInstanceDoc{}, err
	}
	return mongoInstanceDoc{
		ID:        rec.ID,
		Workflow:  rec.Workflow,
		Status:    rec.Status,
		Phase:     rec.Phase,
		Input:     rec.Input,
		Output:    rec.Output,
		Error:     rec.Error,
		ParentID:  rec.ParentID,
		StartedAt: unixNano(rec.StartedAt),
		ClosedAt:  unixNano(rec.ClosedAt),
	}, nil
}

func (d mongoInstanceDoc) instance() (*api.WorkflowInstance, error) {
	return instanceRecord{
		ID:        d.ID,
		Workflow:  d.Workflow,
		Status:    d.Status,
		Phase:     d.Phase,
		Input:     d.Input,
		Output:    d.Output,
		Error:     d.Error,
		ParentID:  d.ParentID,
		StartedAt: fromUnixNano(d.StartedAt),
		ClosedAt:  fromUnixNano(d.ClosedAt),
	}.instance()
}

func (s *MongoInstanceStore) SaveInstance(inst *api.WorkflowInstance) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := toMongoDoc(inst)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoInstanceStore) UpdateInstance(inst *api.WorkflowInstance) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	doc, err := toMongoDoc(inst)
	if err != nil {
		return err
	}
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

func (s *MongoInstanceStore) GetInstance(id string) (*api.WorkflowInstance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	var doc mongoInstanceDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return doc.instance()
}

func (s *MongoInstanceStore) ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*mongoOpTimeout)
	defer cancel()

	bfilter := bson.M{}
	if filter.WorkflowName != "" {
		bfilter["workflow_name"] = filter.WorkflowName
	}
	if filter.Status != "" {
		bfilter["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bfilter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := []*api.WorkflowInstance{}
	for cur.Next(ctx) {
		var doc mongoInstanceDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		inst, err := doc.instance()
		if err != nil {
			return nil, err
		}
		results = append(results, inst)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// MongoEventStore appends workflow events to a MongoDB collection. Events
// are listed in insertion order using the driver-generated ObjectID.
type MongoEventStore struct {
	coll *mongo.Collection
}

var _ EventStore = (*MongoEventStore)(nil)

// NewMongoEventStore returns an event store. dbName defaults to "tempalert",
// collName to "workflow_events".
func NewMongoEventStore(client *mongo.Client, dbName, collName string) *MongoEventStore {
	if dbName == "" {
		dbName = DefaultMongoDatabase
	}
	if collName == "" {
		collName = "workflow_events"
	}
	return &MongoEventStore{coll: client.Database(dbName).Collection(collName)}
}

type mongoEventDoc struct {
	InstanceID   string `bson:"instance_id"`
	At           int64  `bson:"at"`
	Type         string `bson:"type"`
	WorkflowName string `bson:"workflow_name,omitempty"`
	Phase        string `bson:"phase,omitempty"`
	Detail       string `bson:"detail,omitempty"`
}

func (s *MongoEventStore) AppendEvent(ctx context.Context, ev api.WorkflowEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.coll.InsertOne(ctx, mongoEventDoc{
		InstanceID:   ev.InstanceID,
		At:           at.UnixNano(),
		Type:         string(ev.Type),
		WorkflowName: ev.WorkflowName,
		Phase:        ev.Phase,
		Detail:       ev.Detail,
	})
	return err
}

func (s *MongoEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{"instance_id": instanceID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []api.WorkflowEvent
	for cur.Next(ctx) {
		var doc mongoEventDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, api.WorkflowEvent{
			InstanceID:   doc.InstanceID,
			At:           time.Unix(0, doc.At),
			Type:         api.EventType(doc.Type),
			WorkflowName: doc.WorkflowName,
			Phase:        doc.Phase,
			Detail:       doc.Detail,
		})
	}
	return out, cur.Err()
}
