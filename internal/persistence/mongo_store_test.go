package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/tempalert/internal/testutil"
)

const mongoTestDatabase = "tempalert_test"

type MongoStoreTestSuite struct {
	suite.Suite
	client *mongo.Client
	ctx    context.Context
}

func TestMongoStoreTestSuite(t *testing.T) {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(testutil.GetMongoURI(t)))
	if err != nil {
		t.Fatalf("mongo connect failed: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	if err := client.Ping(ctx, nil); err != nil {
		t.Fatalf("mongo ping failed: %v", err)
	}

	suite.Run(t, &MongoStoreTestSuite{client: client, ctx: ctx})
}

func (m *MongoStoreTestSuite) SetupTest() {
	m.NoError(m.client.Database(mongoTestDatabase).Drop(m.ctx), "drop test database")
}

func (m *MongoStoreTestSuite) TestInstanceStoreContract() {
	runInstanceStoreContract(m.T(), NewMongoInstanceStore(m.client, mongoTestDatabase, ""))
}

func (m *MongoStoreTestSuite) TestEventStoreContract() {
	runEventStoreContract(m.T(), NewMongoEventStore(m.client, mongoTestDatabase, ""))
}

func (m *MongoStoreTestSuite) TestDefaults() {
	p := NewMongo(m.client, "")
	s := p.Instances.(*MongoInstanceStore)
	m.Equal(DefaultMongoDatabase, s.coll.Database().Name())
	m.Equal("instances", s.coll.Name())
}
