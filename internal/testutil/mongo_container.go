package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	mongoOnce      sync.Once
	mongoContainer testcontainers.Container
	mongoURI       string
	mongoErr       error
)

// GetMongoURI returns the URI of a shared MongoDB container, starting it on
// first use. Tests are skipped when the container cannot be started.
func GetMongoURI(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	startMongoContainer()
	if mongoErr != nil {
		t.Skipf("mongo container unavailable: %v", mongoErr)
	}
	return mongoURI
}

func startMongoContainer() {
	mongoOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		mongoC, err := testcontainers.Run(
			ctx, "mongo:7",
			testcontainers.WithExposedPorts("27017/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("27017/tcp").WithStartupTimeout(2*time.Minute),
			),
		)
		if err != nil {
			mongoErr = fmt.Errorf("start mongo container: %w", err)
			return
		}

		endpoint, err := mongoC.Endpoint(ctx, "")
		if err != nil {
			_ = mongoC.Terminate(context.Background())
			mongoErr = err
			return
		}

		mongoContainer = mongoC
		mongoURI = "mongodb://" + endpoint
	})
}

// TerminateMongo stops the shared container. Packages call it from TestMain.
func TerminateMongo() {
	if mongoContainer != nil {
		_ = mongoContainer.Terminate(context.Background())
	}
}
