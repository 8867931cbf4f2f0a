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
	pgOnce      sync.Once
	pgContainer testcontainers.Container
	pgDSN       string
	pgErr       error
)

// GetPostgresDSN returns a pgx DSN for a shared PostgreSQL container,
// starting it on first use. Tests are skipped when no container provider is
// available.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	startPostgresContainer()
	if pgErr != nil {
		t.Skipf("postgres container unavailable: %v", pgErr)
	}
	return pgDSN
}

func startPostgresContainer() {
	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		postgresC, err := testcontainers.Run(
			ctx, "postgres:16",
			testcontainers.WithExposedPorts("5432/tcp"),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     "tempalert",
				"POSTGRES_PASSWORD": "tempalert",
				"POSTGRES_DB":       "tempalert_test",
			}),
			testcontainers.WithWaitStrategy(
				wait.ForAll(
					wait.ForListeningPort("5432/tcp"),
					// The first message comes from the init server.
					wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				).WithDeadline(2*time.Minute),
			),
		)
		if err != nil {
			pgErr = err
			return
		}

		endpoint, err := postgresC.Endpoint(ctx, "")
		if err != nil {
			_ = postgresC.Terminate(context.Background())
			pgErr = err
			return
		}

		pgContainer = postgresC
		pgDSN = fmt.Sprintf("postgres://tempalert:tempalert@%s/tempalert_test?sslmode=disable", endpoint)
	})
}

// TerminatePostgres stops the shared container. Packages call it from TestMain.
func TerminatePostgres() {
	if pgContainer != nil {
		_ = pgContainer.Terminate(context.Background())
	}
}
