package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/Black-And-White-Club/snakebench/config"
	"github.com/Black-And-White-Club/snakebench/db/bundb"
	"github.com/Black-And-White-Club/snakebench/db/dbmigrate"
	"github.com/Black-And-White-Club/snakebench/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the containers and connections an integration test runs against.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DB            *bun.DB
	DBService     *bundb.DBService
	Config        *config.Config
	T             *testing.T
}

// Option adds optional infrastructure to the environment.
type Option func(*TestEnvironment) error

// WithNATS starts a JetStream-enabled NATS container and points the config at it.
func WithNATS() Option {
	return func(env *TestEnvironment) error {
		c, natsURL, err := containers.SetupNatsContainer(env.Ctx)
		if err != nil {
			return err
		}
		env.NatsContainer = c
		env.Config.NATS.URL = natsURL
		env.Config.NATS.Enabled = true
		return nil
	}
}

// NewTestEnvironment starts Postgres, applies every migration and registers cleanup on t.
// It skips the test under -short.
func NewTestEnvironment(t *testing.T, opts ...Option) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel, T: t}
	t.Cleanup(env.Cleanup)

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("failed to setup postgres container: %v", err)
	}
	env.PgContainer = pgContainer

	env.Config = &config.Config{
		Postgres: config.PostgresConfig{DSN: dsn},
		NATS:     config.NATSConfig{QueueGroup: "snakebench-it"},
		Ingest: config.IngestConfig{
			ReplayDir:        t.TempDir(),
			RatingAlgorithm:  "trueskill",
			RetryFailedLive:  true,
			RetryMaxAttempts: 3,
		},
		Observability: config.ObservabilityConfig{Environment: "test", LogLevel: "error", MetricsAddress: "127.0.0.1:0"},
	}

	env.DBService, err = bundb.NewBunDBService(ctx, env.Config.Postgres, observability.NoOpLogger)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	env.DB = env.DBService.GetDB()

	if err := dbmigrate.Up(ctx, env.DB, dsn, observability.NoOpLogger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, opt := range opts {
		if err := opt(env); err != nil {
			t.Fatalf("failed to apply environment option: %v", err)
		}
	}
	return env
}

// Cleanup closes connections and terminates containers.
func (env *TestEnvironment) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if env.DBService != nil {
		if err := env.DBService.Close(); err != nil {
			env.T.Logf("failed to close database: %v", err)
		}
	}
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(ctx); err != nil {
			env.T.Logf("failed to terminate NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(ctx); err != nil {
			env.T.Logf("failed to terminate postgres container: %v", err)
		}
	}
	if env.CancelContext != nil {
		env.CancelContext()
	}
}
