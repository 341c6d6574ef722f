//go:build integration

package testutil

import (
	"context"
	"testing"

	"github.com/Baaaki/travel-log/internal/database"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
)

// SetupPostgresDatabase starts a disposable PostgreSQL container and migrates it.
// The container is terminated through t.Cleanup.
func SetupPostgresDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("travel_log_test"),
		tcpostgres.WithUsername("travel"),
		tcpostgres.WithPassword("travel"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Warning: failed to terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := database.Open(postgres.Open(dsn))
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDatabase{DB: db, DSN: dsn}
}
