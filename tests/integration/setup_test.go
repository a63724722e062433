//go:build integration

package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tallyhq/tally/pkg/activity"
	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/groups"
)

// setupPostgres starts a disposable PostgreSQL container, applies the schema,
// and returns a connected pool. The container is removed when the test ends.
func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()

	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("tally_test"),
		postgres.WithUsername("tally"),
		postgres.WithPassword("tally_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	require.NoError(t, auth.NewPostgresProvider(db).EnsureSchema(ctx))
	require.NoError(t, groups.NewPostgresService(db).EnsureSchema(ctx))
	_, err = activity.NewDBStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	return db
}

// insertUser seeds a row in the users table for foreign lookups.
func insertUser(t *testing.T, db *sql.DB, id, email, name, globalRole string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO users (id, email, name, global_role, is_active) VALUES ($1, $2, $3, $4, TRUE)`,
		id, email, name, globalRole,
	)
	require.NoError(t, err)
}
