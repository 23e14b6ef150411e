package postgres

import (
	"database/sql"
	"testing"

	"github.com/entigraph/entigraph/internal/infrastructure/config"
	"github.com/entigraph/entigraph/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// SetupTestDB connects to the test database and runs migrations. Tests are
// skipped when no test database is reachable so the unit suite stays green
// without infrastructure.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if err := config.InitConfig("test"); err != nil {
		t.Skipf("skipping postgres tests: failed to init config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("skipping postgres tests: %v", err)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("skipping postgres tests: database unavailable: %v", err)
	}

	if err := pg.RunMigrations("../../../internal/infrastructure/database/migrations/postgres"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return pg.DB
}

// CleanupTestDB truncates test data and closes the connection
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, table := range []string{"relations", "entities"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("Warning: failed to clean up table %s: %v", table, err)
		}
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close database: %v", err)
	}
}
