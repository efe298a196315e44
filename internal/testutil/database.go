// Package testutil provides testing utilities for database-backed tests.
//
// SQLite is used as the test database so the suite runs without external
// services. Migrations are automatically discovered by walking up from the
// current working directory until a "migrations/sqlite" directory is found.
//
// Usage:
//
//	db := testutil.SetupSQLiteDB(t)
//	defer testutil.TeardownDB(t, db)
//	defer testutil.CleanupSQLiteDB(t, db)
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// SetupSQLiteDB creates a file-backed SQLite database in a test temp dir and
// runs migrations. The file is removed automatically when the test finishes.
func SetupSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err, "failed to open sqlite database")

	// SQLite allows one writer at a time; a single connection avoids
	// spurious SQLITE_BUSY under concurrent test load.
	db.SetMaxOpenConns(1)

	err = db.Ping()
	require.NoError(t, err, "failed to ping sqlite database")

	RunSQLiteMigrations(t, db)

	return db
}

// TeardownDB closes the database connection.
func TeardownDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db != nil {
		err := db.Close()
		require.NoError(t, err, "failed to close database connection")
	}
}

// CleanupSQLiteDB removes all rows from the credential table.
func CleanupSQLiteDB(t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.Exec("DELETE FROM user_credentials")
	require.NoError(t, err, "failed to clean up sqlite tables")
}

// RunSQLiteMigrations applies all migrations to a SQLite test database.
func RunSQLiteMigrations(t *testing.T, db *sql.DB) {
	t.Helper()

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	require.NoError(t, err, "failed to create sqlite migrate driver")

	migrationsDir := findMigrationsDir(t, "sqlite")

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir, "sqlite", driver)
	require.NoError(t, err, "failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "failed to run sqlite migrations")
	}
}

// findMigrationsDir walks up from the working directory until it finds
// migrations/<dbType>.
func findMigrationsDir(t *testing.T, dbType string) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err, "failed to get working directory")

	for {
		candidate := filepath.Join(dir, "migrations", dbType)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("migrations/%s directory not found walking up from working directory", dbType)
		}
		dir = parent
	}
}
