package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/flavortown/credvault/internal/app"
	"github.com/flavortown/credvault/internal/config"
)

// RunMigrations applies all pending migrations for the configured driver.
// Returns nil if there is nothing to apply.
func RunMigrations() error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	logger.Info("running database migrations",
		slog.String("driver", cfg.DBDriver),
	)

	db, err := container.DB()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	var driver database.Driver
	var migrationsDir string
	switch cfg.DBDriver {
	case "postgres":
		driver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{})
		migrationsDir = "postgresql"
	case "mysql":
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
		migrationsDir = "mysql"
	case "sqlite":
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		migrationsDir = "sqlite"
	default:
		return fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations/"+migrationsDir,
		cfg.DBDriver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
