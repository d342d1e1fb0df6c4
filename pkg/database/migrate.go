package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigratePostgres applies the migrations embedded in source to the database at databaseURL.
func MigratePostgres(databaseURL string, source fs.FS, logger *slog.Logger) error {
	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}
	m, err := newMigrator(source, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil || dbErr != nil {
			logger.Warn("Error closing migrator", slog.Any("source_error", sourceErr), slog.Any("db_error", dbErr))
		}
	}()
	return up(m, "postgres", logger)
}

// MigrateSQLite applies the migrations embedded in source to db. db stays open.
func MigrateSQLite(db *sql.DB, source fs.FS, logger *slog.Logger) error {
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	m, err := newMigrator(source, "sqlite", driver)
	if err != nil {
		return err
	}
	// Closing the migrator would close db as well.
	return up(m, "sqlite", logger)
}

func newMigrator(source fs.FS, databaseName string, driver migratedb.Driver) (*migrate.Migrate, error) {
	src, err := iofs.New(source, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, databaseName, driver)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("could not create migrate instance: %w", err)
	}
	return m, nil
}

func up(m *migrate.Migrate, databaseName string, logger *slog.Logger) error {
	err := m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply", slog.String("database", databaseName))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s migrations: %w", databaseName, err)
	}
	version, dirty, _ := m.Version()
	logger.Info("Database migrations applied", slog.String("database", databaseName),
		slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}
