package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ribbonapp/ribbon-core/internal/database"
)

// migrationSource maps a database/sql driver to its migration directory and a
// DSN golang-migrate accepts. MySQL DSNs in go-sql-driver form get the mysql://
// scheme prepended.
func migrationSource(driver, dsn string) (sourceURL, databaseURL string, err error) {
	switch driver {
	case database.DriverPostgres:
		return "file://migrations/postgresql", dsn, nil
	case database.DriverMySQL:
		if !strings.HasPrefix(dsn, "mysql://") {
			dsn = "mysql://" + dsn
		}
		return "file://migrations/mysql", dsn, nil
	default:
		return "", "", fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, driver)
	}
}

// RunMigrations creates the kv_entries table for the SQL storage backends. Running
// it against an up-to-date schema is a no-op.
func RunMigrations(logger *slog.Logger, driver, dsn string) error {
	sourceURL, databaseURL, err := migrationSource(driver, dsn)
	if err != nil {
		return err
	}

	logger.Info("running database migrations", slog.String("driver", driver), slog.String("source", sourceURL))

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("kv schema already up to date")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.Info("migrations completed", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}
