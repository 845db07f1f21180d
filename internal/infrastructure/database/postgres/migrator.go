package postgres

import (
	stderrors "errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // database driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source driver

	"github.com/openlongevity/longmap/internal/config"
	"github.com/openlongevity/longmap/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Migrations
// ─────────────────────────────────────────────────────────────────────────────

// RunMigrations applies all pending schema migrations from
// cfg.MigrationPath (a file:// URL). Called on apiserver and worker startup;
// an up-to-date schema is not an error.
func RunMigrations(cfg config.DatabaseConfig) error {
	m, err := migrate.New(cfg.MigrationPath, ConnString(cfg))
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to apply migrations")
	}
	return nil
}

// RollbackMigrations rolls the schema back by the given number of steps.
// Development and test use only.
func RollbackMigrations(cfg config.DatabaseConfig, steps int) error {
	if steps <= 0 {
		return errors.InvalidParam(fmt.Sprintf("rollback steps must be positive, got %d", steps))
	}

	m, err := migrate.New(cfg.MigrationPath, ConnString(cfg))
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to create migrator")
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.CodeDatabaseError, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.CodeDatabaseError, "failed to roll back migrations")
	}
	return nil
}

// MigrationStatus reports the currently applied schema version and whether a
// failed migration left the schema dirty. A fresh database reports version 0.
func MigrationStatus(cfg config.DatabaseConfig) (version uint, dirty bool, err error) {
	m, err := migrate.New(cfg.MigrationPath, ConnString(cfg))
	if err != nil {
		return 0, false, errors.Wrap(err, errors.CodeDatabaseError, "failed to create migrator")
	}
	defer m.Close()

	version, dirty, err = m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.CodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}
