package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrate applies every pending migration from dir, in lexicographic
// order, recording applied versions in golang-migrate's own
// schema_migrations table. Grounded on cmd/migrate.go's newMigrator,
// rebound from a Postgres DSN to an already-open *sql.DB via
// sqlite3.WithInstance so the migration runner shares the single
// connection opened in db.go rather than dialing a second one.
func migrate(db *sql.DB, dir string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Migrate applies migrations against a standalone DSN, for the `migrate`
// CLI subcommand which must not require a full server bootstrap.
func Migrate(path, migrationsDir string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()
	return migrate(db, migrationsDir)
}
