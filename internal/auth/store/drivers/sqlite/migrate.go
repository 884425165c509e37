package sqlite

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/nomadpay/authcore/internal/auth/store/drivers/sqlite/migrations"
)

const migrationsTable = "schema_migrations"

// ApplyMigrations brings the schema up to the newest embedded version.
// An up-to-date database is left untouched.
func (s *Store) ApplyMigrations() error {
	m, err := s.migrator()
	if err != nil {
		return fmt.Errorf("sqlite: prepare migrations: %w", err)
	}

	// m.Close would also close s.db, so the migrator is simply dropped.
	switch err := m.Up(); {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	default:
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, err
	}
	db, err := sqlitemigrate.WithInstance(s.db, &sqlitemigrate.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", db)
}
