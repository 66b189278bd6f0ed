package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Priya8975/webhook-receiver/migrations"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// MigrationStatus describes the schema version recorded by golang-migrate.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Applied is false when no migration has ever run.
	Applied bool
}

// migrationConnConfig parses the same connection strings NewPostgres accepts,
// URL or keyword/value form.
func migrationConnConfig(databaseURL string) (*pgx.ConnConfig, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, ErrEmptyDatabaseURL
	}

	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	return cfg, nil
}

// newMigrate returns a migrate instance and a func that closes it along with
// its database handle.
func newMigrate(databaseURL string) (*migrate.Migrate, func(), error) {
	connCfg, err := migrationConnConfig(databaseURL)
	if err != nil {
		return nil, nil, err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("opening embedded migrations: %w", err)
	}

	db := stdlib.OpenDB(*connCfg)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		driver.Close()
		db.Close()
		return nil, nil, fmt.Errorf("creating migrate instance: %w", err)
	}

	return m, func() {
		m.Close()
		db.Close()
	}, nil
}

// RunMigrations applies every pending up migration.
func RunMigrations(databaseURL string) (MigrationStatus, error) {
	m, closeMigrate, err := newMigrate(databaseURL)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrate()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationStatus{}, fmt.Errorf("applying migrations: %w", err)
	}
	return status(m)
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(databaseURL string, steps int) (MigrationStatus, error) {
	if steps <= 0 {
		return MigrationStatus{}, fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, closeMigrate, err := newMigrate(databaseURL)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrate()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationStatus{}, fmt.Errorf("rolling back migrations: %w", err)
	}
	return status(m)
}

// MigrationVersion reports the current schema version.
func MigrationVersion(databaseURL string) (MigrationStatus, error) {
	m, closeMigrate, err := newMigrate(databaseURL)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrate()

	return status(m)
}

func status(m *migrate.Migrate) (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("reading migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Applied: true}, nil
}
