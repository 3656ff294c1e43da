// Package migration owns the schema of the remote PostgreSQL store of
// record. The schema is embedded so that a device binary and the server it
// syncs with always agree on table layout.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// EmbeddedDir is the directory inside the embedded filesystem holding the schema
const EmbeddedDir = "sql"

// migrationsTable keeps the ledger schema history apart from anything else in the database
const migrationsTable = "factureman_schema_migrations"

// ErrDirtySchema is returned when a previous migration stopped halfway
var ErrDirtySchema = errors.New("remote schema is dirty")

// Migrator applies the ledger schema to one PostgreSQL database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Status describes where the remote schema stands against the known migrations
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
	Pending []string
}

// UpToDate reports whether every known migration is applied cleanly
func (s Status) UpToDate() bool {
	return !s.Dirty && s.Current >= s.Latest
}

// New creates a Migrator over db using the schema compiled into the binary
func New(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(embeddedMigrations, EmbeddedDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return newMigrator(db, logger, func(driver database.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithInstance("iofs", source, "postgres", driver)
	})
}

// NewFromPath creates a Migrator reading migration files from dir
func NewFromPath(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	return newMigrator(db, logger, func(driver database.Driver) (*migrate.Migrate, error) {
		return migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	})
}

func newMigrator(db *sql.DB, logger *zap.Logger, open func(database.Driver) (*migrate.Migrate, error)) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}
	m, err := open(driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &Migrator{migrate: m, logger: logger}, nil
}

// EmbeddedMigrations lists the base names of the embedded migrations in version order
func EmbeddedMigrations() ([]string, error) {
	return listFS(embeddedMigrations, EmbeddedDir)
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls every migration back
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations, rolling back when n is negative
func (m *Migrator) Steps(n int) error {
	return m.apply(fmt.Sprintf("steps %+d", n), func() error { return m.migrate.Steps(n) })
}

// Force records version as applied and clears the dirty flag without running SQL
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing remote schema version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Version returns the applied version; 0 means a blank database
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Status compares the applied version with the embedded migrations
func (m *Migrator) Status() (Status, error) {
	current, dirty, err := m.Version()
	if err != nil {
		return Status{}, err
	}
	names, err := EmbeddedMigrations()
	if err != nil {
		return Status{}, err
	}

	st := Status{Current: current, Dirty: dirty}
	for _, name := range names {
		v, err := versionOf(name)
		if err != nil {
			return Status{}, err
		}
		if v > st.Latest {
			st.Latest = v
		}
		if v > current {
			st.Pending = append(st.Pending, name)
		}
	}
	return st, nil
}

// EnsureCurrent migrates the remote schema up, refusing to touch a dirty one
func (m *Migrator) EnsureCurrent() (Status, error) {
	st, err := m.Status()
	if err != nil {
		return st, err
	}
	if st.Dirty {
		return st, fmt.Errorf("%w at version %d", ErrDirtySchema, st.Current)
	}
	if st.UpToDate() {
		return st, nil
	}
	if err := m.Up(); err != nil {
		return st, err
	}
	return m.Status()
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) apply(op string, run func() error) error {
	m.logger.Info("Migrating remote schema", zap.String("op", op))
	err := run()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Remote schema unchanged", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Remote schema migrated",
		zap.String("op", op),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

func versionOf(name string) (uint, error) {
	n, err := nextVersion([]string{name})
	if err != nil {
		return 0, err
	}
	return uint(n - 1), nil
}
