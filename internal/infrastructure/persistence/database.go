package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps a GORM handle on either the device store (SQLite) or the
// remote store of record (PostgreSQL)
type Database struct {
	DB *gorm.DB
}

// Option adjusts the GORM configuration before opening
type Option func(*gorm.Config)

// WithLogger routes GORM's SQL logging through l
func WithLogger(l logger.Interface) Option {
	return func(c *gorm.Config) { c.Logger = l }
}

func open(dialector gorm.Dialector, opts []Option, tune func(*gorm.Config)) (*gorm.DB, *sql.DB, error) {
	gcfg := &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	}
	if tune != nil {
		tune(gcfg)
	}
	for _, opt := range opts {
		opt(gcfg)
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return db, sqlDB, nil
}

// NewDatabase connects to the remote PostgreSQL store of record. The schema
// itself is owned by the migration package.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	db, sqlDB, err := open(postgres.Open(cfg.DSN()), opts, func(c *gorm.Config) { c.PrepareStmt = true })
	if err != nil {
		return nil, fmt.Errorf("connect remote store: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("reach remote store: %w", err)
	}
	return &Database{DB: db}, nil
}

// OpenLocal opens the on-device SQLite store and auto-migrates it.
// ":memory:" gives an ephemeral store.
func OpenLocal(path string, opts ...Option) (*Database, error) {
	db, sqlDB, err := open(sqlite.Open(path), opts, nil)
	if err != nil {
		return nil, fmt.Errorf("open local store %q: %w", path, err)
	}
	// One writer, and ":memory:" must stay on a single connection to persist
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return &Database{DB: db}, nil
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the store is reachable
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats reports connection pool usage
func (d *Database) Stats() (sql.DBStats, error) {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

// OwnedBy is a GORM scope restricting a query to one workspace owner.
// A nil owner is a programming error and panics rather than reading every
// merchant's rows.
func OwnedBy(ownerID uuid.UUID) func(*gorm.DB) *gorm.DB {
	if ownerID == uuid.Nil {
		panic("persistence: OwnedBy called with nil owner ID")
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", ownerID)
	}
}
