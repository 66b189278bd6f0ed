package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var ErrEmptyDatabaseURL = errors.New("database URL is empty")

// PostgresStore owns the process-wide connection pool. The pool connects
// lazily, so constructing a store never touches the network.
type PostgresStore struct {
	pool *pgxpool.Pool
	orm  *gorm.DB
}

func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, ErrEmptyDatabaseURL
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}

	orm, err := gorm.Open(postgres.New(postgres.Config{
		Conn: stdlib.OpenDBFromPool(pool),
	}), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
		DisableAutomaticPing: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening orm session: %w", err)
	}

	return &PostgresStore{pool: pool, orm: orm}, nil
}

// Ping verifies that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging postgres: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	if sqlDB, err := s.orm.DB(); err == nil {
		sqlDB.Close()
	}
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// ORM returns the GORM session bound to the same pool.
func (s *PostgresStore) ORM() *gorm.DB {
	return s.orm
}
