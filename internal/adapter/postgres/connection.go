package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/fieldops/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 5 * time.Second

// querier is what a pool and an open transaction both offer.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
}

// DB is the pool as seen by repositories and migrations.
type DB interface {
	querier
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close()
}

type Tx interface {
	querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

type Row interface {
	Scan(dest ...any) error
}

type CommandTag interface {
	RowsAffected() int64
}

// pgxQuerier is the method set pgxpool.Pool and pgx.Tx have in common.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// statements narrows a pgx querier to the package interfaces.
type statements struct {
	q pgxQuerier
}

func (s statements) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return s.q.Query(ctx, sql, args...)
}

func (s statements) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return s.q.QueryRow(ctx, sql, args...)
}

func (s statements) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return s.q.Exec(ctx, sql, args...)
}

type pool struct {
	statements
	p *pgxpool.Pool
}

type transaction struct {
	statements
	tx pgx.Tx
}

// Connect opens a pool sized by cfg.MaxConns and checks it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	return open(ctx, poolCfg)
}

// ConnectDSN is Connect for a raw connection string, used by integration tests.
func ConnectDSN(ctx context.Context, dsn string) (DB, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	return open(ctx, poolCfg)
}

func open(ctx context.Context, poolCfg *pgxpool.Config) (DB, error) {
	poolCfg.ConnConfig.ConnectTimeout = connectTimeout

	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	db := &pool{statements: statements{q: p}, p: p}
	if err := db.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return db, nil
}

func (db *pool) Begin(ctx context.Context) (Tx, error) {
	tx, err := db.p.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &transaction{statements: statements{q: tx}, tx: tx}, nil
}

func (db *pool) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.p.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func (db *pool) Close() {
	db.p.Close()
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *transaction) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
