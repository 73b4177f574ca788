// Package postgres stores users and refresh tokens in PostgreSQL through a
// pgx connection pool. The schema is managed with goose.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type Db struct {
	pool *pgxpool.Pool
}

var _ db.DbApp = (*Db)(nil)
var _ db.UserRepository = (*userRepo)(nil)
var _ db.RefreshTokenRepository = (*refreshTokenRepo)(nil)

// New wraps an existing pool. The pool is owned by the caller unless Open
// created it.
func New(pool *pgxpool.Pool) (*Db, error) {
	if pool == nil {
		return nil, fmt.Errorf("provided pool cannot be nil")
	}
	return &Db{pool: pool}, nil
}

// Open connects to dsn, runs pending migrations and returns a Db whose Close
// closes the pool.
func Open(ctx context.Context, dsn string) (*Db, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := Migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Db{pool: pool}, nil
}

// Migrate applies the embedded goose migrations.
func Migrate(pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.Postgres())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (d *Db) Users() db.UserRepository { return &userRepo{pool: d.pool} }

func (d *Db) RefreshTokens() db.RefreshTokenRepository { return &refreshTokenRepo{pool: d.pool} }

func (d *Db) Close() error {
	d.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
