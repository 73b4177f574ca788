package zombiezen

import (
	"context"
	"fmt"

	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/migrations"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type Db struct {
	pool *sqlitex.Pool
}

// Verify interface implementations
var _ db.DbApp = (*Db)(nil)
var _ db.UserRepository = (*userRepo)(nil)
var _ db.RefreshTokenRepository = (*refreshTokenRepo)(nil)

// New creates a new Db instance using an existing pool provided by the user
// and applies the embedded schema.
// Note: The lifecycle of the provided pool (*sqlitex.Pool) is managed externally.
// Close does not close the pool.
func New(pool *sqlitex.Pool) (*Db, error) {
	if pool == nil {
		return nil, fmt.Errorf("provided pool cannot be nil")
	}

	conn, err := pool.Take(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get db connection: %w", err)
	}
	defer pool.Put(conn)

	if err := ApplyMigrations(conn, migrations.Sqlite()); err != nil {
		return nil, err
	}
	return &Db{pool: pool}, nil
}

func (d *Db) Users() db.UserRepository { return &userRepo{pool: d.pool} }

func (d *Db) RefreshTokens() db.RefreshTokenRepository { return &refreshTokenRepo{pool: d.pool} }

func (d *Db) Close() error { return nil }

// PrepareConn enables foreign keys so that deleting a user cascades to its
// refresh tokens. Pass it as sqlitex.PoolOptions.PrepareConn.
func PrepareConn(conn *sqlite.Conn) error {
	return sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON;", nil)
}

func isUniqueViolation(err error) bool {
	return sqlite.ErrCode(err) == sqlite.ResultConstraintUnique
}
