package zombiezen

import (
	"context"
	"fmt"
	"time"

	"github.com/caasmo/notesapi/db"
	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type refreshTokenRepo struct {
	pool *sqlitex.Pool
}

func newRefreshTokenFromStmt(stmt *sqlite.Stmt) (*db.RefreshToken, error) {
	expires, err := db.TimeParse(stmt.GetText("expires_at"))
	if err != nil {
		return nil, fmt.Errorf("error parsing expires_at: %w", err)
	}
	created, err := db.TimeParse(stmt.GetText("created"))
	if err != nil {
		return nil, fmt.Errorf("error parsing created time: %w", err)
	}
	return &db.RefreshToken{
		ID:         stmt.GetText("id"),
		Token:      stmt.GetText("token"),
		UserID:     stmt.GetText("user_id"),
		DeviceInfo: stmt.GetText("device_info"),
		IPAddress:  stmt.GetText("ip_address"),
		ExpiresAt:  expires,
		Created:    created,
	}, nil
}

func (r *refreshTokenRepo) Create(ctx context.Context, token *db.RefreshToken) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO refresh_tokens (id, token, user_id, device_info, ip_address, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING created`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				token.Created, err = db.TimeParse(stmt.GetText("created"))
				return err
			},
			Args: []any{
				token.ID,
				token.Token,
				token.UserID,
				token.DeviceInfo,
				token.IPAddress,
				db.TimeFormat(token.ExpiresAt),
			},
		})
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepo) FindByToken(ctx context.Context, token string) (*db.RefreshToken, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	var found *db.RefreshToken
	err = sqlitex.Execute(conn,
		`SELECT id, token, user_id, device_info, ip_address, expires_at, created
		FROM refresh_tokens WHERE token = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				found, err = newRefreshTokenFromStmt(stmt)
				return err
			},
			Args: []any{token},
		})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, db.ErrNotFound
	}
	return found, nil
}

func (r *refreshTokenRepo) Delete(ctx context.Context, token string) error {
	return r.exec(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
}

func (r *refreshTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
}

// DeleteExpired relies on the fixed width UTC layout of db.TimeFormat, where
// lexical order equals time order.
func (r *refreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return 0, err
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, &sqlitex.ExecOptions{
		Args: []any{db.TimeFormat(now)},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return int64(conn.Changes()), nil
}

func (r *refreshTokenRepo) exec(ctx context.Context, query string, args ...any) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}
	return nil
}
