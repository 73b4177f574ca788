package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caasmo/notesapi/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type refreshTokenRepo struct {
	pool *pgxpool.Pool
}

func (r *refreshTokenRepo) Create(ctx context.Context, token *db.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO refresh_tokens (id, token, user_id, device_info, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created`,
		token.ID,
		token.Token,
		token.UserID,
		token.DeviceInfo,
		token.IPAddress,
		token.ExpiresAt.UTC(),
	).Scan(&token.Created)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	token.Created = token.Created.UTC()
	return nil
}

func (r *refreshTokenRepo) FindByToken(ctx context.Context, token string) (*db.RefreshToken, error) {
	var rt db.RefreshToken
	err := r.pool.QueryRow(ctx,
		`SELECT id, token, user_id, device_info, ip_address, expires_at, created
		FROM refresh_tokens WHERE token = $1`, token,
	).Scan(&rt.ID, &rt.Token, &rt.UserID, &rt.DeviceInfo, &rt.IPAddress, &rt.ExpiresAt, &rt.Created)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	rt.ExpiresAt = rt.ExpiresAt.UTC()
	rt.Created = rt.Created.UTC()
	return &rt, nil
}

func (r *refreshTokenRepo) Delete(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}
	return nil
}

func (r *refreshTokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("refresh tokens: %w", err)
	}
	return nil
}

func (r *refreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
