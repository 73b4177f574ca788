package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caasmo/notesapi/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, full_name, password, profile_pic, auth_provider, verified,
	verification_token, verification_expires, sessions, created, updated`

func scanUser(row pgx.Row) (*db.User, error) {
	var (
		u        db.User
		expires  *time.Time
		sessions []byte
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Password,
		&u.ProfilePic,
		&u.AuthProvider,
		&u.Verified,
		&u.VerificationToken,
		&expires,
		&sessions,
		&u.Created,
		&u.Updated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}

	if expires != nil {
		u.VerificationExpires = expires.UTC()
	}
	u.Created = u.Created.UTC()
	u.Updated = u.Updated.UTC()
	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &u.Sessions); err != nil {
			return nil, fmt.Errorf("error decoding sessions: %w", err)
		}
	}
	return &u, nil
}

func sessionsJSON(sessions []db.Session) ([]byte, error) {
	if sessions == nil {
		sessions = []db.Session{}
	}
	return json.Marshal(sessions)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*db.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByVerificationToken(ctx context.Context, token string) (*db.User, error) {
	if token == "" {
		return nil, db.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, user *db.User) error {
	sessions, err := sessionsJSON(user.Sessions)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)

	err = r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, full_name, password, profile_pic, auth_provider, verified,
			verification_token, verification_expires, sessions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created, updated`,
		user.ID,
		user.Email,
		user.FullName,
		user.Password,
		user.ProfilePic,
		user.AuthProvider,
		user.Verified,
		user.VerificationToken,
		nullableTime(user.VerificationExpires),
		sessions,
	).Scan(&user.Created, &user.Updated)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Created = user.Created.UTC()
	user.Updated = user.Updated.UTC()
	return nil
}

func (r *userRepo) Save(ctx context.Context, user *db.User) error {
	user.Email = strings.ToLower(user.Email)

	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		SET email = $1,
			full_name = $2,
			password = $3,
			profile_pic = $4,
			auth_provider = $5,
			verified = $6,
			verification_token = $7,
			verification_expires = $8,
			updated = now()
		WHERE id = $9`,
		user.Email,
		user.FullName,
		user.Password,
		user.ProfilePic,
		user.AuthProvider,
		user.Verified,
		user.VerificationToken,
		nullableTime(user.VerificationExpires),
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *userRepo) UpsertSession(ctx context.Context, userID, device, ip string, now time.Time) (db.Session, error) {
	var s db.Session
	err := r.updateSessions(ctx, userID, func(u *db.User) bool {
		s = u.UpsertSession(device, ip, now)
		return true
	})
	return s, err
}

func (r *userRepo) RemoveSession(ctx context.Context, userID, device string) (bool, error) {
	var removed bool
	err := r.updateSessions(ctx, userID, func(u *db.User) bool {
		removed = u.RemoveSession(device)
		return removed
	})
	return removed, err
}

func (r *userRepo) RemoveSessionByID(ctx context.Context, userID, sessionID string) (bool, error) {
	var removed bool
	err := r.updateSessions(ctx, userID, func(u *db.User) bool {
		removed = u.RemoveSessionByID(sessionID)
		return removed
	})
	return removed, err
}

// updateSessions locks the user row, edits its sessions and writes them back
// in one transaction.
func (r *userRepo) updateSessions(ctx context.Context, userID string, change func(*db.User) bool) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, `SELECT sessions FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return db.ErrNotFound
			}
			return fmt.Errorf("failed to read sessions: %w", err)
		}

		user := &db.User{ID: userID}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &user.Sessions); err != nil {
				return fmt.Errorf("error decoding sessions: %w", err)
			}
		}
		if !change(user) {
			return nil
		}

		encoded, err := sessionsJSON(user.Sessions)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET sessions = $1, updated = now() WHERE id = $2`, encoded, userID); err != nil {
			return fmt.Errorf("failed to write sessions: %w", err)
		}
		return nil
	})
}
