package zombiezen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caasmo/notesapi/db"
	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type userRepo struct {
	pool *sqlitex.Pool
}

const userColumns = `id, email, full_name, password, profile_pic, auth_provider, verified,
	verification_token, verification_expires, sessions, created, updated`

// newUserFromStmt creates a User struct from a SQLite statement
func newUserFromStmt(stmt *sqlite.Stmt) (*db.User, error) {
	created, err := db.TimeParse(stmt.GetText("created"))
	if err != nil {
		return nil, fmt.Errorf("error parsing created time: %w", err)
	}
	updated, err := db.TimeParse(stmt.GetText("updated"))
	if err != nil {
		return nil, fmt.Errorf("error parsing updated time: %w", err)
	}
	expires, err := db.TimeParse(stmt.GetText("verification_expires"))
	if err != nil {
		return nil, fmt.Errorf("error parsing verification_expires: %w", err)
	}

	var sessions []db.Session
	if raw := stmt.GetText("sessions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
			return nil, fmt.Errorf("error decoding sessions: %w", err)
		}
	}

	return &db.User{
		ID:                  stmt.GetText("id"),
		Email:               stmt.GetText("email"),
		FullName:            stmt.GetText("full_name"),
		Password:            stmt.GetText("password"),
		ProfilePic:          stmt.GetText("profile_pic"),
		AuthProvider:        stmt.GetText("auth_provider"),
		Verified:            stmt.GetInt64("verified") != 0,
		VerificationToken:   stmt.GetText("verification_token"),
		VerificationExpires: expires,
		Sessions:            sessions,
		Created:             created,
		Updated:             updated,
	}, nil
}

func encodeSessions(sessions []db.Session) (string, error) {
	if sessions == nil {
		sessions = []db.Session{}
	}
	b, err := json.Marshal(sessions)
	if err != nil {
		return "", fmt.Errorf("error encoding sessions: %w", err)
	}
	return string(b), nil
}

func formatOptionalTime(u *db.User) string {
	if u.VerificationExpires.IsZero() {
		return ""
	}
	return db.TimeFormat(u.VerificationExpires)
}

func (r *userRepo) findOne(ctx context.Context, where string, arg any) (*db.User, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer r.pool.Put(conn)

	var user *db.User
	err = sqlitex.Execute(conn,
		`SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				user, err = newUserFromStmt(stmt)
				return err
			},
			Args: []any{arg},
		})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, db.ErrNotFound
	}
	return user, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(email))
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*db.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepo) FindByVerificationToken(ctx context.Context, token string) (*db.User, error) {
	if token == "" {
		return nil, db.ErrNotFound
	}
	return r.findOne(ctx, "verification_token = ?", token)
}

func (r *userRepo) Create(ctx context.Context, user *db.User) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	sessions, err := encodeSessions(user.Sessions)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)

	var created *db.User
	err = sqlitex.Execute(conn,
		`INSERT INTO users (id, email, full_name, password, profile_pic, auth_provider, verified,
			verification_token, verification_expires, sessions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				var err error
				created, err = newUserFromStmt(stmt)
				return err
			},
			Args: []any{
				user.ID,
				user.Email,
				user.FullName,
				user.Password,
				user.ProfilePic,
				user.AuthProvider,
				user.Verified,
				user.VerificationToken,
				formatOptionalTime(user),
				sessions,
			},
		})
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.Created = created.Created
	user.Updated = created.Updated
	return nil
}

func (r *userRepo) Save(ctx context.Context, user *db.User) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	user.Email = strings.ToLower(user.Email)

	err = sqlitex.Execute(conn,
		`UPDATE users
		SET email = ?,
			full_name = ?,
			password = ?,
			profile_pic = ?,
			auth_provider = ?,
			verified = ?,
			verification_token = ?,
			verification_expires = ?,
			updated = (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{
				user.Email,
				user.FullName,
				user.Password,
				user.ProfilePic,
				user.AuthProvider,
				user.Verified,
				user.VerificationToken,
				formatOptionalTime(user),
				user.ID,
			},
		})
	if err != nil {
		if isUniqueViolation(err) {
			return db.ErrConstraintUnique
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	if conn.Changes() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM users WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if conn.Changes() == 0 {
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

// updateSessions reads, edits and writes the sessions column inside an
// IMMEDIATE transaction. The write lock is taken before the read, so a
// concurrent writer waits instead of working on a stale list.
func (r *userRepo) updateSessions(ctx context.Context, userID string, change func(*db.User) bool) (err error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer r.pool.Put(conn)

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin session update: %w", err)
	}
	defer endFn(&err)

	var (
		raw   string
		found bool
	)
	err = sqlitex.Execute(conn, `SELECT sessions FROM users WHERE id = ?`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			raw = stmt.GetText("sessions")
			found = true
			return nil
		},
		Args: []any{userID},
	})
	if err != nil {
		return fmt.Errorf("failed to read sessions: %w", err)
	}
	if !found {
		return db.ErrNotFound
	}

	user := &db.User{ID: userID}
	if raw != "" {
		if err = json.Unmarshal([]byte(raw), &user.Sessions); err != nil {
			return fmt.Errorf("error decoding sessions: %w", err)
		}
	}
	if !change(user) {
		return nil
	}

	encoded, err := encodeSessions(user.Sessions)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		`UPDATE users
		SET sessions = ?,
			updated = (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{encoded, userID}})
	if err != nil {
		return fmt.Errorf("failed to write sessions: %w", err)
	}
	return nil
}
