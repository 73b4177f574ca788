package mock

import (
	"context"
	"time"

	"github.com/caasmo/notesapi/db"
)

// Compile-time check to ensure Db implements the DbApp interface
var _ db.DbApp = (*Db)(nil)

// Db implements db.DbApp for testing purposes.
// Use function fields to allow overriding behavior in specific tests.
// Unset fields fall back to "not found" or a no-op.
type Db struct {
	// --- Users ---
	FindByEmailFunc             func(ctx context.Context, email string) (*db.User, error)
	FindByIDFunc                func(ctx context.Context, id string) (*db.User, error)
	FindByVerificationTokenFunc func(ctx context.Context, token string) (*db.User, error)
	CreateUserFunc              func(ctx context.Context, user *db.User) error
	SaveUserFunc                func(ctx context.Context, user *db.User) error
	DeleteUserFunc              func(ctx context.Context, id string) error
	UpsertSessionFunc           func(ctx context.Context, userID, device, ip string, now time.Time) (db.Session, error)
	RemoveSessionFunc           func(ctx context.Context, userID, device string) (bool, error)
	RemoveSessionByIDFunc       func(ctx context.Context, userID, sessionID string) (bool, error)

	// --- Refresh tokens ---
	CreateTokenFunc   func(ctx context.Context, token *db.RefreshToken) error
	FindByTokenFunc   func(ctx context.Context, token string) (*db.RefreshToken, error)
	DeleteTokenFunc   func(ctx context.Context, token string) error
	DeleteByUserFunc  func(ctx context.Context, userID string) error
	DeleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)

	CloseFunc func() error
}

func (m *Db) Users() db.UserRepository { return users{m} }

func (m *Db) RefreshTokens() db.RefreshTokenRepository { return tokens{m} }

func (m *Db) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

type users struct{ m *Db }

func (u users) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	if u.m.FindByEmailFunc != nil {
		return u.m.FindByEmailFunc(ctx, email)
	}
	return nil, db.ErrNotFound
}

func (u users) FindByID(ctx context.Context, id string) (*db.User, error) {
	if u.m.FindByIDFunc != nil {
		return u.m.FindByIDFunc(ctx, id)
	}
	return nil, db.ErrNotFound
}

func (u users) FindByVerificationToken(ctx context.Context, token string) (*db.User, error) {
	if u.m.FindByVerificationTokenFunc != nil {
		return u.m.FindByVerificationTokenFunc(ctx, token)
	}
	return nil, db.ErrNotFound
}

func (u users) Create(ctx context.Context, user *db.User) error {
	if u.m.CreateUserFunc != nil {
		return u.m.CreateUserFunc(ctx, user)
	}
	return nil
}

func (u users) Save(ctx context.Context, user *db.User) error {
	if u.m.SaveUserFunc != nil {
		return u.m.SaveUserFunc(ctx, user)
	}
	return nil
}

func (u users) Delete(ctx context.Context, id string) error {
	if u.m.DeleteUserFunc != nil {
		return u.m.DeleteUserFunc(ctx, id)
	}
	return nil
}

func (u users) UpsertSession(ctx context.Context, userID, device, ip string, now time.Time) (db.Session, error) {
	if u.m.UpsertSessionFunc != nil {
		return u.m.UpsertSessionFunc(ctx, userID, device, ip, now)
	}
	return db.Session{DeviceInfo: device, IPAddress: ip, LastActive: now}, nil
}

func (u users) RemoveSession(ctx context.Context, userID, device string) (bool, error) {
	if u.m.RemoveSessionFunc != nil {
		return u.m.RemoveSessionFunc(ctx, userID, device)
	}
	return false, nil
}

func (u users) RemoveSessionByID(ctx context.Context, userID, sessionID string) (bool, error) {
	if u.m.RemoveSessionByIDFunc != nil {
		return u.m.RemoveSessionByIDFunc(ctx, userID, sessionID)
	}
	return false, nil
}

type tokens struct{ m *Db }

func (t tokens) Create(ctx context.Context, token *db.RefreshToken) error {
	if t.m.CreateTokenFunc != nil {
		return t.m.CreateTokenFunc(ctx, token)
	}
	return nil
}

func (t tokens) FindByToken(ctx context.Context, token string) (*db.RefreshToken, error) {
	if t.m.FindByTokenFunc != nil {
		return t.m.FindByTokenFunc(ctx, token)
	}
	return nil, db.ErrNotFound
}

func (t tokens) Delete(ctx context.Context, token string) error {
	if t.m.DeleteTokenFunc != nil {
		return t.m.DeleteTokenFunc(ctx, token)
	}
	return nil
}

func (t tokens) DeleteByUser(ctx context.Context, userID string) error {
	if t.m.DeleteByUserFunc != nil {
		return t.m.DeleteByUserFunc(ctx, userID)
	}
	return nil
}

func (t tokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if t.m.DeleteExpiredFunc != nil {
		return t.m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}
