package db

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("db: record not found")
	// ErrConstraintUnique is returned when an insert violates a unique index,
	// e.g. a second user with the same email.
	ErrConstraintUnique = errors.New("db: unique constraint violation")
)

// UserRepository persists users together with their session list.
// Emails are stored and matched lowercased.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByVerificationToken(ctx context.Context, token string) (*User, error)
	// Create inserts a new user, sessions included. ID, Created and Updated
	// are filled in.
	Create(ctx context.Context, user *User) error
	// Save overwrites every mutable field of an existing user except
	// Sessions, which only change through the session methods below.
	Save(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error

	// The session methods read and write the stored list in one atomic step,
	// so concurrent calls for different devices never lose an entry. They
	// return ErrNotFound for an unknown user.

	// UpsertSession applies User.UpsertSession to the stored user.
	UpsertSession(ctx context.Context, userID, device, ip string, now time.Time) (Session, error)
	// RemoveSession applies User.RemoveSession to the stored user.
	RemoveSession(ctx context.Context, userID, device string) (bool, error)
	// RemoveSessionByID applies User.RemoveSessionByID to the stored user.
	RemoveSessionByID(ctx context.Context, userID, sessionID string) (bool, error)
}

// RefreshTokenRepository persists refresh tokens. Each row has its own
// lifecycle independent of the user record.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	// Delete removes a token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID string) error
	// DeleteExpired removes every token expired at now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// DbApp is implemented by every storage driver.
type DbApp interface {
	Users() UserRepository
	RefreshTokens() RefreshTokenRepository
	Close() error
}
