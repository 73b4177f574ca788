package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caasmo/notesapi/crypto"
	"github.com/caasmo/notesapi/db"
)

// Profile is the account view of GET /api/users/me. Password hash,
// verification token and sessions are never part of it.
type Profile struct {
	UserSummary
	AuthProvider string    `json:"authProvider"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewProfile(u *db.User) Profile {
	return Profile{
		UserSummary:  NewUserSummary(u),
		AuthProvider: u.AuthProvider,
		CreatedAt:    u.Created,
		UpdatedAt:    u.Updated,
	}
}

type UpdateProfileInput struct {
	FullName   string
	ProfilePic string
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := NewProfile(user)
	return &p, nil
}

// UpdateProfile replaces the full name and the profile picture URL.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*Profile, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return nil, ErrFullNameRequired
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FullName = fullName
	user.ProfilePic = strings.TrimSpace(in.ProfilePic)
	if err := s.users.Save(ctx, user); err != nil {
		return nil, internalError(err)
	}
	user.Updated = s.now().UTC()

	p := NewProfile(user)
	return &p, nil
}

// ChangePassword checks the current password and stores the hash of the new
// one. Accounts without a password fail the check.
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return ErrPasswordsRequired
	}
	if err := ValidatePassword(in.NewPassword); err != nil {
		return err
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !crypto.CheckPassword(in.CurrentPassword, user.Password) {
		return ErrCurrentPasswordIncorrect
	}

	hash, err := crypto.GenerateHash(in.NewPassword)
	if err != nil {
		return internalError(err)
	}
	user.Password = hash
	if err := s.users.Save(ctx, user); err != nil {
		return internalError(err)
	}
	return nil
}

// DeleteAccount removes the user and all its refresh tokens. Local accounts
// must confirm with their password; accounts created through OAuth2 have
// none to confirm with.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasPassword() {
		if password == "" {
			return ErrPasswordRequired
		}
		if !crypto.CheckPassword(password, user.Password) {
			return ErrPasswordIncorrect
		}
	}

	if err := s.refreshTokens.DeleteByUser(ctx, user.ID); err != nil {
		return internalError(err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil && !errors.Is(err, db.ErrNotFound) {
		return internalError(err)
	}
	s.logger.Info("account deleted", "user_id", user.ID)
	return nil
}

func (s *Service) ListSessions(ctx context.Context, userID string) ([]db.Session, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Sessions == nil {
		return []db.Session{}, nil
	}
	return user.Sessions, nil
}

// RevokeSession drops the session with sessionID. An unknown id is not an
// error.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.users.RemoveSessionByID(ctx, userID, sessionID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return internalError(err)
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*db.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(err)
	}
	return user, nil
}
