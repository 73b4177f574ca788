package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/caasmo/notesapi/db"
)

// OAuthProfile is the provider independent identity handed over by the
// oauth2 package after the code exchange.
type OAuthProfile struct {
	Provider  string
	SubjectID string
	Email     string
	FullName  string
	AvatarURL string
}

// HandleOAuthUser returns the account for the profile email, creating a
// verified, passwordless account tagged with the provider when none exists.
// An existing account is returned unchanged: no linking or merging happens,
// whichever provider created it.
func (s *Service) HandleOAuthUser(ctx context.Context, p OAuthProfile) (*db.User, error) {
	email := NormalizeEmail(p.Email)
	if email == "" || ValidateEmail(email) != nil {
		return nil, ErrOAuthProfileIncomplete
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, internalError(err)
	}

	fullName := strings.TrimSpace(p.FullName)
	if fullName == "" {
		fullName = email[:strings.IndexByte(email, '@')]
	}
	user = &db.User{
		Email:        email,
		FullName:     fullName,
		ProfilePic:   p.AvatarURL,
		AuthProvider: p.Provider,
		Verified:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrConstraintUnique) {
			// Lost a race with a concurrent signup or login for the same email.
			return s.loadByEmail(ctx, email)
		}
		return nil, internalError(err)
	}
	s.logger.Info("created account from oauth2 login", "provider", p.Provider, "user_id", user.ID)
	return user, nil
}

// OAuthLoginResult carries the access token of a completed OAuth2 login.
// No refresh token is issued: the popup only hands over the cookie.
type OAuthLoginResult struct {
	User        UserSummary
	AccessToken string
	ExpiresAt   time.Time
}

// RecordOAuthLogin adds or refreshes the device session after a successful
// OAuth2 login and returns a fresh access token.
func (s *Service) RecordOAuthLogin(ctx context.Context, user *db.User, device, ip string) (*OAuthLoginResult, error) {
	if _, err := s.users.UpsertSession(ctx, user.ID, db.DeviceFingerprint(device), ip, s.now()); err != nil {
		return nil, internalError(err)
	}
	access, expires, err := s.issuer.AccessToken(user.ID)
	if err != nil {
		return nil, internalError(err)
	}
	return &OAuthLoginResult{
		User:        NewUserSummary(user),
		AccessToken: access,
		ExpiresAt:   expires,
	}, nil
}

func (s *Service) loadByEmail(ctx context.Context, email string) (*db.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, internalError(err)
	}
	return user, nil
}
