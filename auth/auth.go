// Package auth implements the account lifecycle: signup with email
// verification, password login, logout, access token refresh, profile
// management and OAuth2 account provisioning. Transport concerns live in
// core; this package only sees inputs and returns *Error values.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/crypto"
	"github.com/caasmo/notesapi/db"
)

// Mailer delivers the verification link. Implemented by mail.Mailer.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, email, link string) error
}

// Service holds the dependencies of every auth operation.
type Service struct {
	users         db.UserRepository
	refreshTokens db.RefreshTokenRepository
	issuer        *Issuer
	mailer        Mailer
	provider      *config.Provider
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now. Used by tests to move past expiries.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.issuer.now = now
	}
}

func NewService(store db.DbApp, provider *config.Provider, mailer Mailer, logger *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: store is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("auth: config provider is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("auth: mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		users:         store.Users(),
		refreshTokens: store.RefreshTokens(),
		issuer:        NewIssuer(store.RefreshTokens(), provider),
		mailer:        mailer,
		provider:      provider,
		logger:        logger.With("component", "auth"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issuer exposes the token issuer to the HTTP layer.
func (s *Service) Issuer() *Issuer {
	return s.issuer
}

// UserSummary is the public view of a user returned after authentication.
type UserSummary struct {
	ID         string `json:"_id"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	ProfilePic string `json:"profilePic"`
	IsVerified bool   `json:"isVerified"`
}

func NewUserSummary(u *db.User) UserSummary {
	return UserSummary{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		IsVerified: u.Verified,
	}
}

// AuthResult is returned by Signup and Login.
type AuthResult struct {
	User                 UserSummary
	AccessToken          string
	AccessTokenExpiresAt time.Time
	RefreshToken         string
}

type SignupInput struct {
	FullName   string
	Email      string
	Password   string
	DeviceInfo string
	IP         string
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceInfo string
	IP         string
}

type LogoutInput struct {
	RefreshToken string
	// UserID is empty for anonymous callers.
	UserID     string
	DeviceInfo string
}

// RefreshResult carries the new access token. The refresh token itself is
// not rotated.
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Signup validates the input, creates an unverified local account with a
// session for the calling device, mails the verification link and returns
// both tokens. Validation happens before any store access.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, ErrRequiredFields
	}
	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, internalError(err)
	}

	hash, err := crypto.GenerateHash(in.Password)
	if err != nil {
		return nil, internalError(err)
	}
	verification, err := crypto.RandomHex(crypto.VerificationTokenBytes)
	if err != nil {
		return nil, internalError(err)
	}

	cfg := s.provider.Get()
	now := s.now().UTC()
	user := &db.User{
		Email:               email,
		FullName:            fullName,
		Password:            hash,
		AuthProvider:        db.ProviderLocal,
		VerificationToken:   verification,
		VerificationExpires: now.Add(cfg.Auth.VerificationTokenDuration.Duration).Truncate(time.Second),
	}
	user.UpsertSession(db.DeviceFingerprint(in.DeviceInfo), in.IP, now)

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, db.ErrConstraintUnique) {
			return nil, ErrEmailExists
		}
		return nil, internalError(err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, email, VerificationLink(cfg.Client.BaseURL, verification)); err != nil {
		// Leaving the row would lock the address out of a retry.
		if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("failed to remove user after mail failure", "user_id", user.ID, "error", delErr)
		}
		return nil, internalError(fmt.Errorf("verification email: %w", err))
	}

	return s.issueTokens(ctx, user, in.DeviceInfo, in.IP)
}

// VerificationLink builds the link mailed on signup.
func VerificationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

// VerifyEmail marks the owner of token as verified. Unknown, used and
// expired tokens all return ErrInvalidOrExpiredToken.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	user, err := s.users.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return internalError(err)
	}
	if !s.now().Before(user.VerificationExpires) {
		return ErrInvalidOrExpiredToken
	}

	user.Verified = true
	user.VerificationToken = ""
	user.VerificationExpires = time.Time{}
	if err := s.users.Save(ctx, user); err != nil {
		return internalError(err)
	}
	return nil
}

// Login authenticates a local account. Unknown emails and wrong passwords
// both return ErrInvalidCredentials. Unverified accounts are refused before
// the password is checked.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, ErrLoginRequiredFields
	}
	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError(err)
	}
	if !user.Verified {
		return nil, ErrNotVerified
	}
	// OAuth-only accounts have no hash and never match.
	if !crypto.CheckPassword(in.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	if _, err := s.users.UpsertSession(ctx, user.ID, db.DeviceFingerprint(in.DeviceInfo), in.IP, s.now()); err != nil {
		return nil, internalError(err)
	}

	return s.issueTokens(ctx, user, in.DeviceInfo, in.IP)
}

// Logout never fails. Store errors are logged and swallowed so the client
// can always clear its state.
func (s *Service) Logout(ctx context.Context, in LogoutInput) {
	if in.RefreshToken != "" {
		if err := s.refreshTokens.Delete(ctx, in.RefreshToken); err != nil {
			s.logger.Warn("logout: failed to delete refresh token", "error", err)
		}
	}

	if in.UserID == "" {
		return
	}
	_, err := s.users.RemoveSession(ctx, in.UserID, db.DeviceFingerprint(in.DeviceInfo))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		s.logger.Warn("logout: failed to remove session", "user_id", in.UserID, "error", err)
	}
}

// RefreshAccessToken exchanges a stored refresh token for a new access
// token. An expired token is deleted on first use, so a second attempt with
// the same value reports ErrInvalidRefreshToken.
func (s *Service) RefreshAccessToken(ctx context.Context, token string) (*RefreshResult, error) {
	if token == "" {
		return nil, ErrMissingRefreshToken
	}

	stored, err := s.refreshTokens.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, internalError(err)
	}

	if stored.Expired(s.now()) {
		if err := s.refreshTokens.Delete(ctx, token); err != nil {
			s.logger.Warn("failed to delete expired refresh token", "error", err)
		}
		return nil, ErrRefreshTokenExpired
	}

	user, err := s.users.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalError(err)
	}

	access, expires, err := s.issuer.AccessToken(user.ID)
	if err != nil {
		return nil, internalError(err)
	}
	return &RefreshResult{AccessToken: access, ExpiresAt: expires}, nil
}

// Authenticate resolves an access token to its user. A valid token whose
// user no longer exists is reported as ErrInvalidAccessToken.
func (s *Service) Authenticate(ctx context.Context, token string) (*db.User, error) {
	userID, err := s.issuer.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, internalError(err)
	}
	return user, nil
}

// CheckAuth returns the summary of an already authenticated user.
func (s *Service) CheckAuth(user *db.User) UserSummary {
	return NewUserSummary(user)
}

// PurgeExpiredRefreshTokens deletes every refresh token expired by now.
func (s *Service) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	return s.refreshTokens.DeleteExpired(ctx, s.now())
}

func (s *Service) issueTokens(ctx context.Context, user *db.User, device, ip string) (*AuthResult, error) {
	access, expires, err := s.issuer.AccessToken(user.ID)
	if err != nil {
		return nil, internalError(err)
	}
	refresh, err := s.issuer.RefreshToken(ctx, user.ID, db.DeviceFingerprint(device), ip)
	if err != nil {
		return nil, internalError(err)
	}
	return &AuthResult{
		User:                 NewUserSummary(user),
		AccessToken:          access,
		AccessTokenExpiresAt: expires,
		RefreshToken:         refresh.Token,
	}, nil
}
