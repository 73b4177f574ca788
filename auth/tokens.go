package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/crypto"
	"github.com/caasmo/notesapi/db"
)

// Issuer mints access tokens and persists refresh tokens. Secrets and
// lifetimes are read from the provider on every call.
type Issuer struct {
	refreshTokens db.RefreshTokenRepository
	provider      *config.Provider
	now           func() time.Time
}

func NewIssuer(refreshTokens db.RefreshTokenRepository, provider *config.Provider) *Issuer {
	return &Issuer{refreshTokens: refreshTokens, provider: provider, now: time.Now}
}

// AccessToken returns a signed HS256 token carrying userID.
func (i *Issuer) AccessToken(userID string) (string, time.Time, error) {
	cfg := i.provider.Get()
	return crypto.NewJwtAccessToken(userID, []byte(cfg.Jwt.AccessSecret), cfg.Jwt.AccessTokenDuration.Duration)
}

// ParseAccessToken verifies token and returns the user id it was issued for.
// Expired tokens map to ErrAccessTokenExpired, anything else to
// ErrInvalidAccessToken.
func (i *Issuer) ParseAccessToken(token string) (string, error) {
	if token == "" {
		return "", ErrNoAccessToken
	}
	userID, err := crypto.ParseJwtAccessToken(token, []byte(i.provider.Get().Jwt.AccessSecret))
	if err != nil {
		if errors.Is(err, crypto.ErrJwtTokenExpired) {
			return "", ErrAccessTokenExpired
		}
		return "", ErrInvalidAccessToken
	}
	return userID, nil
}

// RefreshToken creates and stores a new opaque refresh token for the device.
func (i *Issuer) RefreshToken(ctx context.Context, userID, device, ip string) (*db.RefreshToken, error) {
	value, err := crypto.RandomHex(crypto.RefreshTokenBytes)
	if err != nil {
		return nil, err
	}
	rt := &db.RefreshToken{
		Token:      value,
		UserID:     userID,
		DeviceInfo: device,
		IPAddress:  ip,
		ExpiresAt:  i.now().UTC().Add(i.provider.Get().Auth.RefreshTokenDuration.Duration).Truncate(time.Second),
	}
	if err := i.refreshTokens.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}
