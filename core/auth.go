package core

import (
	"context"
	"net/http"
	"strings"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/db"
)

// Authenticator defines the interface for authentication operations
type Authenticator interface {
	Authenticate(r *http.Request) (*db.User, jsonResponse, error)
}

// DefaultAuthenticator reads the access token from the jwt cookie, then from
// the Authorization Bearer header.
type DefaultAuthenticator struct {
	service *auth.Service
}

func NewDefaultAuthenticator(service *auth.Service) *DefaultAuthenticator {
	return &DefaultAuthenticator{service: service}
}

func (a *DefaultAuthenticator) Authenticate(r *http.Request) (*db.User, jsonResponse, error) {
	user, err := a.service.Authenticate(r.Context(), accessTokenFromRequest(r))
	if err != nil {
		return nil, errorResponse(err), err
	}
	return user, jsonResponse{}, nil
}

func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

type contextKey string

const userKey contextKey = "user"

// UserFromContext returns the user stored by RequireAuth or OptionalAuth.
func UserFromContext(ctx context.Context) (*db.User, bool) {
	user, ok := ctx.Value(userKey).(*db.User)
	return user, ok && user != nil
}

func withUser(r *http.Request, user *db.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey, user))
}
