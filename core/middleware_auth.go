package core

import (
	"net/http"
)

// RequireAuth stops the request with the authenticator response unless a
// valid access token is present. The user is available through
// UserFromContext.
func (a *App) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, resp, err := a.Auth().Authenticate(r)
		if err != nil {
			writeJsonError(w, resp)
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// OptionalAuth stores the user when the token is valid and otherwise lets
// the request through anonymous.
func (a *App) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _, err := a.Auth().Authenticate(r); err == nil {
			r = withUser(r, user)
		}
		next.ServeHTTP(w, r)
	})
}
