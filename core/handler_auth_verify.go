package core

import (
	"net/http"
)

// VerifyEmailHandler consumes the token mailed on signup.
// Endpoint: GET /api/auth/verify?token=
// Authenticated: No
func (a *App) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.authService.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJsonOk(w, okEmailVerified)
}
