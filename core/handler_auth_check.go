package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// CheckAuthHandler returns the summary of the authenticated user.
// Endpoint: GET /api/auth/check
// Authenticated: Yes
func (a *App) CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}
	writeOkWithData(w, CodeOkAuthenticated, "Authenticated", a.authService.CheckAuth(user))
}
