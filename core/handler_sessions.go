package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// ListSessionsHandler lists the devices the user is logged in from.
// Endpoint: GET /api/users/me/sessions
// Authenticated: Yes
func (a *App) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}

	sessions, err := a.authService.ListSessions(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeOkWithData(w, CodeOkSessionsList, "Sessions retrieved", SessionsData{Sessions: sessions})
}

// RevokeSessionHandler removes one session. Unknown ids succeed.
// Endpoint: DELETE /api/users/me/sessions/{id}
// Authenticated: Yes
func (a *App) RevokeSessionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeJsonError(w, errorResponse(auth.ErrNoAccessToken))
		return
	}

	id := a.Router().Param(r, "id")
	if id == "" {
		writeJsonError(w, errorNotFound)
		return
	}

	if err := a.authService.RevokeSession(r.Context(), user.ID, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJsonOk(w, okSessionRevoked)
}
