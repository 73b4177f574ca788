package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// LogoutHandler always succeeds. It deletes the refresh token when one is
// sent, drops the session of the calling device for authenticated callers
// and clears the access cookie.
// Endpoint: POST /api/auth/logout
// Authenticated: Optional
// Allowed Mimetype: application/json, or no body
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	// a missing or broken body only means no token to delete
	_ = decodeJSON(w, r, &req)
	if req.RefreshToken == "" {
		if c, err := r.Cookie(RefreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}

	in := auth.LogoutInput{
		RefreshToken: req.RefreshToken,
		DeviceInfo:   r.UserAgent(),
	}
	if user, ok := UserFromContext(r.Context()); ok {
		in.UserID = user.ID
	}
	a.authService.Logout(r.Context(), in)

	a.clearAccessCookie(w)
	writeJsonOk(w, okLogout)
}
