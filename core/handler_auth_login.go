package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// LoginHandler handles password authentication of verified accounts.
// Endpoint: POST /api/auth/login
// Authenticated: No
// Allowed Mimetype: application/json
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
		writeJsonError(w, resp)
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJsonError(w, errorInvalidRequest)
		return
	}

	res, err := a.authService.Login(r.Context(), auth.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceInfo: r.UserAgent(),
		IP:         a.clientIP(r),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.setAccessCookie(w, res.AccessToken)
	writeAuthResponse(w, http.StatusOK, CodeOkAuthentication, "Login successful", res)
}
