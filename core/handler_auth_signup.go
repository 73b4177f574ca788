package core

import (
	"net/http"

	"github.com/caasmo/notesapi/auth"
)

// SignupHandler creates an unverified local account, mails the verification
// link and logs the new user in.
// Endpoint: POST /api/auth/signup
// Authenticated: No
// Allowed Mimetype: application/json
func (a *App) SignupHandler(w http.ResponseWriter, r *http.Request) {
	if resp, err := a.Validator().ContentType(r, MimeTypeJSON); err != nil {
		writeJsonError(w, resp)
		return
	}

	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJsonError(w, errorInvalidRequest)
		return
	}

	res, err := a.authService.Signup(r.Context(), auth.SignupInput{
		FullName:   req.FullName,
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
	writeAuthResponse(w, http.StatusCreated, CodeOkSignup,
		"User registered successfully. Please check your email to verify your account.", res)
}
