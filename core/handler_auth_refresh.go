package core

import (
	"mime"
	"net/http"
)

// RefreshTokenHandler exchanges a refresh token for a new access token. The
// token comes from the JSON body or, failing that, the refreshToken cookie.
// The refresh token is not rotated.
// Endpoint: POST /api/auth/refresh-token
// Authenticated: No
// Allowed Mimetype: application/json, or no body
func (a *App) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == MimeTypeJSON && r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeJsonError(w, errorInvalidRequest)
			return
		}
	}
	if req.RefreshToken == "" {
		if c, err := r.Cookie(RefreshTokenCookie); err == nil {
			req.RefreshToken = c.Value
		}
	}

	res, err := a.authService.RefreshAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.setAccessCookie(w, res.AccessToken)
	writeOkWithData(w, CodeOkTokenRefreshed, "Access token refreshed", RefreshData{AccessToken: res.AccessToken})
}
