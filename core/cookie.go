package core

import (
	"net/http"
)

const (
	// AccessTokenCookie carries the access token for browser clients.
	AccessTokenCookie = "jwt"
	// RefreshTokenCookie is read by the refresh endpoint when the body has
	// no token. The API never sets it.
	RefreshTokenCookie = "refreshToken"
)

func (a *App) setAccessCookie(w http.ResponseWriter, token string) {
	cfg := a.Config()
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.Jwt.AccessTokenDuration.Seconds()),
		HttpOnly: true,
		Secure:   !cfg.IsDevelopment(),
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAccessCookie expires the cookie. MaxAge -1 is sent as Max-Age=0.
func (a *App) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !a.Config().IsDevelopment(),
		SameSite: http.SameSiteStrictMode,
	})
}
