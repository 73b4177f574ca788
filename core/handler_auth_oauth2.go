package core

import (
	"net/http"

	"github.com/caasmo/notesapi/crypto"
	"github.com/caasmo/notesapi/oauth2"
)

// popupNonceLength is the length of the CSP nonce of the popup page script.
const popupNonceLength = 24

// OAuth2LoginHandler returns the handler that starts the login with
// provider. It is opened in a popup and redirects to the provider consent
// page.
// Endpoint: GET /api/auth/{provider}
// Authenticated: No
func (a *App) OAuth2LoginHandler(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url, err := a.oauth.Begin(provider)
		if err != nil {
			a.Logger().Warn("oauth2 login could not start", "provider", provider, "error", err)
			a.writePopupFailure(w)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// OAuth2CallbackHandler returns the handler the provider redirects back to.
// On success the access cookie is set and the popup page notifies its
// opener. Every failure renders the popup error page, never JSON.
// Endpoint: GET /api/auth/{provider}/callback
// Authenticated: No
func (a *App) OAuth2CallbackHandler(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			a.Logger().Info("oauth2 provider returned an error", "provider", provider, "error", e)
			a.writePopupFailure(w)
			return
		}

		profile, err := a.oauth.Complete(r.Context(), provider, q.Get("state"), q.Get("code"))
		if err != nil {
			a.Logger().Warn("oauth2 callback failed", "provider", provider, "error", err)
			a.writePopupFailure(w)
			return
		}

		user, err := a.authService.HandleOAuthUser(r.Context(), *profile)
		if err != nil {
			a.Logger().Warn("oauth2 account provisioning failed", "provider", provider, "error", err)
			a.writePopupFailure(w)
			return
		}

		res, err := a.authService.RecordOAuthLogin(r.Context(), user, r.UserAgent(), a.clientIP(r))
		if err != nil {
			a.Logger().Error("oauth2 login could not be recorded", "provider", provider, "user_id", user.ID, "error", err)
			a.writePopupFailure(w)
			return
		}

		a.setAccessCookie(w, res.AccessToken)

		nonce := crypto.RandomString(popupNonceLength, crypto.AlphanumericAlphabet)
		setHeaders(w, headersPopupHtml)
		w.Header().Set("Content-Security-Policy", popupCSP(nonce))
		w.WriteHeader(http.StatusOK)
		if err := oauth2.RenderSuccess(w, a.Config().Client.Origin, nonce); err != nil {
			a.Logger().Error("failed to render oauth2 popup", "error", err)
		}
	}
}

func (a *App) writePopupFailure(w http.ResponseWriter) {
	setHeaders(w, headersPopupHtml)
	w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	w.WriteHeader(http.StatusUnauthorized)
	if err := oauth2.RenderFailure(w); err != nil {
		a.Logger().Error("failed to render oauth2 popup", "error", err)
	}
}
