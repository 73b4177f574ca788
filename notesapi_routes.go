package notesapi

import (
	"net/http"

	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/core"
	r "github.com/caasmo/notesapi/router"
)

// route registers the API. providers are the OAuth2 providers with
// credentials; the others get no routes.
func route(cfg *config.Config, ap *core.App, providers []string) {
	ep := cfg.Endpoints

	chains := r.Chains{
		ep.Health:      r.NewChain(http.HandlerFunc(ap.HealthHandler)),
		ep.OAuth2Popup: r.NewChain(http.HandlerFunc(ap.OAuth2PopupScriptHandler)),

		ep.Signup:       r.NewChain(http.HandlerFunc(ap.SignupHandler)),
		ep.VerifyEmail:  r.NewChain(http.HandlerFunc(ap.VerifyEmailHandler)),
		ep.Login:        r.NewChain(http.HandlerFunc(ap.LoginHandler)),
		ep.RefreshToken: r.NewChain(http.HandlerFunc(ap.RefreshTokenHandler)),
		ep.Logout:       r.NewChain(http.HandlerFunc(ap.LogoutHandler)).WithMiddleware(ap.OptionalAuth),
		ep.CheckAuth:    r.NewChain(http.HandlerFunc(ap.CheckAuthHandler)).WithMiddleware(ap.RequireAuth),

		ep.Profile:        r.NewChain(http.HandlerFunc(ap.ProfileHandler)).WithMiddleware(ap.RequireAuth),
		ep.UpdateProfile:  r.NewChain(http.HandlerFunc(ap.UpdateProfileHandler)).WithMiddleware(ap.RequireAuth),
		ep.ChangePassword: r.NewChain(http.HandlerFunc(ap.ChangePasswordHandler)).WithMiddleware(ap.RequireAuth),
		ep.DeleteAccount:  r.NewChain(http.HandlerFunc(ap.DeleteAccountHandler)).WithMiddleware(ap.RequireAuth),
		ep.ListSessions:   r.NewChain(http.HandlerFunc(ap.ListSessionsHandler)).WithMiddleware(ap.RequireAuth),
		ep.RevokeSession:  r.NewChain(http.HandlerFunc(ap.RevokeSessionHandler)).WithMiddleware(ap.RequireAuth),
	}

	for _, name := range providers {
		chains[ep.OAuth2Begin(name)] = r.NewChain(ap.OAuth2LoginHandler(name))
		chains[ep.OAuth2Callback(name)] = r.NewChain(ap.OAuth2CallbackHandler(name))
	}

	ap.Router().Register(chains)
}
