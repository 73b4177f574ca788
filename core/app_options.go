package core

import (
	"log/slog"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/router"
)

type Option func(*App)

func WithAuthService(s *auth.Service) Option {
	return func(a *App) {
		a.authService = s
	}
}

// WithOAuth enables the provider login routes.
func WithOAuth(f OAuthFlow) Option {
	return func(a *App) {
		a.oauth = f
	}
}

func WithRouter(r router.Router) Option {
	return func(a *App) {
		a.router = r
	}
}

// WithConfigProvider sets the application's configuration provider.
func WithConfigProvider(p *config.Provider) Option {
	return func(a *App) {
		a.configProvider = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithAuthenticator replaces the cookie and bearer token authenticator.
func WithAuthenticator(au Authenticator) Option {
	return func(a *App) {
		a.authenticator = au
	}
}
