package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/router"
)

// OAuthFlow starts and completes provider logins. Implemented by
// oauth2.Flow.
type OAuthFlow interface {
	Begin(provider string) (string, error)
	Complete(ctx context.Context, provider, state, code string) (*auth.OAuthProfile, error)
}

// App holds what the handlers and middlewares need. All of them have App
// as receiver.
type App struct {
	authService    *auth.Service
	oauth          OAuthFlow
	router         router.Router
	configProvider *config.Provider
	logger         *slog.Logger
	authenticator  Authenticator
	validator      Validator
}

// NewApp builds an App from options. The auth service, the config provider
// and the router are required.
func NewApp(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.authService == nil {
		return nil, fmt.Errorf("auth service is required but was not provided (use WithAuthService)")
	}
	if a.configProvider == nil {
		return nil, fmt.Errorf("config provider is required but was not provided (use WithConfigProvider)")
	}
	if a.router == nil {
		return nil, fmt.Errorf("router is required but was not provided (use WithRouter)")
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.authenticator == nil {
		a.authenticator = NewDefaultAuthenticator(a.authService)
	}
	if a.validator == nil {
		a.validator = NewValidator()
	}
	return a, nil
}

func (a *App) Router() router.Router {
	return a.router
}

func (a *App) SetRouter(r router.Router) {
	a.router = r
}

func (a *App) AuthService() *auth.Service {
	return a.authService
}

func (a *App) OAuth() OAuthFlow {
	return a.oauth
}

func (a *App) Logger() *slog.Logger {
	return a.logger
}

func (a *App) SetLogger(l *slog.Logger) {
	a.logger = l
}

func (a *App) Config() *config.Config {
	return a.configProvider.Get()
}

func (a *App) SetConfigProvider(provider *config.Provider) {
	a.configProvider = provider
}

func (a *App) SetAuthenticator(au Authenticator) {
	a.authenticator = au
}

func (a *App) Auth() Authenticator {
	return a.authenticator
}

func (a *App) SetValidator(v Validator) {
	a.validator = v
}

func (a *App) Validator() Validator {
	return a.validator
}
