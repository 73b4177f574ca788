// Package notesapi assembles the notes API: storage, auth service, OAuth2
// flow, routes and the server with its daemons.
package notesapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/cache"
	"github.com/caasmo/notesapi/cache/ristretto"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/core"
	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/job"
	"github.com/caasmo/notesapi/mail"
	"github.com/caasmo/notesapi/oauth2"
	"github.com/caasmo/notesapi/router"
	"github.com/caasmo/notesapi/router/httprouter"
	"github.com/caasmo/notesapi/router/servemux"
	"github.com/caasmo/notesapi/server"
)

// stateCacheLevel sizes the pending OAuth2 login cache.
const stateCacheLevel = "small"

type oauth2StateCache = cache.Cache[string, oauth2.PendingLogin]

// initializer collects what the options set before New fills the defaults.
type initializer struct {
	provider   *config.Provider
	logger     *slog.Logger
	store      db.DbApp
	router     router.Router
	mailer     auth.Mailer
	states     oauth2StateCache
	reloadFunc func() error
	closers    []io.Closer
}

// New builds the App and the Server. Whatever no option provided is created
// from the configuration: the logger from log.format, the store from
// db.driver, the router from server.router.
func New(provider *config.Provider, opts ...Option) (*core.App, *server.Server, error) {
	if provider == nil {
		return nil, nil, errors.New("config provider is required")
	}
	i := &initializer{provider: provider}
	for _, opt := range opts {
		opt(i)
	}

	cfg := provider.Get()
	if i.logger == nil {
		i.logger = NewLogger(&cfg.Log)
	}
	if i.reloadFunc == nil {
		i.reloadFunc = func() error { return config.Reload(provider, i.logger) }
	}

	if err := i.setup(context.Background()); err != nil {
		i.close()
		return nil, nil, err
	}

	svc, err := auth.NewService(i.store, provider, i.mailer, i.logger)
	if err != nil {
		i.close()
		return nil, nil, err
	}

	flow, err := oauth2.NewFlow(provider, i.states, i.logger)
	if err != nil {
		i.close()
		return nil, nil, err
	}

	app, err := core.NewApp(
		core.WithAuthService(svc),
		core.WithOAuth(flow),
		core.WithRouter(i.router),
		core.WithConfigProvider(provider),
		core.WithLogger(i.logger),
	)
	if err != nil {
		i.close()
		return nil, nil, err
	}

	route(cfg, app, flow.Enabled())

	srv := server.NewServer(provider, Handler(app), i.logger, i.reloadFunc)
	srv.AddDaemon(job.NewRefreshTokenPurger(svc, provider, i.logger))
	for _, c := range i.closers {
		srv.AddCloser(c)
	}

	return app, srv, nil
}

// Handler is the server handler: request log, then CORS, then routing.
func Handler(app *core.App) http.Handler {
	return app.RequestLog(app.Cors(app.Router()))
}

func (i *initializer) setup(ctx context.Context) error {
	cfg := i.provider.Get()

	if i.store == nil {
		store, closer, err := OpenDb(ctx, &cfg.Db)
		if err != nil {
			return err
		}
		i.store = store
		if closer != nil {
			i.closers = append(i.closers, closer)
		}
		i.logger.Info("database ready", "driver", cfg.Db.Driver)
	}

	if i.router == nil {
		r, err := newRouter(cfg.Server.Router)
		if err != nil {
			return err
		}
		i.router = r
	}

	if i.mailer == nil {
		m, err := mail.New(i.provider, i.logger)
		if err != nil {
			return err
		}
		i.mailer = m
	}

	if i.states == nil {
		c, err := ristretto.New[oauth2.PendingLogin](stateCacheLevel)
		if err != nil {
			return fmt.Errorf("oauth2 state cache: %w", err)
		}
		i.states = c
		i.closers = append(i.closers, closerFunc(func() error { c.Close(); return nil }))
	}
	return nil
}

func (i *initializer) close() {
	for _, c := range i.closers {
		c.Close()
	}
}

func newRouter(name string) (router.Router, error) {
	switch name {
	case "", "servemux":
		return servemux.New(), nil
	case "httprouter":
		return httprouter.New(), nil
	default:
		return nil, fmt.Errorf("unknown router %q", name)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
