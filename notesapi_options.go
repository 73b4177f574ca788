package notesapi

import (
	"log/slog"
	"os"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/db/memory"
	"github.com/caasmo/notesapi/db/zombiezen"
	"github.com/caasmo/notesapi/router"
	"github.com/caasmo/notesapi/router/httprouter"
	"github.com/caasmo/notesapi/router/servemux"
	phuslog "github.com/phuslu/log"
	"zombiezen.com/go/sqlite/sqlitex"
)

type Option func(*initializer)

// WithDbApp sets the store. Its lifecycle stays with the caller.
func WithDbApp(store db.DbApp) Option {
	return func(i *initializer) {
		if store == nil {
			panic("DbApp cannot be nil")
		}
		i.store = store
	}
}

// WithZombiezenPool uses an existing pool, for applications that share the
// database file. The user is responsible for closing the pool.
func WithZombiezenPool(pool *sqlitex.Pool) Option {
	return func(i *initializer) {
		store, err := zombiezen.New(pool)
		if err != nil {
			panic("failed to initialize zombiezen db with existing pool: " + err.Error())
		}
		i.store = store
	}
}

// WithMemoryDb keeps everything in memory. Data is lost on exit.
func WithMemoryDb() Option {
	return WithDbApp(memory.New())
}

// WithRouter sets the router implementation
func WithRouter(r router.Router) Option {
	return func(i *initializer) {
		i.router = r
	}
}

func WithRouterServeMux() Option {
	return WithRouter(servemux.New())
}

func WithRouterHttprouter() Option {
	return WithRouter(httprouter.New())
}

// WithMailer replaces the smtp mailer.
func WithMailer(m auth.Mailer) Option {
	return func(i *initializer) {
		i.mailer = m
	}
}

// WithOAuth2StateCache replaces the in process cache of pending OAuth2
// logins, for deployments with more than one instance.
func WithOAuth2StateCache(c oauth2StateCache) Option {
	return func(i *initializer) {
		i.states = c
	}
}

// WithReloadFunc replaces the SIGHUP handler, which by default re-reads the
// configuration file.
func WithReloadFunc(f func() error) Option {
	return func(i *initializer) {
		i.reloadFunc = f
	}
}

// WithLogger sets the logger implementation
func WithLogger(l *slog.Logger) Option {
	return func(i *initializer) {
		i.logger = l
	}
}

// DefaultLoggerOptions provides default settings for slog handlers.
// Level: Debug, removes the time attribute from output.
var DefaultLoggerOptions = &slog.HandlerOptions{
	Level: slog.LevelDebug,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return a
	},
}

// WithPhusLogger configures slog with phuslu/log's JSON handler.
// Uses DefaultLoggerOptions if opts is nil.
func WithPhusLogger(opts *slog.HandlerOptions) Option {
	if opts == nil {
		opts = DefaultLoggerOptions
	}
	return WithLogger(slog.New(phuslog.SlogNewJSONHandler(os.Stderr, opts)))
}

// WithTextLogger configures slog with the standard library's text handler.
func WithTextLogger(opts *slog.HandlerOptions) Option {
	if opts == nil {
		opts = DefaultLoggerOptions
	}
	return WithLogger(slog.New(slog.NewTextHandler(os.Stdout, opts)))
}
