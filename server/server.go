// Package server runs the HTTP server and the background daemons, reloads
// the configuration on SIGHUP and shuts everything down gracefully on
// SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caasmo/notesapi/config"
	"golang.org/x/sync/errgroup"
)

// Daemon is a long running background component started before and stopped
// together with the HTTP server.
type Daemon interface {
	Name() string
	Start() error
	Stop(ctx context.Context) error
}

type Server struct {
	configProvider *config.Provider
	handler        http.Handler
	logger         *slog.Logger
	reloadFunc     func() error
	daemons        []Daemon
	closers        []io.Closer

	// exitFunc ends the process. Tests replace it.
	exitFunc func(code int)
}

func NewServer(provider *config.Provider, h http.Handler, logger *slog.Logger, reloadFunc func() error) *Server {
	return &Server{
		configProvider: provider,
		handler:        h,
		logger:         logger,
		reloadFunc:     reloadFunc,
		exitFunc:       os.Exit,
	}
}

// AddDaemon registers d. Daemons start in registration order.
func (s *Server) AddDaemon(d Daemon) {
	s.daemons = append(s.daemons, d)
}

// AddCloser registers c to be closed after the HTTP server and the daemons
// stopped, in registration order.
func (s *Server) AddCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Run blocks until shutdown and then exits the process.
func (s *Server) Run() {
	cfg := s.configProvider.Get().Server

	s.logger.Info("server configuration",
		"addr", cfg.Addr,
		"read_timeout", cfg.ReadTimeout.Duration,
		"read_header_timeout", cfg.ReadHeaderTimeout.Duration,
		"write_timeout", cfg.WriteTimeout.Duration,
		"idle_timeout", cfg.IdleTimeout.Duration,
		"shutdown_timeout", cfg.ShutdownGracefulTimeout.Duration,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout.Duration,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
		WriteTimeout:      cfg.WriteTimeout.Duration,
		IdleTimeout:       cfg.IdleTimeout.Duration,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	// Subscribe before anything starts so no signal is lost.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	started, err := s.startDaemons()
	if err != nil {
		s.logger.Error("daemon failed to start, stopping the started ones", "error", err)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracefulTimeout.Duration)
		defer cancel()
		s.stopDaemons(ctx, started)
		s.close()
		s.exitFunc(1)
		return
	}

	serverError := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- err
		}
	}()

	exitCode := 0
wait:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				s.logger.Info("received SIGHUP, reloading configuration")
				if err := s.reloadFunc(); err != nil {
					s.logger.Error("configuration reload failed, keeping the current one", "error", err)
				}
				continue
			}
			s.logger.Info("received shutdown signal", "signal", sig.String())
			break wait
		case err := <-serverError:
			s.logger.Error("http server error, shutting down", "error", err)
			exitCode = 1
			break wait
		}
	}

	gracefulCtx, cancelShutdown := context.WithTimeout(context.Background(), s.configProvider.Get().Server.ShutdownGracefulTimeout.Duration)
	defer cancelShutdown()

	g, _ := errgroup.WithContext(gracefulCtx)
	g.Go(func() error {
		if err := srv.Shutdown(gracefulCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		s.logger.Info("http server stopped")
		return nil
	})
	g.Go(func() error {
		return s.stopDaemons(gracefulCtx, s.daemons)
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("error during shutdown", "error", err)
		exitCode = 1
	}
	if err := s.close(); err != nil {
		s.logger.Error("error releasing resources", "error", err)
		exitCode = 1
	}

	s.logger.Info("all systems stopped")
	s.exitFunc(exitCode)
}

// startDaemons returns the daemons started before the first failure.
func (s *Server) startDaemons() ([]Daemon, error) {
	started := make([]Daemon, 0, len(s.daemons))
	for _, d := range s.daemons {
		s.logger.Info("starting daemon", "daemon", d.Name())
		if err := d.Start(); err != nil {
			return started, fmt.Errorf("daemon %s: %w", d.Name(), err)
		}
		started = append(started, d)
	}
	return started, nil
}

// stopDaemons stops daemons concurrently and joins their errors.
func (s *Server) stopDaemons(ctx context.Context, daemons []Daemon) error {
	var g errgroup.Group
	errs := make([]error, len(daemons))
	for i, d := range daemons {
		g.Go(func() error {
			if err := d.Stop(ctx); err != nil {
				s.logger.Error("daemon stop failed", "daemon", d.Name(), "error", err)
				errs[i] = fmt.Errorf("daemon %s: %w", d.Name(), err)
				return nil
			}
			s.logger.Info("daemon stopped", "daemon", d.Name())
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (s *Server) close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
