// Package job holds the background daemons run by the server.
package job

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/caasmo/notesapi/config"
)

// purgeTimeout bounds a single purge run.
const purgeTimeout = time.Minute

// TokenPurger deletes expired refresh tokens. Implemented by auth.Service.
type TokenPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context) (int64, error)
}

// RefreshTokenPurger periodically removes refresh tokens past their expiry.
// Expired tokens are already refused on use; the purge only keeps the
// table small. The interval is auth.purge_interval, read on Start.
type RefreshTokenPurger struct {
	purger         TokenPurger
	configProvider *config.Provider
	logger         *slog.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownDone chan struct{}
}

func NewRefreshTokenPurger(purger TokenPurger, provider *config.Provider, logger *slog.Logger) *RefreshTokenPurger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshTokenPurger{
		purger:         purger,
		configProvider: provider,
		logger:         logger.With("daemon", "refresh_token_purger"),
		ctx:            ctx,
		cancel:         cancel,
		shutdownDone:   make(chan struct{}),
	}
}

func (p *RefreshTokenPurger) Name() string {
	return "RefreshTokenPurger"
}

// Start launches the ticker goroutine.
func (p *RefreshTokenPurger) Start() error {
	interval := p.configProvider.Get().Auth.PurgeInterval.Duration
	if interval <= 0 {
		return errors.New("purge interval must be positive")
	}

	go func() {
		defer close(p.shutdownDone)
		p.logger.Info("starting refresh token purger", "interval", interval)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.RunOnce(p.ctx)
			}
		}
	}()
	return nil
}

// Stop signals the goroutine to stop and waits for the running purge, or
// for ctx to be done.
func (p *RefreshTokenPurger) Stop(ctx context.Context) error {
	p.cancel()
	select {
	case <-p.shutdownDone:
		return nil
	case <-ctx.Done():
		p.logger.Warn("refresh token purger shutdown timed out")
		return ctx.Err()
	}
}

// RunOnce purges now. Errors are logged.
func (p *RefreshTokenPurger) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	n, err := p.purger.PurgeExpiredRefreshTokens(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.logger.Error("failed to purge expired refresh tokens", "error", err)
		return
	}
	if n > 0 {
		p.logger.Info("purged expired refresh tokens", "count", n)
	}
}
