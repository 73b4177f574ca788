package job

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/db/memory"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (c *countingPurger) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProvider(interval time.Duration) *config.Provider {
	cfg := config.NewDefaultConfig()
	cfg.Jwt.AccessSecret = "test_secret_32_bytes_long_xxxxxxxx"
	cfg.Auth.PurgeInterval.Duration = interval
	return config.NewProvider(cfg)
}

func TestRefreshTokenPurger_Ticks(t *testing.T) {
	purger := &countingPurger{}
	p := NewRefreshTokenPurger(purger, newProvider(10*time.Millisecond), discardLogger())

	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for purger.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("purge ran %d times, want at least 2", purger.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	after := purger.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if purger.calls.Load() != after {
		t.Error("purge ran after Stop")
	}
}

func TestRefreshTokenPurger_InvalidInterval(t *testing.T) {
	p := NewRefreshTokenPurger(&countingPurger{}, newProvider(0), discardLogger())
	if err := p.Start(); err == nil {
		t.Fatal("Start() with zero interval should fail")
	}
}

func TestRefreshTokenPurger_ErrorKeepsRunning(t *testing.T) {
	purger := &countingPurger{err: errors.New("disk full")}
	p := NewRefreshTokenPurger(purger, newProvider(5*time.Millisecond), discardLogger())
	if err := p.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop(context.Background())

	deadline := time.Now().Add(time.Second)
	for purger.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("purge ran %d times after errors", purger.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRefreshTokenPurger_RunOnceWithService(t *testing.T) {
	store := memory.New()
	provider := newProvider(time.Hour)
	svc, err := auth.NewService(store, provider, nopMailer{}, discardLogger())
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	tokens := []*db.RefreshToken{
		{Token: "expired", UserID: "u1", ExpiresAt: now.Add(-time.Minute)},
		{Token: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
	}
	for _, tok := range tokens {
		if err := store.RefreshTokens().Create(ctx, tok); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	NewRefreshTokenPurger(svc, provider, discardLogger()).RunOnce(ctx)

	if _, err := store.RefreshTokens().FindByToken(ctx, "expired"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expired token still present, err = %v", err)
	}
	if _, err := store.RefreshTokens().FindByToken(ctx, "live"); err != nil {
		t.Errorf("live token removed: %v", err)
	}
}

type nopMailer struct{}

func (nopMailer) SendVerificationEmail(context.Context, string, string) error { return nil }
