// Package dbtest holds the behaviour every storage driver must show.
// Driver packages call Run from their own tests.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/notesapi/db"
)

// Run exercises the repositories of a fresh, empty store built by newDb.
func Run(t *testing.T, newDb func(t *testing.T) db.DbApp) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newDb(t)) })
	t.Run("EmailUniqueCaseInsensitive", func(t *testing.T) { testEmailUnique(t, newDb(t)) })
	t.Run("VerificationToken", func(t *testing.T) { testVerificationToken(t, newDb(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newDb(t)) })
	t.Run("SaveKeepsSessions", func(t *testing.T) { testSaveKeepsSessions(t, newDb(t)) })
	t.Run("ConcurrentDeviceSessions", func(t *testing.T) { testConcurrentSessions(t, newDb(t)) })
	t.Run("RefreshTokens", func(t *testing.T) { testRefreshTokens(t, newDb(t)) })
	t.Run("DeleteUserCascades", func(t *testing.T) { testDeleteCascade(t, newDb(t)) })
	t.Run("DeleteUserRemovesTokens", func(t *testing.T) { testDeleteRemovesTokens(t, newDb(t)) })
}

func newUser(email string) *db.User {
	return &db.User{
		Email:        email,
		FullName:     "Test User",
		Password:     "$2a$10$hash",
		AuthProvider: db.ProviderLocal,
	}
}

func testUserLifecycle(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	users := store.Users()

	u := newUser("alice@example.com")
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}
	if u.Created.IsZero() {
		t.Error("Create() did not set Created")
	}

	byID, err := users.FindByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.Email != "alice@example.com" || byID.FullName != "Test User" || byID.Password != u.Password {
		t.Errorf("FindByID() = %+v", byID)
	}
	if byID.AuthProvider != db.ProviderLocal || byID.Verified {
		t.Errorf("unexpected provider/verified: %q %v", byID.AuthProvider, byID.Verified)
	}

	byID.FullName = "Alice"
	byID.ProfilePic = "https://example.com/a.png"
	byID.Verified = true
	if err := users.Save(ctx, byID); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	byEmail, err := users.FindByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.FullName != "Alice" || byEmail.ProfilePic != "https://example.com/a.png" || !byEmail.Verified {
		t.Errorf("Save() not persisted: %+v", byEmail)
	}

	if _, err := users.FindByID(ctx, "does-not-exist"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindByID(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := users.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindByEmail(missing) error = %v, want ErrNotFound", err)
	}

	if err := users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := users.FindByID(ctx, u.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindByID after Delete error = %v, want ErrNotFound", err)
	}
	if err := users.Delete(ctx, u.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func testEmailUnique(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	users := store.Users()

	if err := users.Create(ctx, newUser("bob@example.com")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := users.Create(ctx, newUser("Bob@Example.com"))
	if !errors.Is(err, db.ErrConstraintUnique) {
		t.Errorf("duplicate Create() error = %v, want ErrConstraintUnique", err)
	}
}

func testVerificationToken(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	users := store.Users()

	u := newUser("carol@example.com")
	u.VerificationToken = "abc123"
	u.VerificationExpires = time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := users.FindByVerificationToken(ctx, "abc123")
	if err != nil {
		t.Fatalf("FindByVerificationToken() error = %v", err)
	}
	if found.ID != u.ID {
		t.Errorf("found user %q, want %q", found.ID, u.ID)
	}
	if !found.VerificationExpires.Equal(u.VerificationExpires) {
		t.Errorf("VerificationExpires = %v, want %v", found.VerificationExpires, u.VerificationExpires)
	}

	found.Verified = true
	found.VerificationToken = ""
	found.VerificationExpires = time.Time{}
	if err := users.Save(ctx, found); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := users.FindByVerificationToken(ctx, "abc123"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("lookup of cleared token error = %v, want ErrNotFound", err)
	}
	if _, err := users.FindByVerificationToken(ctx, ""); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("lookup of empty token error = %v, want ErrNotFound", err)
	}

	again, _ := users.FindByID(ctx, u.ID)
	if !again.VerificationExpires.IsZero() {
		t.Errorf("VerificationExpires not cleared: %v", again.VerificationExpires)
	}
}

func testSessions(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	users := store.Users()

	u := newUser("dave@example.com")
	now := time.Now().UTC().Truncate(time.Second)
	u.UpsertSession("firefox", "10.0.0.1", now)
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, _ := users.FindByID(ctx, u.ID)
	if len(got.Sessions) != 1 {
		t.Fatalf("len(Sessions) = %d, want 1", len(got.Sessions))
	}
	s := got.Sessions[0]
	if s.DeviceInfo != "firefox" || s.IPAddress != "10.0.0.1" || !s.LastActive.Equal(now) || s.ID == "" {
		t.Errorf("session not persisted: %+v", s)
	}

	curl, err := users.UpsertSession(ctx, u.ID, "curl", "10.0.0.2", now)
	if err != nil {
		t.Fatalf("UpsertSession() error = %v", err)
	}
	if curl.ID == "" || curl.DeviceInfo != "curl" {
		t.Errorf("UpsertSession() = %+v", curl)
	}

	later := now.Add(time.Minute)
	again, err := users.UpsertSession(ctx, u.ID, "firefox", "10.0.0.9", later)
	if err != nil {
		t.Fatalf("UpsertSession(existing) error = %v", err)
	}
	if again.ID != s.ID {
		t.Errorf("existing device got a new session id %q, want %q", again.ID, s.ID)
	}
	got, _ = users.FindByID(ctx, u.ID)
	if len(got.Sessions) != 2 {
		t.Fatalf("len(Sessions) = %d, want 2", len(got.Sessions))
	}
	if got.Sessions[0].IPAddress != "10.0.0.9" || !got.Sessions[0].LastActive.Equal(later) {
		t.Errorf("existing session not refreshed: %+v", got.Sessions[0])
	}

	removed, err := users.RemoveSession(ctx, u.ID, "firefox")
	if err != nil || !removed {
		t.Fatalf("RemoveSession() = %v, %v; want true, nil", removed, err)
	}
	removed, err = users.RemoveSession(ctx, u.ID, "firefox")
	if err != nil || removed {
		t.Errorf("second RemoveSession() = %v, %v; want false, nil", removed, err)
	}

	removed, err = users.RemoveSessionByID(ctx, u.ID, "missing")
	if err != nil || removed {
		t.Errorf("RemoveSessionByID(missing) = %v, %v; want false, nil", removed, err)
	}
	removed, err = users.RemoveSessionByID(ctx, u.ID, curl.ID)
	if err != nil || !removed {
		t.Errorf("RemoveSessionByID() = %v, %v; want true, nil", removed, err)
	}
	got, _ = users.FindByID(ctx, u.ID)
	if len(got.Sessions) != 0 {
		t.Errorf("unexpected sessions: %+v", got.Sessions)
	}

	if _, err := users.UpsertSession(ctx, "missing", "firefox", "ip", now); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("UpsertSession(unknown user) error = %v, want ErrNotFound", err)
	}
	if _, err := users.RemoveSession(ctx, "missing", "firefox"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("RemoveSession(unknown user) error = %v, want ErrNotFound", err)
	}
	if _, err := users.RemoveSessionByID(ctx, "missing", "id"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("RemoveSessionByID(unknown user) error = %v, want ErrNotFound", err)
	}
}

// testSaveKeepsSessions saves a copy loaded before a session was added. The
// stale copy must not erase it.
func testSaveKeepsSessions(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	users := store.Users()

	u := newUser("gina@example.com")
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	stale, _ := users.FindByID(ctx, u.ID)

	if _, err := users.UpsertSession(ctx, u.ID, "firefox", "10.0.0.1", time.Now()); err != nil {
		t.Fatalf("UpsertSession() error = %v", err)
	}

	stale.FullName = "Gina"
	if err := users.Save(ctx, stale); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, _ := users.FindByID(ctx, u.ID)
	if got.FullName != "Gina" {
		t.Errorf("FullName = %q, want Gina", got.FullName)
	}
	if len(got.Sessions) != 1 || got.Sessions[0].DeviceInfo != "firefox" {
		t.Errorf("Save() overwrote sessions: %+v", got.Sessions)
	}
}

func testConcurrentSessions(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	users := store.Users()

	u := newUser("hank@example.com")
	now := time.Now().UTC().Truncate(time.Second)
	u.UpsertSession("initial", "10.0.0.1", now)
	if err := users.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	const devices = 8
	var wg sync.WaitGroup
	errs := make(chan error, devices)
	for i := 0; i < devices; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			device := fmt.Sprintf("device-%d", i)
			if _, err := users.UpsertSession(ctx, u.ID, device, "10.0.0.2", now); err != nil {
				errs <- fmt.Errorf("%s: %w", device, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("UpsertSession() error = %v", err)
	}

	got, _ := users.FindByID(ctx, u.ID)
	if len(got.Sessions) != devices+1 {
		t.Fatalf("len(Sessions) = %d, want %d: %+v", len(got.Sessions), devices+1, got.Sessions)
	}
	seen := make(map[string]bool)
	for _, s := range got.Sessions {
		if seen[s.DeviceInfo] {
			t.Errorf("device %q stored twice", s.DeviceInfo)
		}
		seen[s.DeviceInfo] = true
	}
}

func testRefreshTokens(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	u := newUser("erin@example.com")
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create user error = %v", err)
	}
	tokens := store.RefreshTokens()
	now := time.Now().UTC().Truncate(time.Second)

	live := &db.RefreshToken{Token: "live", UserID: u.ID, DeviceInfo: "firefox", IPAddress: "10.0.0.1", ExpiresAt: now.Add(time.Hour)}
	stale := &db.RefreshToken{Token: "stale", UserID: u.ID, DeviceInfo: "curl", IPAddress: "10.0.0.2", ExpiresAt: now.Add(-time.Hour)}
	for _, rt := range []*db.RefreshToken{live, stale} {
		if err := tokens.Create(ctx, rt); err != nil {
			t.Fatalf("Create(%s) error = %v", rt.Token, err)
		}
	}
	if err := tokens.Create(ctx, &db.RefreshToken{Token: "live", UserID: u.ID, ExpiresAt: now}); !errors.Is(err, db.ErrConstraintUnique) {
		t.Errorf("duplicate token error = %v, want ErrConstraintUnique", err)
	}

	found, err := tokens.FindByToken(ctx, "live")
	if err != nil {
		t.Fatalf("FindByToken() error = %v", err)
	}
	if found.UserID != u.ID || found.DeviceInfo != "firefox" || found.IPAddress != "10.0.0.1" || !found.ExpiresAt.Equal(live.ExpiresAt) {
		t.Errorf("FindByToken() = %+v", found)
	}

	n, err := tokens.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", n)
	}
	if _, err := tokens.FindByToken(ctx, "stale"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("stale token still present: %v", err)
	}

	if err := tokens.Delete(ctx, "live"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := tokens.Delete(ctx, "live"); err != nil {
		t.Errorf("Delete() of missing token error = %v, want nil", err)
	}
	if _, err := tokens.FindByToken(ctx, "live"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindByToken after Delete error = %v, want ErrNotFound", err)
	}
}

func testDeleteCascade(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	u := newUser("frank@example.com")
	if err := store.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	tokens := store.RefreshTokens()
	for _, tok := range []string{"t1", "t2"} {
		rt := &db.RefreshToken{Token: tok, UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}
		if err := tokens.Create(ctx, rt); err != nil {
			t.Fatal(err)
		}
	}

	if err := tokens.DeleteByUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteByUser() error = %v", err)
	}
	if err := store.Users().Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, tok := range []string{"t1", "t2"} {
		if _, err := tokens.FindByToken(ctx, tok); !errors.Is(err, db.ErrNotFound) {
			t.Errorf("token %s survived user deletion", tok)
		}
	}
}

// testDeleteRemovesTokens relies on the store alone to drop the tokens of a
// deleted user.
func testDeleteRemovesTokens(t *testing.T, store db.DbApp) {
	ctx := context.Background()
	owner := newUser("ivan@example.com")
	other := newUser("judy@example.com")
	for _, u := range []*db.User{owner, other} {
		if err := store.Users().Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	tokens := store.RefreshTokens()
	expires := time.Now().Add(time.Hour)
	for _, rt := range []*db.RefreshToken{
		{Token: "owner-1", UserID: owner.ID, ExpiresAt: expires},
		{Token: "owner-2", UserID: owner.ID, ExpiresAt: expires},
		{Token: "other-1", UserID: other.ID, ExpiresAt: expires},
	} {
		if err := tokens.Create(ctx, rt); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.Users().Delete(ctx, owner.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, tok := range []string{"owner-1", "owner-2"} {
		if _, err := tokens.FindByToken(ctx, tok); !errors.Is(err, db.ErrNotFound) {
			t.Errorf("token %s survived user deletion: %v", tok, err)
		}
	}
	if _, err := tokens.FindByToken(ctx, "other-1"); err != nil {
		t.Errorf("token of another user removed: %v", err)
	}
}
