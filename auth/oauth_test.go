package auth

import (
	"context"
	"testing"

	"github.com/caasmo/notesapi/db"
)

func TestHandleOAuthUser_CreatesVerifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.HandleOAuthUser(ctx, OAuthProfile{
		Provider:  db.ProviderGitHub,
		SubjectID: "42",
		Email:     " Octo@Example.com ",
		FullName:  "The Octocat",
		AvatarURL: "https://avatars.example.com/u/42",
	})
	if err != nil {
		t.Fatalf("HandleOAuthUser() error = %v", err)
	}
	if user.ID == "" || user.Email != "octo@example.com" || !user.Verified || user.HasPassword() {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.AuthProvider != db.ProviderGitHub || user.ProfilePic != "https://avatars.example.com/u/42" {
		t.Errorf("provider fields not set: %+v", user)
	}

	again, err := env.svc.HandleOAuthUser(ctx, OAuthProfile{Provider: db.ProviderGitHub, Email: "octo@example.com"})
	if err != nil || again.ID != user.ID {
		t.Errorf("second login returned %+v, %v; want same user", again, err)
	}
}

func TestHandleOAuthUser_ExistingLocalAccountUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	res := env.signupVerified(t, "local@example.com")

	user, err := env.svc.HandleOAuthUser(ctx, OAuthProfile{
		Provider: db.ProviderGoogle, Email: "local@example.com", FullName: "Someone Else", AvatarURL: "https://x/y.png",
	})
	if err != nil {
		t.Fatalf("HandleOAuthUser() error = %v", err)
	}
	if user.ID != res.User.ID || user.AuthProvider != db.ProviderLocal || user.FullName != "Alice" || user.ProfilePic != "" {
		t.Errorf("existing account modified: %+v", user)
	}
	if !user.HasPassword() {
		t.Error("existing password removed")
	}
}

func TestHandleOAuthUser_FallbackName(t *testing.T) {
	env := newTestEnv(t)
	user, err := env.svc.HandleOAuthUser(context.Background(), OAuthProfile{Provider: db.ProviderGoogle, Email: "jdoe@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if user.FullName != "jdoe" {
		t.Errorf("FullName = %q, want local part", user.FullName)
	}
}

func TestHandleOAuthUser_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)
	for _, email := range []string{"", "not-an-email"} {
		_, err := env.svc.HandleOAuthUser(context.Background(), OAuthProfile{Provider: db.ProviderGoogle, Email: email})
		assertAuthError(t, err, ErrOAuthProfileIncomplete)
	}
}

func TestRecordOAuthLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user, err := env.svc.HandleOAuthUser(ctx, OAuthProfile{Provider: db.ProviderGoogle, Email: "rec@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	out, err := env.svc.RecordOAuthLogin(ctx, user, testDevice, testIP)
	if err != nil {
		t.Fatalf("RecordOAuthLogin() error = %v", err)
	}
	if out.User.ID != user.ID || out.User.Email != "rec@example.com" {
		t.Errorf("result user = %+v", out.User)
	}
	if id, err := env.svc.Issuer().ParseAccessToken(out.AccessToken); err != nil || id != user.ID {
		t.Errorf("access token user = %q, %v", id, err)
	}
	stored, _ := env.store.Users().FindByID(ctx, user.ID)
	if len(stored.Sessions) != 1 || stored.Sessions[0].DeviceInfo != testDevice {
		t.Errorf("session not recorded: %+v", stored.Sessions)
	}
}
