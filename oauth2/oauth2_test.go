package oauth2

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/notesapi/cache/ristretto"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/db"
)

// fakeProvider is an authorization server plus user info API. It accepts a
// single code and records the verifier sent with the exchange.
type fakeProvider struct {
	*httptest.Server
	code string

	mu       sync.Mutex
	verifier string

	userInfo string
	emails   string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{code: "good-code"}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("code") != fp.code {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		fp.mu.Lock()
		fp.verifier = r.PostForm.Get("code_verifier")
		fp.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, fp.userInfo)
	})
	mux.HandleFunc("GET /emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, fp.emails)
	})
	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) sentVerifier() string {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.verifier
}

func (fp *fakeProvider) config(name string, pkce bool) config.OAuth2Provider {
	return config.OAuth2Provider{
		Name:         name,
		RedirectURL:  "http://localhost:5000/api/auth/" + name + "/callback",
		AuthURL:      fp.URL + "/authorize",
		TokenURL:     fp.URL + "/token",
		UserInfoURL:  fp.URL + "/userinfo",
		EmailsURL:    fp.URL + "/emails",
		Scopes:       []string{"email"},
		PKCE:         pkce,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func newTestFlow(t *testing.T, providers map[string]config.OAuth2Provider) (*Flow, *ristretto.Cache[PendingLogin]) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.OAuth2Providers = providers
	states, err := ristretto.New[PendingLogin]("small")
	if err != nil {
		t.Fatalf("ristretto.New() error = %v", err)
	}
	t.Cleanup(states.Close)
	flow, err := NewFlow(config.NewProvider(cfg), states, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewFlow() error = %v", err)
	}
	return flow, states
}

// begin runs Begin and returns the state and code challenge sent to the provider.
func begin(t *testing.T, flow *Flow, states *ristretto.Cache[PendingLogin], name string) (string, url.Values) {
	t.Helper()
	redirect, err := flow.Begin(name)
	if err != nil {
		t.Fatalf("Begin(%q) error = %v", name, err)
	}
	states.Wait()
	u, err := url.Parse(redirect)
	if err != nil {
		t.Fatalf("invalid redirect %q: %v", redirect, err)
	}
	q := u.Query()
	return q.Get("state"), q
}

func TestFlow_Google(t *testing.T) {
	fp := newFakeProvider(t)
	fp.userInfo = `{"sub":"123","name":"Test User","picture":"http://example.com/a.png","email":"Test@Example.com","email_verified":true}`
	flow, states := newTestFlow(t, map[string]config.OAuth2Provider{
		config.OAuth2ProviderGoogle: fp.config(config.OAuth2ProviderGoogle, true),
	})

	state, q := begin(t, flow, states, config.OAuth2ProviderGoogle)
	if state == "" || q.Get("client_id") != "client-id" || q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		t.Fatalf("unexpected authorization query: %v", q)
	}

	profile, err := flow.Complete(context.Background(), config.OAuth2ProviderGoogle, state, fp.code)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if profile.Provider != db.ProviderGoogle || profile.Email != "Test@Example.com" || profile.FullName != "Test User" ||
		profile.AvatarURL != "http://example.com/a.png" || profile.SubjectID != "123" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if fp.sentVerifier() == "" {
		t.Error("PKCE verifier not sent with the exchange")
	}

	// states are single use
	_, err = flow.Complete(context.Background(), config.OAuth2ProviderGoogle, state, fp.code)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("replayed state error = %v, want ErrInvalidState", err)
	}
}

func TestFlow_GoogleUnverifiedEmail(t *testing.T) {
	fp := newFakeProvider(t)
	fp.userInfo = `{"sub":"123","email":"test@example.com","email_verified":false}`
	flow, states := newTestFlow(t, map[string]config.OAuth2Provider{
		config.OAuth2ProviderGoogle: fp.config(config.OAuth2ProviderGoogle, false),
	})
	state, _ := begin(t, flow, states, config.OAuth2ProviderGoogle)
	_, err := flow.Complete(context.Background(), config.OAuth2ProviderGoogle, state, fp.code)
	if !errors.Is(err, ErrNoVerifiedEmail) {
		t.Errorf("Complete() error = %v, want ErrNoVerifiedEmail", err)
	}
}

func TestFlow_GitHub(t *testing.T) {
	testCases := []struct {
		name      string
		userInfo  string
		emails    string
		wantEmail string
		wantName  string
		wantErr   error
	}{
		{
			name:      "public email",
			userInfo:  `{"id":42,"login":"octocat","name":"The Octocat","email":"octo@example.com","avatar_url":"http://a/42"}`,
			wantEmail: "octo@example.com",
			wantName:  "The Octocat",
		},
		{
			name:      "hidden email uses primary verified",
			userInfo:  `{"id":42,"login":"octocat","name":"","email":null}`,
			emails:    `[{"email":"other@example.com","primary":false,"verified":true},{"email":"main@example.com","primary":true,"verified":true}]`,
			wantEmail: "main@example.com",
			wantName:  "octocat",
		},
		{
			name:      "no primary falls back to first verified",
			userInfo:  `{"id":42,"login":"octocat"}`,
			emails:    `[{"email":"unverified@example.com","primary":true,"verified":false},{"email":"ok@example.com","primary":false,"verified":true}]`,
			wantEmail: "ok@example.com",
			wantName:  "octocat",
		},
		{
			name:     "no verified email",
			userInfo: `{"id":42,"login":"octocat"}`,
			emails:   `[{"email":"unverified@example.com","primary":true,"verified":false}]`,
			wantErr:  ErrNoVerifiedEmail,
		},
		{
			name:     "malformed user info",
			userInfo: `{"id":`,
			wantErr:  ErrUserInfo,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fp := newFakeProvider(t)
			fp.userInfo = tc.userInfo
			fp.emails = tc.emails
			flow, states := newTestFlow(t, map[string]config.OAuth2Provider{
				config.OAuth2ProviderGitHub: fp.config(config.OAuth2ProviderGitHub, false),
			})

			state, q := begin(t, flow, states, config.OAuth2ProviderGitHub)
			if q.Get("code_challenge") != "" {
				t.Errorf("PKCE challenge sent for a provider without PKCE")
			}
			profile, err := flow.Complete(context.Background(), config.OAuth2ProviderGitHub, state, fp.code)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Complete() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if profile.Email != tc.wantEmail || profile.FullName != tc.wantName || profile.SubjectID != "42" || profile.Provider != db.ProviderGitHub {
				t.Errorf("unexpected profile: %+v", profile)
			}
		})
	}
}

func TestFlow_Complete_Failures(t *testing.T) {
	fp := newFakeProvider(t)
	fp.userInfo = `{"sub":"1","email":"a@example.com","email_verified":true}`
	flow, states := newTestFlow(t, map[string]config.OAuth2Provider{
		config.OAuth2ProviderGoogle: fp.config(config.OAuth2ProviderGoogle, false),
		config.OAuth2ProviderGitHub: fp.config(config.OAuth2ProviderGitHub, false),
	})
	ctx := context.Background()

	t.Run("unknown state", func(t *testing.T) {
		_, err := flow.Complete(ctx, config.OAuth2ProviderGoogle, "never-issued", fp.code)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("empty state", func(t *testing.T) {
		_, err := flow.Complete(ctx, config.OAuth2ProviderGoogle, "", fp.code)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("state of another provider", func(t *testing.T) {
		state, _ := begin(t, flow, states, config.OAuth2ProviderGitHub)
		_, err := flow.Complete(ctx, config.OAuth2ProviderGoogle, state, fp.code)
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		state, _ := begin(t, flow, states, config.OAuth2ProviderGoogle)
		_, err := flow.Complete(ctx, config.OAuth2ProviderGoogle, state, "")
		if !errors.Is(err, ErrMissingCode) {
			t.Errorf("error = %v, want ErrMissingCode", err)
		}
	})

	t.Run("rejected code", func(t *testing.T) {
		state, _ := begin(t, flow, states, config.OAuth2ProviderGoogle)
		_, err := flow.Complete(ctx, config.OAuth2ProviderGoogle, state, "bad-code")
		if !errors.Is(err, ErrExchange) {
			t.Errorf("error = %v, want ErrExchange", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		if _, err := flow.Begin("facebook"); !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("Begin() error = %v, want ErrUnknownProvider", err)
		}
	})
}

func TestFlow_StateExpires(t *testing.T) {
	fp := newFakeProvider(t)
	cfg := config.NewDefaultConfig()
	cfg.OAuth2Providers = map[string]config.OAuth2Provider{
		config.OAuth2ProviderGoogle: fp.config(config.OAuth2ProviderGoogle, false),
	}
	cfg.Auth.OAuth2StateTTL = config.Duration{Duration: time.Second}
	states, err := ristretto.New[PendingLogin]("small")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(states.Close)
	flow, err := NewFlow(config.NewProvider(cfg), states, nil)
	if err != nil {
		t.Fatal(err)
	}

	state, _ := begin(t, flow, states, config.OAuth2ProviderGoogle)
	time.Sleep(2500 * time.Millisecond)
	_, err = flow.Complete(context.Background(), config.OAuth2ProviderGoogle, state, fp.code)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expired state error = %v, want ErrInvalidState", err)
	}
}

func TestFlow_DisabledProvider(t *testing.T) {
	p := config.OAuth2Provider{Name: config.OAuth2ProviderGoogle}
	flow, _ := newTestFlow(t, map[string]config.OAuth2Provider{config.OAuth2ProviderGoogle: p})
	if _, err := flow.Begin(config.OAuth2ProviderGoogle); !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("Begin() error = %v, want ErrProviderDisabled", err)
	}
	if got := flow.Enabled(); len(got) != 0 {
		t.Errorf("Enabled() = %v, want none", got)
	}
}

func TestOAuthConfig_DefaultEndpoints(t *testing.T) {
	conf := oauthConfig(config.OAuth2Provider{Name: config.OAuth2ProviderGitHub})
	if conf.Endpoint.AuthURL != "https://github.com/login/oauth/authorize" {
		t.Errorf("AuthURL = %q", conf.Endpoint.AuthURL)
	}
	if conf.Endpoint.TokenURL != "https://github.com/login/oauth/access_token" {
		t.Errorf("TokenURL = %q", conf.Endpoint.TokenURL)
	}
}

func TestRenderSuccess(t *testing.T) {
	var b strings.Builder
	if err := RenderSuccess(&b, "http://localhost:5173", "n0nce"); err != nil {
		t.Fatalf("RenderSuccess() error = %v", err)
	}
	page := b.String()
	if !strings.Contains(page, "postMessage({ type: 'oauth_success' }, \"") || !strings.Contains(page, "localhost:5173") {
		t.Errorf("page does not post to the origin:\n%s", page)
	}
	if !strings.Contains(page, `<script nonce="n0nce">`) {
		t.Error("script nonce missing")
	}
	if !strings.Contains(page, "window.close()") {
		t.Error("page does not close itself")
	}
}

func TestRenderSuccess_EscapesOrigin(t *testing.T) {
	var b strings.Builder
	if err := RenderSuccess(&b, `"</script><script>alert(1)</script>`, "n"); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(b.String(), "<script>alert(1)") {
		t.Errorf("origin not escaped:\n%s", b.String())
	}
}

func TestRenderFailure(t *testing.T) {
	var b strings.Builder
	if err := RenderFailure(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), GenericFailure) || !strings.Contains(b.String(), "Authentication Failed") {
		t.Errorf("unexpected failure page:\n%s", b.String())
	}
}
