package core

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/db"
	"github.com/caasmo/notesapi/db/memory"
	"github.com/caasmo/notesapi/router"
	"github.com/caasmo/notesapi/router/servemux"
)

const (
	testSecret    = "test_secret_32_bytes_long_xxxxxxxx"
	testPassword  = "Secret123"
	testUserAgent = "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0"
)

// MockAuth implements the Authenticator interface for testing
type MockAuth struct {
	// AuthenticateFunc allows customizing the authentication behavior
	AuthenticateFunc func(r *http.Request) (*db.User, jsonResponse, error)
}

func (m *MockAuth) Authenticate(r *http.Request) (*db.User, jsonResponse, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(r)
	}
	// Default: no token
	return nil, errorResponse(auth.ErrNoAccessToken), auth.ErrNoAccessToken
}

// MockValidator implements the Validator interface for testing
type MockValidator struct {
	ContentTypeFunc func(r *http.Request, allowedType string) (jsonResponse, error)
}

func (m *MockValidator) ContentType(r *http.Request, allowedType string) (jsonResponse, error) {
	return m.ContentTypeFunc(r, allowedType)
}

// MockRouter implements router.Router interface for testing
type MockRouter struct {
	params map[string]string
}

func (m *MockRouter) Handle(path string, handler http.Handler)                                 {}
func (m *MockRouter) HandleFunc(path string, handler func(http.ResponseWriter, *http.Request)) {}
func (m *MockRouter) ServeHTTP(w http.ResponseWriter, r *http.Request)                         {}
func (m *MockRouter) Param(req *http.Request, key string) string                               { return m.params[key] }
func (m *MockRouter) Register(chains router.Chains)                                            {}

// MockOAuth implements OAuthFlow for testing
type MockOAuth struct {
	BeginFunc    func(provider string) (string, error)
	CompleteFunc func(ctx context.Context, provider, state, code string) (*auth.OAuthProfile, error)
}

func (m *MockOAuth) Begin(provider string) (string, error) {
	return m.BeginFunc(provider)
}

func (m *MockOAuth) Complete(ctx context.Context, provider, state, code string) (*auth.OAuthProfile, error) {
	return m.CompleteFunc(ctx, provider, state, code)
}

type fakeMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *fakeMailer) SendVerificationEmail(_ context.Context, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		t.Fatal("no verification email sent")
	}
	_, token, _ := strings.Cut(m.links[len(m.links)-1], "token=")
	return token
}

type testApp struct {
	*App
	store  db.DbApp
	mailer *fakeMailer
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Jwt.AccessSecret = testSecret
	cfg.Log.Request.Activated = false
	return cfg
}

// newTestApp builds an App over the memory store with a real auth service.
func newTestApp(t *testing.T, opts ...Option) *testApp {
	t.Helper()
	store := memory.New()
	mailer := &fakeMailer{}
	provider := config.NewProvider(newTestConfig())

	svc, err := auth.NewService(store, provider, mailer, discardLogger())
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}

	all := []Option{
		WithAuthService(svc),
		WithConfigProvider(provider),
		WithRouter(servemux.New()),
		WithLogger(discardLogger()),
	}
	app, err := NewApp(append(all, opts...)...)
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	return &testApp{App: app, store: store, mailer: mailer}
}

// verifiedUser signs up and verifies an account. It returns the signup
// response data.
func (ta *testApp) verifiedUser(t *testing.T, email string) AuthData {
	t.Helper()
	rr := ta.do(t, ta.SignupHandler, jsonRequest(http.MethodPost, "/api/auth/signup",
		`{"fullName":"Alice","email":"`+email+`","password":"`+testPassword+`"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", rr.Code, rr.Body)
	}
	var data AuthData
	decodeBody(t, rr, &data)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify?token="+ta.mailer.lastToken(t), nil)
	if rr := ta.do(t, ta.VerifyEmailHandler, req); rr.Code != http.StatusOK {
		t.Fatalf("verify status = %d, body %s", rr.Code, rr.Body)
	}
	return data
}

func (ta *testApp) do(t *testing.T, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

// authenticated runs h behind RequireAuth with the access token as bearer.
func (ta *testApp) authenticated(t *testing.T, h http.HandlerFunc, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	ta.RequireAuth(h).ServeHTTP(rr, req)
	return rr
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", testUserAgent)
	return req
}

type envelope struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return env
}

// decodeBody decodes the data member of the envelope into v.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	env := readEnvelope(t, rr)
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to decode data %s: %v", env.Data, err)
	}
}

func assertCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Errorf("status = %d, want %d (body %s)", rr.Code, status, rr.Body)
	}
	if got := readEnvelope(t, rr).Code; got != code {
		t.Errorf("code = %q, want %q", got, code)
	}
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
