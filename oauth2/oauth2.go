// Package oauth2 runs the server side authorization code flow for the
// configured providers and normalizes their user info into an
// auth.OAuthProfile.
package oauth2

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caasmo/notesapi/auth"
	"github.com/caasmo/notesapi/cache"
	"github.com/caasmo/notesapi/config"
	"github.com/caasmo/notesapi/crypto"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var (
	ErrUnknownProvider  = errors.New("oauth2: unknown provider")
	ErrProviderDisabled = errors.New("oauth2: provider has no client credentials")
	ErrInvalidState     = errors.New("oauth2: invalid or expired state")
	ErrMissingCode      = errors.New("oauth2: missing authorization code")
	ErrStateStore       = errors.New("oauth2: could not store state")
	ErrExchange         = errors.New("oauth2: code exchange failed")
	ErrUserInfo         = errors.New("oauth2: user info request failed")
	ErrNoVerifiedEmail  = errors.New("oauth2: provider returned no verified email")
)

// PendingLogin is what the state cache remembers between the redirect to the
// provider and its callback.
type PendingLogin struct {
	Provider string
	// Verifier is the PKCE code verifier, empty when PKCE is off.
	Verifier string
}

// Flow starts and completes provider logins. States are single use and
// expire after auth.oauth2_state_ttl.
type Flow struct {
	provider *config.Provider
	states   cache.Cache[string, PendingLogin]
	logger   *slog.Logger
}

func NewFlow(provider *config.Provider, states cache.Cache[string, PendingLogin], logger *slog.Logger) (*Flow, error) {
	if provider == nil {
		return nil, fmt.Errorf("oauth2: config provider is required")
	}
	if states == nil {
		return nil, fmt.Errorf("oauth2: state cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{provider: provider, states: states, logger: logger.With("component", "oauth2")}, nil
}

// Begin creates and stores a fresh state for name and returns the provider
// authorization URL the browser must be redirected to.
func (f *Flow) Begin(name string) (string, error) {
	p, err := f.lookup(name)
	if err != nil {
		return "", err
	}

	state := crypto.Oauth2State()
	pending := PendingLogin{Provider: name}
	var opts []oauth2.AuthCodeOption
	if p.PKCE {
		pending.Verifier = crypto.Oauth2CodeVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(pending.Verifier))
	}

	ttl := f.provider.Get().Auth.OAuth2StateTTL.Duration
	if !f.states.SetWithTTL(state, pending, 1, ttl) {
		return "", ErrStateStore
	}
	return oauthConfig(p).AuthCodeURL(state, opts...), nil
}

// Complete consumes state, exchanges code and fetches the user profile.
// The state must have been issued by Begin for the same provider.
func (f *Flow) Complete(ctx context.Context, name, state, code string) (*auth.OAuthProfile, error) {
	p, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return nil, ErrInvalidState
	}
	pending, ok := f.states.Get(state)
	f.states.Delete(state)
	if !ok || pending.Provider != name {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	ctx, cancel := context.WithTimeout(ctx, f.provider.Get().Auth.OAuth2ExchangeTimeout.Duration)
	defer cancel()

	conf := oauthConfig(p)
	var opts []oauth2.AuthCodeOption
	if pending.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(pending.Verifier))
	}
	token, err := conf.Exchange(ctx, code, opts...)
	if err != nil {
		f.logger.Warn("token exchange failed", "provider", name, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	profile, err := fetchProfile(ctx, conf.Client(ctx, token), p)
	if err != nil {
		f.logger.Warn("user info failed", "provider", name, "error", err)
		return nil, err
	}
	return profile, nil
}

// Enabled lists the providers that have client credentials.
func (f *Flow) Enabled() []string {
	var names []string
	for name, p := range f.provider.Get().OAuth2Providers {
		if p.Enabled() {
			names = append(names, name)
		}
	}
	return names
}

func (f *Flow) lookup(name string) (config.OAuth2Provider, error) {
	p, ok := f.provider.Get().OAuth2Providers[name]
	if !ok {
		return config.OAuth2Provider{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if !p.Enabled() {
		return config.OAuth2Provider{}, fmt.Errorf("%w: %s", ErrProviderDisabled, name)
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

// oauthConfig builds the x/oauth2 config. Empty URLs fall back to the well
// known endpoints of the provider.
func oauthConfig(p config.OAuth2Provider) *oauth2.Config {
	endpoint := oauth2.Endpoint{AuthURL: p.AuthURL, TokenURL: p.TokenURL}
	var known oauth2.Endpoint
	switch p.Name {
	case config.OAuth2ProviderGoogle:
		known = endpoints.Google
	case config.OAuth2ProviderGitHub:
		known = endpoints.GitHub
	}
	if endpoint.AuthURL == "" {
		endpoint.AuthURL = known.AuthURL
	}
	if endpoint.TokenURL == "" {
		endpoint.TokenURL = known.TokenURL
	}

	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint:     endpoint,
	}
}
