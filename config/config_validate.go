package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MinJwtSecretLength matches the HMAC-SHA256 key minimum enforced by crypto.
const MinJwtSecretLength = 32

func Validate(cfg *Config) error {
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		return fmt.Errorf("env must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env)
	}
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := validateDb(&cfg.Db); err != nil {
		return fmt.Errorf("db config validation failed: %w", err)
	}
	if err := validateJwt(&cfg.Jwt); err != nil {
		return fmt.Errorf("jwt config validation failed: %w", err)
	}
	if err := validateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth config validation failed: %w", err)
	}
	if err := validateClient(&cfg.Client); err != nil {
		return fmt.Errorf("client config validation failed: %w", err)
	}
	if err := validateSmtp(&cfg.Smtp); err != nil {
		return fmt.Errorf("smtp config validation failed: %w", err)
	}
	if err := validateOAuth2Providers(cfg.OAuth2Providers); err != nil {
		return fmt.Errorf("oauth2 config validation failed: %w", err)
	}
	return nil
}

// validateServer checks the Server configuration section.
// It ensures the Addr field is not empty and contains a valid host:port or :port format.
// If only a port is provided (e.g., ":8080"), it defaults the host to "localhost".
//
// Allowed formats:
//   - "host:port" (e.g., "example.com:8080", "127.0.0.1:8080", "[::1]:8080")
//   - ":port"     (e.g., ":8080" becomes "localhost:8080")
func validateServer(server *Server) error {
	if server.Addr == "" {
		return fmt.Errorf("server address (Addr) cannot be empty")
	}

	host, port, err := net.SplitHostPort(server.Addr)
	if err != nil {
		return fmt.Errorf("invalid server address format '%s': %w", server.Addr, err)
	}
	if port == "" {
		return fmt.Errorf("server address '%s' must include a port", server.Addr)
	}
	if host == "" {
		host = "localhost"
	}
	server.Addr = net.JoinHostPort(host, port)

	if _, err := net.LookupPort("tcp", port); err != nil {
		return fmt.Errorf("invalid port '%s' in server address '%s': %w", port, server.Addr, err)
	}

	switch server.Router {
	case "", "servemux", "httprouter":
	default:
		return fmt.Errorf("unknown router %q", server.Router)
	}
	return nil
}

func validateDb(d *Db) error {
	switch d.Driver {
	case DbDriverSqlite:
		if d.Path == "" {
			return fmt.Errorf("sqlite driver requires a path")
		}
	case DbDriverPostgres:
		if d.DSN == "" {
			return fmt.Errorf("postgres driver requires a dsn (or %s)", EnvDbDSN)
		}
	case DbDriverMemory:
	default:
		return fmt.Errorf("unknown db driver %q", d.Driver)
	}
	if d.PoolSize < 0 {
		return fmt.Errorf("pool size cannot be negative")
	}
	return nil
}

func validateJwt(j *Jwt) error {
	if len(j.AccessSecret) < MinJwtSecretLength {
		return fmt.Errorf("access secret must be at least %d bytes (set it in the file or %s)", MinJwtSecretLength, EnvJwtSecret)
	}
	if j.AccessTokenDuration.Duration <= 0 {
		return fmt.Errorf("access token duration must be positive")
	}
	return nil
}

func validateAuth(a *Auth) error {
	checks := map[string]Duration{
		"refresh_token_duration":      a.RefreshTokenDuration,
		"verification_token_duration": a.VerificationTokenDuration,
		"purge_interval":              a.PurgeInterval,
		"oauth2_state_ttl":            a.OAuth2StateTTL,
		"oauth2_exchange_timeout":     a.OAuth2ExchangeTimeout,
	}
	for name, d := range checks {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// validateClient requires Origin to be a bare scheme://host[:port]. The
// browser compares message and CORS origins byte for byte.
func validateClient(c *Client) error {
	u, err := url.Parse(c.Origin)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", c.Origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin %q must use http or https", c.Origin)
	}
	if u.Host == "" || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return fmt.Errorf("origin %q must be scheme://host[:port]", c.Origin)
	}
	c.Origin = strings.TrimSuffix(c.Origin, "/")

	if c.BaseURL == "" {
		return fmt.Errorf("base url cannot be empty")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

func validateSmtp(s *Smtp) error {
	if !s.Enabled {
		return nil
	}
	if s.Host == "" {
		return fmt.Errorf("host cannot be empty when smtp is enabled")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.FromAddress == "" {
		return fmt.Errorf("from address cannot be empty when smtp is enabled")
	}
	return nil
}

func validateOAuth2Providers(providers map[string]OAuth2Provider) error {
	for name, p := range providers {
		if name != OAuth2ProviderGoogle && name != OAuth2ProviderGitHub {
			return fmt.Errorf("unsupported provider %q", name)
		}
		if !p.Enabled() {
			continue
		}
		for field, raw := range map[string]string{
			"redirect_url":  p.RedirectURL,
			"auth_url":      p.AuthURL,
			"token_url":     p.TokenURL,
			"user_info_url": p.UserInfoURL,
		} {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("provider %s: invalid %s %q", name, field, raw)
			}
		}
	}
	return nil
}
