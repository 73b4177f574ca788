package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

const (
	EnvJwtSecret          = "NOTESAPI_JWT_SECRET"
	EnvSmtpPassword       = "NOTESAPI_SMTP_PASSWORD"
	EnvDbDSN              = "NOTESAPI_DB_DSN"
	EnvGoogleClientID     = "OAUTH2_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "OAUTH2_GOOGLE_CLIENT_SECRET"
	EnvGithubClientID     = "OAUTH2_GITHUB_CLIENT_ID"
	EnvGithubClientSecret = "OAUTH2_GITHUB_CLIENT_SECRET"
)

const (
	OAuth2ProviderGoogle = "google"
	OAuth2ProviderGitHub = "github"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DbDriverSqlite   = "sqlite"
	DbDriverPostgres = "postgres"
	DbDriverMemory   = "memory"
)

// Provider holds the live configuration. Readers always get a complete
// snapshot; Update swaps it atomically.
type Provider struct {
	value atomic.Value
}

func NewProvider(initialConfig *Config) *Provider {
	if initialConfig == nil {
		panic("initial config cannot be nil")
	}
	p := &Provider{}
	p.value.Store(initialConfig)
	return p
}

func (p *Provider) Get() *Config {
	return p.value.Load().(*Config)
}

func (p *Provider) Update(newConfig *Config) {
	p.value.Store(newConfig)
}

type Config struct {
	// Source is the file the config was loaded from. Empty for defaults.
	Source string `toml:"-"`

	Env             string                    `toml:"env"`
	Server          Server                    `toml:"server"`
	Db              Db                        `toml:"db"`
	Jwt             Jwt                       `toml:"jwt"`
	Auth            Auth                      `toml:"auth"`
	Client          Client                    `toml:"client"`
	Smtp            Smtp                      `toml:"smtp"`
	OAuth2Providers map[string]OAuth2Provider `toml:"oauth2_providers"`
	Endpoints       Endpoints                 `toml:"endpoints"`
	Log             Log                       `toml:"log"`
}

// IsDevelopment reports whether cookies may be sent over plain http.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

type Server struct {
	Addr                    string   `toml:"addr"`
	ShutdownGracefulTimeout Duration `toml:"shutdown_graceful_timeout"`
	ReadTimeout             Duration `toml:"read_timeout"`
	ReadHeaderTimeout       Duration `toml:"read_header_timeout"`
	WriteTimeout            Duration `toml:"write_timeout"`
	IdleTimeout             Duration `toml:"idle_timeout"`
	// ClientIpProxyHeader names the header set by a trusted reverse proxy,
	// e.g. "X-Forwarded-For". Empty means use the connection address.
	ClientIpProxyHeader string `toml:"client_ip_proxy_header"`
	// Router selects the router implementation: "servemux" or "httprouter".
	Router string `toml:"router"`
}

// BaseURL returns the public base URL of the API derived from Addr.
func (s *Server) BaseURL() string {
	host, port, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return "http://" + s.Addr
	}
	if host == "" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

type Db struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	PoolSize int    `toml:"pool_size"`
}

type Jwt struct {
	AccessSecret        string   `toml:"access_secret"`
	AccessTokenDuration Duration `toml:"access_token_duration"`
}

type Auth struct {
	RefreshTokenDuration      Duration `toml:"refresh_token_duration"`
	VerificationTokenDuration Duration `toml:"verification_token_duration"`
	PurgeInterval             Duration `toml:"purge_interval"`
	OAuth2StateTTL            Duration `toml:"oauth2_state_ttl"`
	OAuth2ExchangeTimeout     Duration `toml:"oauth2_exchange_timeout"`
}

// Client describes the browser application served from another origin.
type Client struct {
	// Origin is the only origin allowed by CORS and the only target of the
	// OAuth popup postMessage.
	Origin string `toml:"origin"`
	// BaseURL is where the verification link points, e.g. the SPA root.
	BaseURL string `toml:"base_url"`
}

type Smtp struct {
	Enabled     bool   `toml:"enabled"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	FromName    string `toml:"from_name"`
	FromAddress string `toml:"from_address"`
	LocalName   string `toml:"local_name"`
	UseTLS      bool   `toml:"use_tls"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
}

type OAuth2Provider struct {
	Name         string   `toml:"name"`
	DisplayName  string   `toml:"display_name"`
	RedirectURL  string   `toml:"redirect_url"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	UserInfoURL  string   `toml:"user_info_url"`
	EmailsURL    string   `toml:"emails_url"`
	Scopes       []string `toml:"scopes"`
	PKCE         bool     `toml:"pkce"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
}

// Enabled reports whether both client credentials are present.
func (p OAuth2Provider) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Endpoints holds the routes as "METHOD /path" patterns.
type Endpoints struct {
	Signup         string `toml:"signup"`
	VerifyEmail    string `toml:"verify_email"`
	Login          string `toml:"login"`
	Logout         string `toml:"logout"`
	RefreshToken   string `toml:"refresh_token"`
	CheckAuth      string `toml:"check_auth"`
	Profile        string `toml:"profile"`
	UpdateProfile  string `toml:"update_profile"`
	ChangePassword string `toml:"change_password"`
	DeleteAccount  string `toml:"delete_account"`
	ListSessions   string `toml:"list_sessions"`
	RevokeSession  string `toml:"revoke_session"`
	Health         string `toml:"health"`
	OAuth2Popup    string `toml:"oauth2_popup"`
}

// Path strips the method prefix from an endpoint pattern.
func (e *Endpoints) Path(endpoint string) string {
	if _, path, ok := strings.Cut(endpoint, " "); ok {
		return path
	}
	return endpoint
}

// OAuth2Begin returns the pattern that starts the flow for provider.
func (e *Endpoints) OAuth2Begin(provider string) string {
	return "GET /api/auth/" + provider
}

// OAuth2Callback returns the provider redirect target pattern.
func (e *Endpoints) OAuth2Callback(provider string) string {
	return "GET /api/auth/" + provider + "/callback"
}

type Log struct {
	Level   LogLevel   `toml:"level"`
	Format  string     `toml:"format"`
	Request LogRequest `toml:"request"`
}

type LogRequest struct {
	Activated bool             `toml:"activated"`
	Limits    LogRequestLimits `toml:"limits"`
}

type LogRequestLimits struct {
	URILength       int `toml:"uri_length"`
	UserAgentLength int `toml:"user_agent_length"`
	RefererLength   int `toml:"referer_length"`
	RemoteIPLength  int `toml:"remote_ip_length"`
}

// Duration wraps time.Duration for TOML text encoding ("15m", "168h").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LogLevel wraps slog.Level for TOML text encoding.
type LogLevel struct {
	slog.Level
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "debug":
		l.Level = slog.LevelDebug
	case "info":
		l.Level = slog.LevelInfo
	case "warn":
		l.Level = slog.LevelWarn
	case "error":
		l.Level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %q", string(text))
	}
	return nil
}

func (l LogLevel) MarshalText() ([]byte, error) {
	return []byte(l.Level.String()), nil
}

// FillEnvVars overrides secrets with values from the environment when set.
func (c *Config) FillEnvVars() {
	setFromEnv(&c.Jwt.AccessSecret, EnvJwtSecret)
	setFromEnv(&c.Smtp.Password, EnvSmtpPassword)
	setFromEnv(&c.Db.DSN, EnvDbDSN)

	if p, ok := c.OAuth2Providers[OAuth2ProviderGoogle]; ok {
		setFromEnv(&p.ClientID, EnvGoogleClientID)
		setFromEnv(&p.ClientSecret, EnvGoogleClientSecret)
		c.OAuth2Providers[OAuth2ProviderGoogle] = p
	}
	if p, ok := c.OAuth2Providers[OAuth2ProviderGitHub]; ok {
		setFromEnv(&p.ClientID, EnvGithubClientID)
		setFromEnv(&p.ClientSecret, EnvGithubClientSecret)
		c.OAuth2Providers[OAuth2ProviderGitHub] = p
	}
}

func setFromEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}
