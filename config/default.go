package config

import (
	"log/slog"
	"time"
)

// NewDefaultConfig creates a new Config with sensible defaults.
// The JWT secret is left empty and must come from the file or environment.
func NewDefaultConfig() *Config {
	return &Config{
		Env: EnvProduction,
		Server: Server{
			Addr:                    ":5000",
			ShutdownGracefulTimeout: Duration{Duration: 15 * time.Second},
			ReadTimeout:             Duration{Duration: 2 * time.Second},
			ReadHeaderTimeout:       Duration{Duration: 2 * time.Second},
			// OAuth callbacks call the provider twice before answering.
			WriteTimeout:        Duration{Duration: 30 * time.Second},
			IdleTimeout:         Duration{Duration: 1 * time.Minute},
			ClientIpProxyHeader: "",
			Router:              "servemux",
		},
		Db: Db{
			Driver:   DbDriverSqlite,
			Path:     "notes.db",
			PoolSize: 8,
		},
		Jwt: Jwt{
			AccessSecret:        "",
			AccessTokenDuration: Duration{Duration: 15 * time.Minute},
		},
		Auth: Auth{
			RefreshTokenDuration:      Duration{Duration: 7 * 24 * time.Hour},
			VerificationTokenDuration: Duration{Duration: 1 * time.Hour},
			PurgeInterval:             Duration{Duration: 1 * time.Hour},
			OAuth2StateTTL:            Duration{Duration: 10 * time.Minute},
			OAuth2ExchangeTimeout:     Duration{Duration: 10 * time.Second},
		},
		Client: Client{
			Origin:  "http://localhost:5173",
			BaseURL: "http://localhost:5173",
		},
		Smtp: Smtp{
			Enabled:     false,
			Host:        "smtp.gmail.com",
			Port:        587,
			FromName:    "Notes App",
			FromAddress: "",
			LocalName:   "",
			UseTLS:      false,
			Username:    "",
			Password:    "",
		},
		OAuth2Providers: map[string]OAuth2Provider{
			OAuth2ProviderGoogle: {
				Name:        OAuth2ProviderGoogle,
				DisplayName: "Google",
				RedirectURL: "http://localhost:5000/api/auth/google/callback",
				AuthURL:     "https://accounts.google.com/o/oauth2/v2/auth",
				TokenURL:    "https://oauth2.googleapis.com/token",
				UserInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
				Scopes:      []string{"profile", "email"},
				PKCE:        true,
			},
			OAuth2ProviderGitHub: {
				Name:        OAuth2ProviderGitHub,
				DisplayName: "GitHub",
				RedirectURL: "http://localhost:5000/api/auth/github/callback",
				AuthURL:     "https://github.com/login/oauth/authorize",
				TokenURL:    "https://github.com/login/oauth/access_token",
				UserInfoURL: "https://api.github.com/user",
				EmailsURL:   "https://api.github.com/user/emails",
				Scopes:      []string{"user:email"},
				PKCE:        false,
			},
		},
		Endpoints: Endpoints{
			Signup:         "POST /api/auth/signup",
			VerifyEmail:    "GET /api/auth/verify",
			Login:          "POST /api/auth/login",
			Logout:         "POST /api/auth/logout",
			RefreshToken:   "POST /api/auth/refresh-token",
			CheckAuth:      "GET /api/auth/check",
			Profile:        "GET /api/users/me",
			UpdateProfile:  "PUT /api/users/me",
			ChangePassword: "PUT /api/users/me/password",
			DeleteAccount:  "DELETE /api/users/me",
			ListSessions:   "GET /api/users/me/sessions",
			RevokeSession:  "DELETE /api/users/me/sessions/{id}",
			Health:         "GET /api/health",
			OAuth2Popup:    "GET /assets/oauth-popup.js",
		},
		Log: Log{
			Level:  LogLevel{Level: slog.LevelInfo},
			Format: "json",
			Request: LogRequest{
				Activated: true,
				Limits: LogRequestLimits{
					URILength:       512, // Minimum: 64
					UserAgentLength: 256, // Minimum: 32
					RefererLength:   512, // Minimum: 64
					RemoteIPLength:  64,  // Minimum: 15
				},
			},
		},
	}
}
