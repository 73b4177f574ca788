package config

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// LoadFromFile decodes the TOML file at path over the defaults, applies
// environment overrides and validates the result.
func LoadFromFile(path string, logger *slog.Logger) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			logger.Warn("config: unknown keys ignored", "path", path, "keys", fmt.Sprint(undecoded))
		}
		cfg.Source = path
		fillProviderDefaults(cfg)
	}

	cfg.FillEnvVars()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("configuration loaded", "source", cfg.Source, "env", cfg.Env, "db_driver", cfg.Db.Driver)
	return cfg, nil
}

// fillProviderDefaults completes provider tables that only set credentials
// or a redirect URL. The decoder replaces map values as a whole.
func fillProviderDefaults(cfg *Config) {
	defaults := NewDefaultConfig().OAuth2Providers
	for name, p := range cfg.OAuth2Providers {
		d, ok := defaults[name]
		if !ok {
			continue
		}
		if p.Name == "" {
			p.Name = d.Name
		}
		if p.DisplayName == "" {
			p.DisplayName = d.DisplayName
		}
		if p.RedirectURL == "" {
			p.RedirectURL = d.RedirectURL
		}
		if p.AuthURL == "" {
			p.AuthURL = d.AuthURL
		}
		if p.TokenURL == "" {
			p.TokenURL = d.TokenURL
		}
		if p.UserInfoURL == "" {
			p.UserInfoURL = d.UserInfoURL
		}
		if p.EmailsURL == "" {
			p.EmailsURL = d.EmailsURL
		}
		if len(p.Scopes) == 0 {
			p.Scopes = d.Scopes
		}
		cfg.OAuth2Providers[name] = p
	}
}
