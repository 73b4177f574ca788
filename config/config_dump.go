package config

import (
	"io"

	"github.com/BurntSushi/toml"
)

// Dump writes cfg as TOML. The output is a valid configuration file.
func Dump(w io.Writer, cfg *Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

const redacted = "REDACTED"

// Redacted returns a copy of c with secrets replaced, for printing.
func (c *Config) Redacted() *Config {
	r := *c
	if r.Jwt.AccessSecret != "" {
		r.Jwt.AccessSecret = redacted
	}
	if r.Smtp.Password != "" {
		r.Smtp.Password = redacted
	}
	if r.Db.DSN != "" {
		r.Db.DSN = redacted
	}
	r.OAuth2Providers = make(map[string]OAuth2Provider, len(c.OAuth2Providers))
	for name, p := range c.OAuth2Providers {
		if p.ClientSecret != "" {
			p.ClientSecret = redacted
		}
		r.OAuth2Providers[name] = p
	}
	return &r
}
