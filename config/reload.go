package config

import (
	"fmt"
	"log/slog"
)

// Reload re-reads the file the current config came from and swaps it into
// the provider. The previous config stays active on any error.
func Reload(provider *Provider, logger *slog.Logger) error {
	path := provider.Get().Source
	if path == "" {
		logger.Info("Reload: no config file in use, nothing to reload")
		return nil
	}

	logger.Debug("Reload: reading configuration", "path", path)
	newCfg, err := LoadFromFile(path, logger)
	if err != nil {
		logger.Error("Reload: failed to load configuration", "path", path, "error", err)
		return fmt.Errorf("reload of %s failed: %w", path, err)
	}

	provider.Update(newCfg)
	logger.Info("Reload: configuration successfully reloaded", "path", path)
	return nil
}
