package notesapi

import (
	"log/slog"
	"os"

	"github.com/caasmo/notesapi/config"
	phuslog "github.com/phuslu/log"
)

// NewLogger builds the logger of log.format: phuslu JSON to stderr for
// "json", slog text to stdout for "text". The level comes from log.level.
func NewLogger(cfg *config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level.Level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(phuslog.SlogNewJSONHandler(os.Stderr, opts))
}
