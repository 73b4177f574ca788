package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/caasmo/notesapi"
	"github.com/caasmo/notesapi/config"
	phuslog "github.com/phuslu/log"
)

func main() {
	configPath := flag.String("config", "", "Path to the TOML configuration file. Defaults plus environment when empty.")
	dumpConfig := flag.Bool("dump-config", false, "Print the effective configuration as TOML, secrets redacted, and exit.")

	originalUsage := flag.Usage
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Runs the notes API server. SIGHUP reloads the configuration file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		originalUsage()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %s, %s, %s\n", config.EnvJwtSecret, config.EnvSmtpPassword, config.EnvDbDSN)
		fmt.Fprintf(os.Stderr, "  %s, %s\n", config.EnvGoogleClientID, config.EnvGoogleClientSecret)
		fmt.Fprintf(os.Stderr, "  %s, %s\n", config.EnvGithubClientID, config.EnvGithubClientSecret)
	}
	flag.Parse()

	// bootstrap logger until the configured one exists
	bootLogger := slog.New(phuslog.SlogNewJSONHandler(os.Stderr, nil))

	cfg, err := config.LoadFromFile(*configPath, bootLogger)
	if err != nil {
		bootLogger.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if *dumpConfig {
		if err := config.Dump(os.Stdout, cfg.Redacted()); err != nil {
			bootLogger.Error("failed to dump configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	_, srv, err := notesapi.New(config.NewProvider(cfg))
	if err != nil {
		bootLogger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	srv.Run()
}
