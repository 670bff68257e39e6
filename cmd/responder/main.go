// Command responder runs the servers described by a configuration file,
// until an interrupt or terminate signal triggers a graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"golang.org/x/sys/unix"

	"github.com/simpletcp/responder"
	"github.com/simpletcp/responder/config"
)

func main() {
	var (
		configPath string
		verbose    bool
	)
	flag.StringVar(&configPath, "config", "", "configuration file path (default: server_config.json)")
	flag.StringVar(&configPath, "c", "", "shorthand for -config")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	flag.BoolVar(&verbose, "v", false, "shorthand for -verbose")
	flag.Parse()

	// A .env file is optional.
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("RESPONDER_CONFIG")
	}
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	level := slog.LevelInfo
	if verbose || os.Getenv("RESPONDER_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", configPath, "error", err)
		if errors.Is(err, config.ErrConfigNotFound) {
			logger.Error("run responder-setup to create a configuration file")
		}
		os.Exit(1)
	}
	logger.Info("loaded configuration", "path", configPath, "servers", len(cfg.Servers))

	ctx, cancel := signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
	defer cancel()

	m := responder.New(cfg, logger)
	if err := m.Start(ctx); err != nil {
		logger.Error("shutdown finished with errors", "error", err)
		os.Exit(1)
	}
}
