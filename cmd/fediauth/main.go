package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fediauth/internal/buildinfo"
	"github.com/dmitrijs2005/fediauth/internal/client/cli"
	"github.com/dmitrijs2005/fediauth/internal/client/config"
	"github.com/dmitrijs2005/fediauth/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	if err := run(); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, logging.Options{
		Backend: cfg.LogBackend,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	// stderr may not support fsync; nothing to do about it at exit.
	defer func() { _ = logging.Sync(logger) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return app.Run(ctx)
}
