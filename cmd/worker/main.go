package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/olievortex/oliejournal/internal/logging"
	"github.com/olievortex/oliejournal/internal/server"
	"github.com/olievortex/oliejournal/internal/server/config"
)

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stdout)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "worker stopped", "error", err)
		return err
	}
	return nil
}
