package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/olievortex/oliejournal/internal/cli"
	"github.com/olievortex/oliejournal/internal/logging"
	"github.com/olievortex/oliejournal/internal/server"
	"github.com/olievortex/oliejournal/internal/server/config"
)

func main() {
	_ = godotenv.Load()

	args := os.Args[1:]

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	logger := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = cli.Run(ctx, args, os.Stdout, app.Pipeline(), app)
	app.Close()

	if errors.Is(err, cli.ErrUsage) {
		fmt.Fprintln(os.Stderr, cli.Usage)
	}
	if err != nil {
		log.Printf("error: %v", err)
		os.Exit(1)
	}
}
