// Package server wires the journal pipeline together: database,
// repositories, blob store, queue, providers and the queue consumers.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/olievortex/oliejournal/internal/logging"
	"github.com/olievortex/oliejournal/internal/server/blob"
	"github.com/olievortex/oliejournal/internal/server/config"
	"github.com/olievortex/oliejournal/internal/server/providers"
	"github.com/olievortex/oliejournal/internal/server/queue"
	"github.com/olievortex/oliejournal/internal/server/repositories/repomanager"
	"github.com/olievortex/oliejournal/internal/server/services"
	"github.com/olievortex/oliejournal/internal/server/transcode"
	"github.com/olievortex/oliejournal/internal/server/worker"
)

// Queue is both ends of the step queue.
type Queue interface {
	services.Publisher
	worker.Source
}

// Seams for tests.
var (
	openDB = repomanager.OpenDB

	newRepositoryManager = repomanager.NewPostgresRepositoryManager

	newBlobStore = func(ctx context.Context, c blob.Config) (services.BlobStore, error) {
		s, err := blob.NewS3Store(ctx, c)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	newQueue = func(ctx context.Context, c queue.Config) (Queue, error) {
		q, err := queue.NewSQSQueue(ctx, c)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	repos    repomanager.RepositoryManager
	queue    Queue
	pipeline *services.Pipeline
}

// NewApp connects to the database, blob store and queue and builds the
// pipeline. Dry-run mode swaps the OpenAI providers for offline ones.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, blob.Config{
		User:         c.S3User,
		Password:     c.S3Password,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	q, err := newQueue(ctx, queue.Config{
		QueueURL:          c.QueueURL,
		Region:            c.QueueRegion,
		User:              c.S3User,
		Password:          c.S3Password,
		BaseEndpoint:      c.QueueBaseEndpoint,
		Wait:              c.QueueWait,
		VisibilityTimeout: c.QueueVisibilityTimeout,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("queue init error: %w", err)
	}

	repos := newRepositoryManager()

	deps := services.Deps{
		DB:         db,
		Repos:      repos,
		Blobs:      blobs,
		Queue:      q,
		Transcoder: transcode.NewFFmpeg(c.FfmpegPath),
		Logger:     logger,
		Settings: services.Settings{
			ScratchDir:           c.ScratchDir,
			GoldPath:             c.GoldPath,
			VoiceName:            c.VoiceName,
			Instructions:         c.ChatbotInstructions,
			TranscriptionCeiling: c.TranscriptionCeiling,
			ReplyCeiling:         c.ReplyCeiling,
		},
	}

	if c.DryRun {
		d := providers.NewDryRun()
		deps.Transcriber, deps.Chat, deps.Speech = d, d, d
		logger.Warn(ctx, "dry run: provider calls are simulated")
	} else {
		o := providers.NewOpenAI(providers.OpenAIConfig{
			APIKey:             c.OpenAIAPIKey,
			BaseURL:            c.OpenAIBaseURL,
			ChatModel:          c.OpenAIChatModel,
			TranscriptionModel: c.OpenAITranscriptionModel,
			SpeechModel:        c.OpenAISpeechModel,
		})
		deps.Transcriber, deps.Chat, deps.Speech = o, o, o
	}

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		repos:    repos,
		queue:    q,
		pipeline: services.NewPipeline(deps),
	}, nil
}

// Pipeline exposes the orchestrator to the CLI.
func (app *App) Pipeline() *services.Pipeline {
	return app.pipeline
}

// Migrate applies pending schema migrations.
func (app *App) Migrate(ctx context.Context) error {
	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Close releases the database pool.
func (app *App) Close() error {
	return app.db.Close()
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "shutdown signal", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run migrates the schema and runs WorkerCount consumers until ctx is
// cancelled or a shutdown signal arrives. It returns after every consumer
// has finished its in-flight message.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "workers", app.config.WorkerCount, "dry_run", app.config.DryRun)

	app.initSignalHandler(ctx, cancelFunc)

	if err := app.Migrate(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < app.config.WorkerCount; i++ {
		c := worker.NewConsumer(fmt.Sprintf("worker-%d", i), app.queue, app.pipeline, app.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Run(ctx)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "app stopped")
	return nil
}
