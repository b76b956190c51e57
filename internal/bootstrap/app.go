// Package bootstrap wires the process: config, storage, queue, limiter,
// generation client, worker and producer facade.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tailor-backend/internal/documents"
	"tailor-backend/internal/extract"
	"tailor-backend/internal/llm"
	"tailor-backend/internal/llm/gemini"
	"tailor-backend/internal/pipeline"
	"tailor-backend/internal/queue"
	"tailor-backend/internal/ratelimit"
	"tailor-backend/internal/shared/config"
	"tailor-backend/internal/shared/storage/db"
	"tailor-backend/internal/shared/storage/object"
	localstore "tailor-backend/internal/shared/storage/object/local"
	s3store "tailor-backend/internal/shared/storage/object/s3"
	"tailor-backend/internal/shared/telemetry"
	"tailor-backend/internal/versions"
	"tailor-backend/internal/worker"
)

// App holds the process's shared dependencies.
type App struct {
	Config config.Config
	DB     *sql.DB
	Store  object.ObjectStore

	Docs documents.Repo
	Vers versions.Repo

	Dispatcher *queue.Dispatcher
	Queue      queue.Client
	Limiter    *ratelimit.Limiter
	LLM        llm.Client
	Worker     *worker.Worker
	Pipeline   *pipeline.Service
}

// Build prepares shared dependencies. The dispatcher is registered but not
// started; the caller starts it once signal handling is in place.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	app := &App{Config: cfg}

	if err := buildRepos(ctx, cfg, app); err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	client, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, fmt.Errorf("build generation client: %w", err)
	}
	app.LLM = client

	app.Limiter = ratelimit.New(ratelimit.Config{
		MaxConcurrency: 1,
		MinSpacing:     cfg.GenMinSpacing,
		ReservoirSize:  cfg.GenReservoirSize,
		RefillInterval: cfg.GenReservoirInterval,
	})

	app.Worker = worker.New(app.Docs, app.Vers, app.Store, extract.NewChain(), app.LLM,
		app.Limiter, ratelimit.DefaultPolicy(), cfg.GenCallTimeout)

	app.Dispatcher = queue.NewDispatcher(queue.DefaultRedeliveryPolicy())
	if err := app.Worker.Register(app.Dispatcher, cfg.IngestConcurrency); err != nil {
		return nil, err
	}

	producer, err := buildProducer(ctx, cfg, app.Dispatcher)
	if err != nil {
		return nil, err
	}
	app.Queue = queue.NewGuard(producer, queue.DefaultGuardConfig())

	app.Pipeline = pipeline.NewService(app.Docs, app.Vers, app.Queue)
	return app, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildRepos(ctx context.Context, cfg config.Config, app *App) error {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		telemetry.Warn("no database configured, using in-memory repos")
		app.Docs = documents.NewMemoryRepo()
		app.Vers = versions.NewMemoryRepo()
		return nil
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultWorkerOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	app.DB = sqlDB
	app.Docs = &documents.PGRepo{DB: sqlDB}
	app.Vers = &versions.PGRepo{DB: sqlDB}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("build s3 store: %w", err)
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildProducer picks the queue backend the guard wraps. With SQS URLs
// configured the producer publishes remotely; otherwise jobs go straight to
// the in-process dispatcher.
func buildProducer(ctx context.Context, cfg config.Config, dispatcher *queue.Dispatcher) (queue.Client, error) {
	ingestURL := strings.TrimSpace(cfg.IngestQueueURL)
	genURL := strings.TrimSpace(cfg.GenerationQueueURL)
	if ingestURL == "" || genURL == "" {
		return dispatcher, nil
	}

	ingestClient, err := queue.NewSQSClient(ctx, ingestURL, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("build ingest sqs client: %w", err)
	}
	genClient, err := queue.NewSQSClient(ctx, genURL, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("build generation sqs client: %w", err)
	}
	telemetry.Info("producing to sqs",
		zap.String("ingestQueue", ingestURL),
		zap.String("generationQueue", genURL))
	return queue.NewRouter(map[queue.Kind]queue.Client{
		queue.KindIngest:        ingestClient,
		queue.KindCustomization: genClient,
		queue.KindMessage:       genClient,
	}), nil
}
