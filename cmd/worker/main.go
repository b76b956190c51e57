package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tailor-backend/internal/bootstrap"
	"tailor-backend/internal/shared/config"
	"tailor-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()

	if _, err := telemetry.Init(cfg.Env); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	if err := app.Dispatcher.Start(ctx); err != nil {
		log.Fatalf("start dispatcher: %v", err)
	}

	log.Printf("worker started env=%s ingest_concurrency=%d", cfg.Env, cfg.IngestConcurrency)
	<-ctx.Done()
	log.Print("shutting down")
	app.Dispatcher.Stop()
}
