package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/leowmjw/go-neurotools/pkg/http"
	"github.com/leowmjw/go-neurotools/pkg/store"
	"github.com/leowmjw/go-neurotools/pkg/temporal"
)

func main() {
	var (
		httpAddr     = flag.String("http-addr", ":8080", "HTTP server address")
		temporalAddr = flag.String("temporal-addr", "localhost:7233", "Temporal server address")
		namespace    = flag.String("namespace", "default", "Temporal namespace")
		taskQueue    = flag.String("task-queue", temporal.TaskQueue, "Temporal task queue")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dataDir      = flag.String("data-dir", "", "Badger directory for spike lists and summaries (in-memory when empty)")
	)
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("Starting NeuroTools service",
		"http_addr", *httpAddr,
		"temporal_addr", *temporalAddr,
		"namespace", *namespace,
		"task_queue", *taskQueue,
		"data_dir", *dataDir,
	)

	spikeStore, closeStore, err := openStore(*dataDir, logger)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	temporalClient, err := client.Dial(client.Options{
		HostPort:  *temporalAddr,
		Namespace: *namespace,
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	activities := temporal.NewActivitiesImpl(logger, spikeStore)

	w := worker.New(temporalClient, *taskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: temporal.MaxConcurrency,
	})
	temporal.Register(w, activities)

	go func() {
		logger.Info("Starting Temporal worker", "task_queue", *taskQueue)
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Error("Temporal worker failed", "error", err)
			os.Exit(1)
		}
	}()

	server := http.NewServer(logger, temporalClient, spikeStore, *httpAddr, *taskQueue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Received shutdown signal, stopping services...")

	cancel()

	logger.Info("NeuroTools service stopped")
}

// openStore opens Badger under dataDir, or an in-memory store when dataDir is empty
func openStore(dataDir string, logger *slog.Logger) (store.SpikeStore, func(), error) {
	if dataDir == "" {
		return store.NewMemoryStore(), func() {}, nil
	}
	cfg := store.DefaultConfig(dataDir)
	cfg.Logger = logger
	db, err := store.OpenBadger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}, nil
}
