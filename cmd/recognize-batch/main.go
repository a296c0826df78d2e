package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/async"
	"github.com/receiptwise/recognizer/internal/config"
	"github.com/receiptwise/recognizer/internal/recognition"
)

// Walks a directory of receipt images, runs each through the recognition
// queue, and writes <image>.result.json next to every input.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "recognize-batch <directory>")
		os.Exit(2)
	}
	dir := os.Args[1]

	ctx := context.Background()
	providers, cleanup, err := recognition.BuildProviders(ctx, cfg, logger)
	if err != nil {
		logger.Error("build providers", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	svc := recognition.NewService(providers, recognition.Config{
		CallTimeout:     cfg.Providers.CallTimeout,
		ReviewThreshold: cfg.Recognition.ReviewThreshold,
		DecimalComma:    cfg.Recognition.DecimalComma,
	}, logger)

	var mu sync.Mutex
	paths := map[uuid.UUID]string{}

	handler := func(_ context.Context, job async.Job, res recognition.Result) {
		mu.Lock()
		path := paths[job.ID]
		mu.Unlock()

		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			logger.Error("encode result", "job_id", job.ID, "error", err)
			return
		}
		dest := path + ".result.json"
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			logger.Error("write result", "job_id", job.ID, "dest", dest, "error", err)
		}
	}

	queue := async.NewRecognizerQueue(svc, handler, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithJobTimeout(cfg.Queue.JobTimeout),
	)

	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Error("read directory", "dir", dir, "error", err)
		os.Exit(1)
	}

	queued := 0
	for _, e := range entries {
		if e.IsDir() || !constants.IsAllowedExt(filepath.Ext(e.Name())) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		image, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read image", "path", path, "error", err)
			continue
		}
		job := async.Job{ID: uuid.New(), Image: image, SubmittedAt: time.Now()}
		mu.Lock()
		paths[job.ID] = path
		mu.Unlock()
		_ = queue.Enqueue(ctx, job)
		queued++
	}

	logger.Info("batch queued", "dir", dir, "jobs", queued)

	drainCtx, cancel := context.WithTimeout(ctx, time.Duration(queued+1)*cfg.Queue.JobTimeout)
	defer cancel()
	queue.Shutdown(drainCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
