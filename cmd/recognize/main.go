package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/config"
	"github.com/receiptwise/recognizer/internal/recognition"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "recognize <image-file>")
		os.Exit(2)
	}
	path := os.Args[1]
	if !constants.IsAllowedExt(filepath.Ext(path)) {
		logger.Error("unsupported image extension", "path", path)
		os.Exit(2)
	}
	image, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read image", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

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

	res := svc.Recognize(ctx, recognition.Request{Image: image})

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	if _, err := os.Stdout.Write(append(out, '\n')); err != nil {
		logger.Error("write result", "error", err)
		os.Exit(1)
	}

	if !res.Success {
		os.Exit(1)
	}
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
