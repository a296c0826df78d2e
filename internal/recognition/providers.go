package recognition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/config"
	"github.com/receiptwise/recognizer/internal/provider"
	"github.com/receiptwise/recognizer/internal/provider/gemini"
	"github.com/receiptwise/recognizer/internal/provider/ocrspace"
	"github.com/receiptwise/recognizer/internal/provider/openai"
)

// BuildProviders constructs the configured fallback chain in priority order.
// The returned cleanup releases any provider connections; callers must invoke
// it on shutdown.
func BuildProviders(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]provider.Provider, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		providers []provider.Provider
		closers   []func() error
	)
	cleanup := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("provider close error", "error", err)
			}
		}
	}

	for _, name := range cfg.Providers.Order {
		switch constants.Provider(constants.NormalizeProvider(name)) {
		case constants.ProviderOCRSpace:
			providers = append(providers, ocrspace.NewClient(ocrspace.Config{
				APIKey:   cfg.Providers.OCRSpace.APIKey,
				BaseURL:  cfg.Providers.OCRSpace.BaseURL,
				Language: cfg.Providers.OCRSpace.Language,
				Engine:   cfg.Providers.OCRSpace.Engine,
			}, logger))
		case constants.ProviderOpenAI:
			providers = append(providers, openai.NewClient(openai.Config{
				APIKey:      cfg.Providers.OpenAI.APIKey,
				BaseURL:     cfg.Providers.OpenAI.BaseURL,
				Model:       cfg.Providers.OpenAI.Model,
				Temperature: cfg.Providers.OpenAI.Temperature,
			}, logger))
		case constants.ProviderGemini:
			g, err := gemini.NewClient(ctx, gemini.Config{
				APIKey: cfg.Providers.Gemini.APIKey,
				Model:  cfg.Providers.Gemini.Model,
			}, logger)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("build gemini provider: %w", err)
			}
			closers = append(closers, g.Close)
			providers = append(providers, g)
		default:
			cleanup()
			return nil, nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	return providers, cleanup, nil
}
