package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/provider"
)

// DefaultCallTimeout bounds a single provider call.
const DefaultCallTimeout = 30 * time.Second

// chainOutcome is what one walk of the fallback chain produced.
type chainOutcome struct {
	resp         provider.Response
	providerName string
	fallbackUsed bool
	primaryError string            // first attempted provider's message, if any failed
	attempts     map[string]string // provider -> error message, one entry per failed attempt
	err          error             // non-nil when no provider succeeded
}

// Orchestrator drives an ordered list of providers, applying the fallback
// policy. Providers are attempted strictly sequentially: racing them would pay
// for several metered API calls where the first one usually suffices.
type Orchestrator struct {
	providers   []provider.Provider
	callTimeout time.Duration
	logger      *slog.Logger
}

func NewOrchestrator(providers []provider.Provider, callTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Orchestrator{providers: providers, callTimeout: callTimeout, logger: logger}
}

// run walks the chain until one provider succeeds, the image is rejected, or
// the list is exhausted. reqID ties all attempts of one request together in
// the logs.
func (o *Orchestrator) run(ctx context.Context, reqID string, image []byte, order []string) chainOutcome {
	chain := o.resolve(order)
	out := chainOutcome{attempts: map[string]string{}}

	if len(chain) == 0 {
		if len(order) > 0 {
			out.err = fmt.Errorf("no requested provider matches the configured chain")
		} else {
			out.err = fmt.Errorf("no providers configured")
		}
		return out
	}

	for i, p := range chain {
		if err := ctx.Err(); err != nil {
			// Caller gave up; stop without charging further providers.
			if out.err == nil {
				out.err = err
			}
			return out
		}

		o.logger.Info("ocr.provider.call",
			"req_id", reqID, "provider", p.Name(), "attempt", i+1,
			"state", string(constants.StateCalling),
		)

		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		start := time.Now()
		resp, err := p.Recognize(callCtx, image)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			o.logger.Info("ocr.provider.ok",
				"req_id", reqID, "provider", p.Name(),
				"confidence", resp.Confidence, "text_bytes", len(resp.Text),
				"elapsed_ms", elapsed.Milliseconds(),
			)
			out.resp = resp
			out.providerName = p.Name()
			out.fallbackUsed = i > 0
			return out
		}

		pe, ok := provider.AsError(err)
		if !ok {
			pe = provider.NewError(p.Name(), provider.KindUnavailable, err.Error(), err)
		}
		out.attempts[p.Name()] = pe.Message
		if out.primaryError == "" {
			out.primaryError = pe.Message
		}

		o.logger.Warn("ocr.provider.failed",
			"req_id", reqID, "provider", p.Name(), "kind", string(pe.Kind),
			"error", pe.Message, "elapsed_ms", elapsed.Milliseconds(),
		)

		if !pe.Retryable() {
			// The image itself is unusable; every other provider would
			// reject it too.
			o.logger.Warn("ocr.chain.stopped", "req_id", reqID, "provider", p.Name(), "kind", string(pe.Kind))
			out.err = pe
			return out
		}
		out.err = pe
	}

	o.logger.Error("ocr.chain.exhausted", "req_id", reqID, "providers", len(chain))
	out.err = fmt.Errorf("all providers failed: %w", out.err)
	return out
}

// resolve maps a requested order onto the configured providers, preserving the
// requested sequence and dropping unknown names. Empty order means the
// configured chain as-is.
func (o *Orchestrator) resolve(order []string) []provider.Provider {
	if len(order) == 0 {
		return o.providers
	}
	byName := make(map[string]provider.Provider, len(o.providers))
	for _, p := range o.providers {
		byName[p.Name()] = p
	}
	var chain []provider.Provider
	for _, name := range order {
		if p, ok := byName[constants.NormalizeProvider(name)]; ok {
			chain = append(chain, p)
		}
	}
	return chain
}
