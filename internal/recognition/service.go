package recognition

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/parser"
	"github.com/receiptwise/recognizer/internal/provider"
	"github.com/receiptwise/recognizer/internal/quality"
	"github.com/receiptwise/recognizer/internal/textnorm"
)

// Config holds thresholds and behavior flags for the recognition service.
type Config struct {
	CallTimeout     time.Duration // per provider call; default 30s
	ReviewThreshold float32       // default 0.5; confidence == threshold passes without review
	DecimalComma    bool          // parse amounts with comma decimal separators
}

// Service is the engine's single entry point: it drives the fallback chain,
// structures the recognized text, scores the result, and always hands back a
// well-formed Result.
type Service struct {
	orch   *Orchestrator
	cfg    Config
	logger *slog.Logger

	// parse is swappable so the degraded-success path stays testable.
	parse func(text string, opts parser.Options) parser.Receipt
}

func NewService(providers []provider.Provider, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReviewThreshold <= 0 {
		cfg.ReviewThreshold = quality.DefaultReviewThreshold
	}
	return &Service{
		orch:   NewOrchestrator(providers, cfg.CallTimeout, logger),
		cfg:    cfg,
		logger: logger,
		parse:  parser.ParseWithOptions,
	}
}

// Recognize runs one image through the chain. The returned Result is the only
// channel for failure: provider exhaustion or an unusable image yields
// success=false, while parse trouble degrades a success instead of hiding it.
func (s *Service) Recognize(ctx context.Context, req Request) Result {
	reqID := uuid.New().String()
	start := time.Now()

	s.logger.Info("ocr.request.start",
		"req_id", reqID, "image_bytes", len(req.Image),
		"provider_order", req.ProviderOrder,
		"state", string(constants.StatePending),
	)

	out := s.orch.run(ctx, reqID, req.Image, req.ProviderOrder)
	if out.providerName == "" {
		res := Result{
			Success:          false,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			PrimaryError:     out.primaryError,
		}
		if res.PrimaryError == "" && out.err != nil {
			res.PrimaryError = out.err.Error()
		}
		if len(out.attempts) > 0 {
			res.ProviderErrors = out.attempts
		}
		s.logger.Error("ocr.request.failed",
			"req_id", reqID, "error", res.PrimaryError,
			"attempts", len(out.attempts),
			"elapsed_ms", res.ProcessingTimeMs,
			"state", string(constants.StateFailed),
		)
		return res
	}

	s.logger.Debug("ocr.request.parsing", "req_id", reqID, "state", string(constants.StateParsing))
	res := s.assemble(reqID, out)
	res.ProcessingTimeMs = time.Since(start).Milliseconds()

	s.logger.Info("ocr.request.ok",
		"req_id", reqID, "provider", res.Provider,
		"confidence", res.Confidence, "fallback_used", res.FallbackUsed,
		"needs_review", res.RequiresManualReview,
		"elapsed_ms", res.ProcessingTimeMs,
		"state", string(constants.StateDone),
	)
	return res
}

// assemble composes the provider response, the parsed record, and the quality
// signals into the final Result. A panic out of the parse or scoring path is
// converted into a degraded success: whatever partial record exists, score
// zero, flagged for review. Text quality and provider reachability are
// independent concerns.
func (s *Service) assemble(reqID string, out chainOutcome) Result {
	res := Result{
		Success:       true,
		Provider:      out.providerName,
		ExtractedText: out.resp.Text,
		FallbackUsed:  out.fallbackUsed,
		PrimaryError:  out.primaryError,
	}
	if len(out.attempts) > 0 {
		res.ProviderErrors = out.attempts
	}

	rec, rep, degraded := s.analyze(reqID, out.resp.Text)
	res.ExtractedData = &rec

	if degraded {
		rep = quality.Report{}
		res.DataQuality = &rep
		res.Confidence = quality.Combine(out.resp.Confidence, 0)
		res.RequiresManualReview = true
		return res
	}

	res.DataQuality = &rep
	res.Confidence = quality.Combine(out.resp.Confidence, rep.OverallScore)
	res.RequiresManualReview = quality.NeedsReview(res.Confidence, rep, s.cfg.ReviewThreshold)
	res.TotalsMismatch = quality.TotalsMismatch(rec)
	return res
}

// analyze normalizes, parses, and scores the text. The parser is pure and
// built not to panic; the recover is the assembler's contract that a parse
// fault can never surface as an OCR failure.
func (s *Service) analyze(reqID, text string) (rec parser.Receipt, rep quality.Report, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ocr.parse.panic", "req_id", reqID, "panic", r)
			degraded = true
		}
	}()
	rec = s.parse(textnorm.Normalize(text), parser.Options{DecimalComma: s.cfg.DecimalComma})
	rep = quality.Assess(rec)
	return rec, rep, false
}
