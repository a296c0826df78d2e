package recognition

import (
	"github.com/receiptwise/recognizer/internal/parser"
	"github.com/receiptwise/recognizer/internal/quality"
)

// Request is one recognition attempt over one image. Created per upload,
// consumed once, never persisted.
type Request struct {
	Image []byte
	// ProviderOrder overrides the configured chain for this request. Names
	// not present in the configured provider set are skipped. Empty means
	// use the configured order.
	ProviderOrder []string
}

// Result is the single, always-well-formed answer handed back to the caller.
// success=false happens only when every attempted provider failed or the
// image was rejected outright; parse trouble degrades the result instead.
type Result struct {
	Success              bool              `json:"success"`
	Provider             string            `json:"provider,omitempty"`
	ExtractedText        string            `json:"extracted_text,omitempty"`
	Confidence           float32           `json:"confidence"`
	ExtractedData        *parser.Receipt   `json:"extracted_data,omitempty"`
	ProcessingTimeMs     int64             `json:"processing_time_ms"`
	DataQuality          *quality.Report   `json:"data_quality,omitempty"`
	RequiresManualReview bool              `json:"requires_manual_review"`
	FallbackUsed         bool              `json:"fallback_used"`
	TotalsMismatch       bool              `json:"totals_mismatch,omitempty"`
	PrimaryError         string            `json:"primary_error,omitempty"`
	ProviderErrors       map[string]string `json:"provider_errors,omitempty"`
}
