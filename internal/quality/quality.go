package quality

import (
	"math"

	"github.com/receiptwise/recognizer/internal/parser"
)

// Field weights for the completeness score. Total carries the most weight
// because it is the one field downstream accounting cannot function without.
const (
	WeightMerchant float32 = 0.30
	WeightTotal    float32 = 0.40
	WeightDate     float32 = 0.15
	WeightItems    float32 = 0.15
)

// DefaultReviewThreshold is the confidence below which a human must verify
// the extraction. Inclusive boundary: confidence exactly at the threshold
// does not require review.
const DefaultReviewThreshold float32 = 0.5

// TotalsTolerance is the allowed drift between the printed total and the sum
// of its components before the extraction is flagged.
const TotalsTolerance = 0.01

// Report carries field-presence signals and the completeness score.
type Report struct {
	HasMerchant  bool    `json:"has_merchant"`
	HasTotal     bool    `json:"has_total"`
	HasDate      bool    `json:"has_date"`
	HasItems     bool    `json:"has_items"`
	OverallScore float32 `json:"overall_score"`
}

// Assess computes presence flags and the weighted completeness score for an
// extraction.
func Assess(r parser.Receipt) Report {
	rep := Report{
		HasMerchant: r.Merchant != "",
		HasTotal:    r.Total != nil,
		HasDate:     r.Date != "",
		HasItems:    len(r.Items) > 0,
	}
	if rep.HasMerchant {
		rep.OverallScore += WeightMerchant
	}
	if rep.HasTotal {
		rep.OverallScore += WeightTotal
	}
	if rep.HasDate {
		rep.OverallScore += WeightDate
	}
	if rep.HasItems {
		rep.OverallScore += WeightItems
	}
	return rep
}

// Combine folds parse completeness into the provider's native confidence.
// A provider that is sure of garbage still scores low: the provider term is
// scaled between 50% and 100% by completeness.
func Combine(providerConfidence, overallScore float32) float32 {
	c := providerConfidence * (0.5 + 0.5*overallScore)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// NeedsReview decides whether a human must verify the extraction. A receipt
// with no recoverable total is always flagged regardless of confidence.
func NeedsReview(confidence float32, rep Report, threshold float32) bool {
	if !rep.HasTotal {
		return true
	}
	return confidence < threshold
}

// TotalsMismatch reports whether the printed total disagrees with
// subtotal + tax + tip - discount beyond tolerance. It only fires when total,
// subtotal, tax, and tip are all present; a missing discount counts as zero.
func TotalsMismatch(r parser.Receipt) bool {
	if r.Total == nil || r.Subtotal == nil || r.Tax == nil || r.Tip == nil {
		return false
	}
	discount := 0.0
	if r.Discount != nil {
		discount = *r.Discount
	}
	expected := *r.Subtotal + *r.Tax + *r.Tip - discount
	return math.Abs(*r.Total-expected) > TotalsTolerance
}
