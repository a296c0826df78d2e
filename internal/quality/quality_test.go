package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/receiptwise/recognizer/internal/parser"
)

func f(v float64) *float64 { return &v }

func fullReceipt() parser.Receipt {
	return parser.Receipt{
		Merchant: "WALMART",
		Date:     "01/01/2024",
		Total:    f(14.02),
		Items:    []parser.LineItem{{Name: "BANANAS", Price: 4.99}},
	}
}

func TestAssess_AllFieldsPresent(t *testing.T) {
	rep := Assess(fullReceipt())

	assert.True(t, rep.HasMerchant)
	assert.True(t, rep.HasTotal)
	assert.True(t, rep.HasDate)
	assert.True(t, rep.HasItems)
	assert.InDelta(t, 1.0, rep.OverallScore, 0.001)
}

func TestAssess_NothingPresent(t *testing.T) {
	rep := Assess(parser.Receipt{})

	assert.False(t, rep.HasMerchant)
	assert.False(t, rep.HasTotal)
	assert.False(t, rep.HasDate)
	assert.False(t, rep.HasItems)
	assert.InDelta(t, 0.0, rep.OverallScore, 0.001)
}

func TestAssess_Weights(t *testing.T) {
	tests := []struct {
		name string
		rec  parser.Receipt
		want float32
	}{
		{"merchant only", parser.Receipt{Merchant: "SHOP"}, 0.30},
		{"total only", parser.Receipt{Total: f(1)}, 0.40},
		{"date only", parser.Receipt{Date: "01/01/2024"}, 0.15},
		{"items only", parser.Receipt{Items: []parser.LineItem{{Name: "X", Price: 1}}}, 0.15},
		{"merchant and total", parser.Receipt{Merchant: "SHOP", Total: f(1)}, 0.70},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Assess(tt.rec).OverallScore, 0.001)
		})
	}
}

func TestCombine(t *testing.T) {
	// Provider confidence is scaled between 50% and 100% by completeness.
	assert.InDelta(t, 0.8, Combine(0.8, 1.0), 0.001)
	assert.InDelta(t, 0.4, Combine(0.8, 0.0), 0.001)
	assert.InDelta(t, 0.0, Combine(0.0, 1.0), 0.001)
	assert.LessOrEqual(t, Combine(1.5, 1.0), float32(1.0))
}

func TestNeedsReview_MissingTotalAlwaysFlags(t *testing.T) {
	rep := Report{HasMerchant: true, HasDate: true, HasItems: true, HasTotal: false}
	assert.True(t, NeedsReview(0.99, rep, DefaultReviewThreshold))
}

func TestNeedsReview_ThresholdBoundaryIsInclusive(t *testing.T) {
	rep := Report{HasTotal: true}
	// Exactly at the threshold passes without review.
	assert.False(t, NeedsReview(0.5, rep, 0.5))
	assert.True(t, NeedsReview(0.4999, rep, 0.5))
	assert.False(t, NeedsReview(0.51, rep, 0.5))
}

func TestTotalsMismatch(t *testing.T) {
	base := parser.Receipt{
		Total:    f(14.02),
		Subtotal: f(12.98),
		Tax:      f(1.04),
		Tip:      f(0.00),
	}
	assert.False(t, TotalsMismatch(base))

	off := base
	off.Total = f(15.00)
	assert.True(t, TotalsMismatch(off))

	withDiscount := base
	withDiscount.Discount = f(1.00)
	withDiscount.Total = f(13.02)
	assert.False(t, TotalsMismatch(withDiscount))

	// Within tolerance is not a mismatch.
	near := base
	near.Total = f(14.025)
	assert.False(t, TotalsMismatch(near))

	// All four components must be present to judge.
	partial := parser.Receipt{Total: f(10), Subtotal: f(5)}
	assert.False(t, TotalsMismatch(partial))
}
