package provider

import (
	"context"
	"time"
)

// Response is the common recognition result from any provider.
type Response struct {
	Text       string        // raw recognized text, unnormalized
	Confidence float32       // provider-native confidence normalized to 0..1
	Latency    time.Duration // single-call wall clock
}

// Provider is the interface for text-recognition backends.
//
// Recognize makes exactly one outbound attempt; retry and fallback are the
// orchestrator's job. The call is bounded by ctx; implementations must abandon
// work promptly on cancellation. Failures are reported as *Error so the
// orchestrator can dispatch on Kind.
type Provider interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (Response, error)
}
