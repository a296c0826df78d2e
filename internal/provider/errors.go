package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a provider failure.
type Kind string

// Stable values (these exact strings appear in logs and provider_errors maps).
const (
	KindRateLimited  Kind = "RATE_LIMITED"  // quota or throttling; next provider may succeed
	KindUnavailable  Kind = "UNAVAILABLE"   // connectivity or server-side fault
	KindTimeout      Kind = "TIMEOUT"       // per-call deadline exceeded
	KindInvalidImage Kind = "INVALID_IMAGE" // the image itself is unusable; terminal for the chain
	KindAuthError    Kind = "AUTH_ERROR"    // bad or missing credentials
)

// Error is the uniform failure every adapter maps vendor faults onto.
type Error struct {
	Provider string
	Kind     Kind
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the chain should advance to the next provider.
// An unusable image fails everywhere, so InvalidImage stops the chain.
func (e *Error) Retryable() bool {
	return e.Kind != KindInvalidImage
}

// NewError builds a classified provider error.
func NewError(providerName string, kind Kind, message string, cause error) *Error {
	return &Error{Provider: providerName, Kind: kind, Message: message, Cause: cause}
}

// AsError unwraps err into *Error when possible.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ClassifyStatus maps an HTTP status code onto the failure taxonomy.
// 4xx codes that indicate a malformed or oversized payload are treated as
// InvalidImage; everything else server-side is Unavailable.
func ClassifyStatus(status int) Kind {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthError
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return KindInvalidImage
	case http.StatusRequestTimeout:
		return KindTimeout
	default:
		return KindUnavailable
	}
}

// ClassifyTransport maps a transport-level error (client.Do, SDK call) onto the
// taxonomy. Context expiry is a Timeout when the per-call deadline fired and the
// caller is still live; cancellation from above also surfaces as Timeout so the
// chain records the attempt before stopping.
func ClassifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUnavailable
}

// WrapHTTPStatus builds a classified error from a non-2xx response.
func WrapHTTPStatus(providerName string, status int, body string) *Error {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody] + "...(truncated)"
	}
	return NewError(providerName, ClassifyStatus(status),
		fmt.Sprintf("http status %d: %s", status, body), nil)
}

// WrapTransport builds a classified error from a transport failure.
func WrapTransport(providerName string, err error) *Error {
	kind := ClassifyTransport(err)
	msg := "request failed"
	if kind == KindTimeout {
		msg = "call deadline exceeded"
	}
	return NewError(providerName, kind, msg, err)
}
