package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusUnauthorized, KindAuthError},
		{http.StatusForbidden, KindAuthError},
		{http.StatusBadRequest, KindInvalidImage},
		{http.StatusRequestEntityTooLarge, KindInvalidImage},
		{http.StatusUnsupportedMediaType, KindInvalidImage},
		{http.StatusUnprocessableEntity, KindInvalidImage},
		{http.StatusRequestTimeout, KindTimeout},
		{http.StatusInternalServerError, KindUnavailable},
		{http.StatusBadGateway, KindUnavailable},
		{http.StatusServiceUnavailable, KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatus(tt.status))
		})
	}
}

func TestClassifyTransport(t *testing.T) {
	assert.Equal(t, KindTimeout, ClassifyTransport(context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, ClassifyTransport(context.Canceled))
	assert.Equal(t, KindTimeout, ClassifyTransport(fmt.Errorf("do: %w", context.DeadlineExceeded)))
	assert.Equal(t, KindUnavailable, ClassifyTransport(errors.New("connection refused")))
}

func TestRetryable(t *testing.T) {
	for _, kind := range []Kind{KindRateLimited, KindUnavailable, KindTimeout, KindAuthError} {
		assert.True(t, NewError("p", kind, "m", nil).Retryable(), string(kind))
	}
	assert.False(t, NewError("p", KindInvalidImage, "m", nil).Retryable())
}

func TestErrorUnwrapAndAs(t *testing.T) {
	cause := errors.New("boom")
	err := NewError("ocrspace", KindUnavailable, "request failed", cause)

	wrapped := fmt.Errorf("chain: %w", err)
	pe, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "ocrspace", pe.Provider)
	assert.Equal(t, KindUnavailable, pe.Kind)
	assert.True(t, errors.Is(wrapped, cause))
	assert.Contains(t, err.Error(), "ocrspace")
	assert.Contains(t, err.Error(), "UNAVAILABLE")
}

func TestWrapHTTPStatusTruncatesBody(t *testing.T) {
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}
	err := WrapHTTPStatus("p", http.StatusInternalServerError, string(long))
	assert.Less(t, len(err.Message), 600)
	assert.Contains(t, err.Message, "...(truncated)")
}
