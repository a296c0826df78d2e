package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/recognizer/internal/provider"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{APIKey: "sk-test", BaseURL: server.URL, Model: "gpt-4o-mini"}, nil)
}

func chatReply(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestRecognize_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		chatReply(t, w, `{"text": "WALMART\nTOTAL 14.02", "confidence": 0.92}`)
	})

	res, err := client.Recognize(context.Background(), []byte("fake-image"))

	require.NoError(t, err)
	assert.Equal(t, "WALMART\nTOTAL 14.02", res.Text)
	assert.InDelta(t, 0.92, res.Confidence, 0.001)
}

func TestRecognize_StripsMarkdownFences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		chatReply(t, w, "```json\n{\"text\": \"SHOP\", \"confidence\": 0.5}\n```")
	})

	res, err := client.Recognize(context.Background(), []byte("img"))

	require.NoError(t, err)
	assert.Equal(t, "SHOP", res.Text)
}

func TestRecognize_SchemaViolationRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// confidence out of range and required "text" missing
		chatReply(t, w, `{"confidence": 7}`)
	})

	_, err := client.Recognize(context.Background(), []byte("img"))

	pe, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.KindUnavailable, pe.Kind)
	assert.Contains(t, pe.Message, "schema")
}

func TestRecognize_RateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Recognize(context.Background(), []byte("img"))

	pe, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.KindRateLimited, pe.Kind)
	assert.Equal(t, "openai", pe.Provider)
}

func TestRecognize_AuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Recognize(context.Background(), []byte("img"))

	pe, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.KindAuthError, pe.Kind)
}

func TestRecognize_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := client.Recognize(context.Background(), []byte("img"))

	pe, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.KindUnavailable, pe.Kind)
}

func TestRecognize_ConfidenceClamped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		chatReply(t, w, `{"text": "SHOP", "confidence": 1.0}`)
	})

	res, err := client.Recognize(context.Background(), []byte("img"))

	require.NoError(t, err)
	assert.LessOrEqual(t, res.Confidence, float32(1.0))
	assert.GreaterOrEqual(t, res.Confidence, float32(0.0))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildTranscriptionSchema()

	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"text":"x","confidence":0.4}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"text":"x"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"text":"x","confidence":2}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"text":"x","confidence":0.4,"extra":1}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`not json`)))
}
