package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/provider"
)

// Config for the OpenAI vision client.
type Config struct {
	APIKey      string
	BaseURL     string  // default https://api.openai.com/v1
	Model       string  // e.g., "gpt-4o-mini"
	Temperature float32 // 0..2
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{}, logger: logger}
}

func (c *Client) Name() string {
	return string(constants.ProviderOpenAI)
}

const transcribePrompt = "Read every line of text in this receipt image, top to bottom. " +
	"Return ONLY JSON matching the provided schema: 'text' is the full transcription with " +
	"original line breaks preserved, 'confidence' is your 0..1 estimate of how completely " +
	"and accurately the image was read. Transcribe exactly what is printed; do not " +
	"summarize, translate, or invent lines."

// Recognize sends the image through chat/completions and validates the
// structured output before trusting it.
func (c *Client) Recognize(ctx context.Context, image []byte) (provider.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	dataURL := "data:" + http.DetectContentType(image) + ";base64," +
		base64.StdEncoding.EncodeToString(image)

	schema := BuildTranscriptionSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": "You are a receipt transcriber. Return ONLY JSON that matches the provided schema."},
			{"role": "user", "content": []map[string]any{
				{"type": "text", "text": transcribePrompt + "\n\nJSON Schema:\n" + mustJSON(schema)},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
			}},
		},
	}

	c.logger.Info("openai.recognize.start",
		"req_id", rid, "model", c.cfg.Model, "image_bytes", len(image),
	)

	raw, err := c.post(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", body)
	if err != nil {
		c.logger.Error("openai.recognize.http_error",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds(),
		)
		return provider.Response{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "decode response", err)
	}
	if len(cc.Choices) == 0 {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "no choices in response", nil)
	}

	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if err := ValidateJSONAgainstSchema(schema, []byte(content)); err != nil {
		c.logger.Error("openai.recognize.schema_validation_failed",
			"req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds(),
		)
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "schema validation failed", err)
	}

	var out struct {
		Text       string  `json:"text"`
		Confidence float32 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "unmarshal transcription", err)
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}

	c.logger.Info("openai.recognize.ok",
		"req_id", rid, "text_bytes", len(out.Text), "confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return provider.Response{
		Text:       out.Text,
		Confidence: out.Confidence,
		Latency:    time.Since(start),
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, provider.NewError(c.Name(), provider.KindUnavailable, "marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, provider.NewError(c.Name(), provider.KindUnavailable, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, provider.WrapTransport(c.Name(), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("openai response body close error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.WrapHTTPStatus(c.Name(), resp.StatusCode, string(raw))
	}
	return raw, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
