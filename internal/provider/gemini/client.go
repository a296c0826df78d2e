package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/provider"
)

// Config for the Gemini vision client.
type Config struct {
	APIKey string
	Model  string // default "gemini-1.5-flash"
}

type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

const transcribePrompt = `Read every line of text in this receipt image, top to bottom.
Respond with ONLY a JSON object, no markdown, shaped as:
{"text": "<full transcription with original line breaks>", "confidence": <0..1 estimate of read accuracy>}
Transcribe exactly what is printed; do not summarize, translate, or invent lines.`

// NewClient dials the Gemini API. The client holds a connection; call Close
// when done.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Client{
		client: client,
		model:  client.GenerativeModel(cfg.Model),
		logger: logger,
	}, nil
}

func (c *Client) Name() string {
	return string(constants.ProviderGemini)
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Recognize sends the image inline and parses the model's JSON reply.
func (c *Client) Recognize(ctx context.Context, image []byte) (provider.Response, error) {
	start := time.Now()

	parts := []genai.Part{
		genai.ImageData(imageFormat(image), image),
		genai.Text(transcribePrompt),
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return provider.Response{}, c.classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "no response candidates", nil)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	text := strings.TrimSpace(sb.String())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out struct {
		Text       string  `json:"text"`
		Confidence float32 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "unmarshal transcription", err)
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}

	c.logger.Debug("gemini.recognize.ok",
		"text_bytes", len(out.Text), "confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return provider.Response{
		Text:       out.Text,
		Confidence: out.Confidence,
		Latency:    time.Since(start),
	}, nil
}

// classify maps SDK failures onto the taxonomy; googleapi errors carry the
// HTTP status the API responded with.
func (c *Client) classify(err error) *provider.Error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		pe := provider.WrapHTTPStatus(c.Name(), gerr.Code, gerr.Message)
		pe.Cause = err
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return provider.WrapTransport(c.Name(), err)
	}
	return provider.NewError(c.Name(), provider.KindUnavailable, "generate content failed", err)
}

// imageFormat returns the suffix genai.ImageData expects ("png", "jpeg").
func imageFormat(image []byte) string {
	mt := http.DetectContentType(image)
	if f, ok := strings.CutPrefix(mt, "image/"); ok {
		return f
	}
	return "png"
}
