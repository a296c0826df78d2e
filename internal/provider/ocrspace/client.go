package ocrspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/receiptwise/recognizer/constants"
	"github.com/receiptwise/recognizer/internal/provider"
)

// Config for the OCR.space client. See https://ocr.space/OCRAPI.
type Config struct {
	APIKey   string
	BaseURL  string // default https://api.ocr.space
	Language string // default "eng"
	Engine   string // OCREngine parameter; default "2"
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.ocr.space"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Engine == "" {
		cfg.Engine = "2"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{}, logger: logger}
}

func (c *Client) Name() string {
	return string(constants.ProviderOCRSpace)
}

// Wire shapes for the parse endpoint.
type parseResponse struct {
	ParsedResults         []parsedResult `json:"ParsedResults"`
	OCRExitCode           int            `json:"OCRExitCode"`
	IsErroredOnProcessing bool           `json:"IsErroredOnProcessing"`
	ErrorMessage          stringList     `json:"ErrorMessage"`
	ErrorDetails          string         `json:"ErrorDetails"`
}

type parsedResult struct {
	FileParseExitCode int    `json:"FileParseExitCode"`
	ParsedText        string `json:"ParsedText"`
	ErrorMessage      string `json:"ErrorMessage"`
}

// stringList tolerates the API returning ErrorMessage as either a string or
// an array of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = stringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// Recognize posts the image as a base64 data URL and joins the parsed pages.
// OCR.space returns no numeric confidence, so the score is the receipt-artifact
// heuristic over the recognized text.
func (c *Client) Recognize(ctx context.Context, image []byte) (provider.Response, error) {
	start := time.Now()

	dataURL := "data:" + http.DetectContentType(image) + ";base64," +
		base64.StdEncoding.EncodeToString(image)
	form := url.Values{
		"base64Image":       {dataURL},
		"language":          {c.cfg.Language},
		"OCREngine":         {c.cfg.Engine},
		"isOverlayRequired": {"false"},
		"scale":             {"true"},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/parse/image"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return provider.Response{}, provider.WrapTransport(c.Name(), err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("ocrspace response body close error", "error", cerr)
		}
	}()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return provider.Response{}, provider.WrapHTTPStatus(c.Name(), resp.StatusCode, string(raw))
	}

	var pr parseResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "decode response", err)
	}
	if pr.IsErroredOnProcessing {
		return provider.Response{}, c.classifyInBand(pr)
	}
	if len(pr.ParsedResults) == 0 {
		return provider.Response{}, provider.NewError(c.Name(), provider.KindUnavailable, "no parsed results", nil)
	}

	var pages []string
	for _, res := range pr.ParsedResults {
		if res.ParsedText != "" {
			pages = append(pages, res.ParsedText)
		}
	}
	text := strings.Join(pages, "\n")

	c.logger.Debug("ocrspace.parse.ok",
		"pages", len(pr.ParsedResults), "text_bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return provider.Response{
		Text:       text,
		Confidence: heuristicConfidence(text),
		Latency:    time.Since(start),
	}, nil
}

// classifyInBand maps OCR.space's in-band processing errors onto the taxonomy.
// Messages naming the file or image mean the upload itself is unusable.
func (c *Client) classifyInBand(pr parseResponse) *provider.Error {
	msg := strings.Join(pr.ErrorMessage, "; ")
	if msg == "" {
		msg = pr.ErrorDetails
	}
	if msg == "" {
		msg = "processing error"
	}
	lower := strings.ToLower(msg)
	kind := provider.KindUnavailable
	for _, marker := range []string{"not a valid image", "file type", "corrupt", "unable to recognize the file", "file size"} {
		if strings.Contains(lower, marker) {
			kind = provider.KindInvalidImage
			break
		}
	}
	return provider.NewError(c.Name(), kind, msg, nil)
}
