package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrProvider marks a failed or malformed provider response.
var ErrProvider = errors.New("ocr provider error")

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 2048

// MistralConfig configures MistralClient.
type MistralConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// MistralClient calls the Mistral OCR endpoint.
type MistralClient struct {
	cfg        MistralConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewMistralClient creates a client. cfg.Timeout bounds every Process call,
// whatever timeout httpClient carries.
func NewMistralClient(cfg MistralConfig, httpClient *http.Client, logger *slog.Logger) *MistralClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MistralClient{cfg: cfg, httpClient: httpClient, log: logger}
}

type ocrRequest struct {
	Model    string         `json:"model"`
	Document map[string]any `json:"document"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// Process implements Provider.
func (c *MistralClient) Process(ctx context.Context, doc Document) ([]Page, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.log.Info("ocr.process.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"resource", doc.Kind,
		"uri_len", len(doc.DataURI),
	)

	body := ocrRequest{
		Model: c.cfg.Model,
		Document: map[string]any{
			"type":   doc.Kind,
			doc.Kind: doc.DataURI,
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/ocr"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("ocr.process.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var resp ocrResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.log.Error("ocr.process.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}

	pages := make([]Page, len(resp.Pages))
	for i, p := range resp.Pages {
		pages[i] = Page{Index: p.Index, Markdown: p.Markdown}
	}

	c.log.Info("ocr.process.ok",
		"req_id", rid,
		"pages", len(pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func (c *MistralClient) post(ctx context.Context, url string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("ocr response body close error", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, string(raw))
	}
	return raw, nil
}
