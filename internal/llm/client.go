package llm

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

// Response format modes.
const (
	FormatJSONObject = "json_object"
	FormatJSONSchema = "json_schema"
)

// ErrProvider marks a failed or unusable completion.
var ErrProvider = errors.New("llm provider error")

const maxErrorBody = 2048

// Config configures Client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	ResponseFormat string
}

// Completion is one structured completion request.
type Completion struct {
	System string
	User   string
	Schema RecordSchema
}

// Client talks to an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client. cfg.Timeout bounds every completion call,
// whatever timeout httpClient carries.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ResponseFormat == "" {
		cfg.ResponseFormat = FormatJSONObject
	}
	return &Client{cfg: cfg, httpClient: httpClient, log: logger}
}

// CompleteJSON asks the model for a JSON object shaped by c.Schema and
// returns the message content unchanged.
func (c *Client) CompleteJSON(ctx context.Context, comp Completion) (json.RawMessage, error) {
	rid := uuid.New().String()
	start := time.Now()

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"format", c.cfg.ResponseFormat,
		"text_len", len(comp.User),
		"fields", len(comp.Schema.Properties()),
	)

	body := c.requestBody(comp)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return nil, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid)
		return nil, fmt.Errorf("%w: no choices in response", ErrProvider)
	}

	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))
	if !json.Valid(content) {
		c.log.Error("llm.extract.invalid_json",
			"req_id", rid, "content_len", len(content),
		)
		return nil, fmt.Errorf("%w: content is not valid JSON", ErrProvider)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return json.RawMessage(content), nil
}

func (c *Client) requestBody(comp Completion) map[string]any {
	messages := []map[string]any{
		{"role": "system", "content": comp.System},
	}

	var format map[string]any
	switch c.cfg.ResponseFormat {
	case FormatJSONSchema:
		format = map[string]any{
			"type": FormatJSONSchema,
			"json_schema": map[string]any{
				"name":   RecordName,
				"strict": true,
				"schema": comp.Schema,
			},
		}
	default:
		format = map[string]any{"type": FormatJSONObject}
		messages = append(messages, map[string]any{
			"role": "system", "content": "Respond with a single JSON object matching this JSON Schema:\n" + mustJSON(comp.Schema),
		})
	}
	messages = append(messages, map[string]any{"role": "user", "content": comp.User})

	return map[string]any{
		"model":           c.cfg.Model,
		"temperature":     0,
		"response_format": format,
		"messages":        messages,
	}
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
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

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("llm response body close error", "error", err)
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

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
