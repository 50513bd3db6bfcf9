package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Document is a base64 data URI tagged with its resource kind.
type Document struct {
	Kind    string
	DataURI string
}

// Page is one page of provider output.
type Page struct {
	Index    int
	Markdown string
}

// Provider performs the remote OCR call.
type Provider interface {
	Process(ctx context.Context, doc Document) ([]Page, error)
}

// Recorder observes OCR calls.
type Recorder interface {
	RecordOCR(docType string, pages int, d time.Duration, err error)
}

// Converter turns raw document bytes into markdown.
type Converter struct {
	provider Provider
	recorder Recorder
	log      *slog.Logger
}

// NewConverter creates a Converter. recorder may be nil.
func NewConverter(provider Provider, recorder Recorder, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{provider: provider, recorder: recorder, log: logger}
}

// Convert sends data to the provider and returns the page texts joined with
// a newline, in page order. Unknown extensions fail before any remote call.
func (c *Converter) Convert(ctx context.Context, data []byte, ext string) (string, error) {
	kind, mime, err := resourceFor(ext)
	if err != nil {
		return "", err
	}

	doc := Document{
		Kind:    kind,
		DataURI: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	}

	start := time.Now()
	pages, err := c.provider.Process(ctx, doc)
	if c.recorder != nil {
		c.recorder.RecordOCR(ext, len(pages), time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("ocr %s: %w", ext, err)
	}

	c.log.Debug("ocr.convert.ok",
		"doc_type", ext,
		"bytes", len(data),
		"pages", len(pages),
	)
	return JoinPages(pages), nil
}

// JoinPages orders pages by index and joins their markdown with "\n".
func JoinPages(pages []Page) string {
	sorted := make([]Page, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = p.Markdown
	}
	return strings.Join(parts, "\n")
}
