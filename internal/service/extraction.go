package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/docextract/docextract/internal/llm"
	"github.com/docextract/docextract/internal/metrics"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/ocr"
	"github.com/docextract/docextract/internal/repository"
)

// Converter turns document bytes into markdown.
type Converter interface {
	Convert(ctx context.Context, data []byte, ext string) (string, error)
}

// Extractor fills a project record from markdown.
type Extractor interface {
	Plan(p *model.Project) (*llm.Plan, error)
	Extract(ctx context.Context, plan *llm.Plan, markdown string) (json.RawMessage, error)
}

// ProjectGetter loads projects.
type ProjectGetter interface {
	Get(ctx context.Context, id string) (*model.Project, error)
}

// CreditStore meters provider-backed requests.
type CreditStore interface {
	ConsumeCredit(ctx context.Context, userID string) (int64, error)
	RefundCredit(ctx context.Context, userID string) error
}

// Upload is one uploaded document.
type Upload struct {
	Filename string
	Data     []byte
}

// ExtractionService runs the convert and extract pipelines.
type ExtractionService struct {
	converter Converter
	extractor Extractor
	projects  ProjectGetter
	credits   CreditStore
	metrics   metrics.Recorder
	log       *slog.Logger
}

// NewExtractionService creates an ExtractionService. A nil credits store
// disables metering.
func NewExtractionService(converter Converter, extractor Extractor, projects ProjectGetter, credits CreditStore, recorder metrics.Recorder, logger *slog.Logger) *ExtractionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		converter: converter,
		extractor: extractor,
		projects:  projects,
		credits:   credits,
		metrics:   recorder,
		log:       logger,
	}
}

// Markdown converts the upload to markdown. userID is charged one credit
// when metering is enabled.
func (s *ExtractionService) Markdown(ctx context.Context, userID string, up Upload) (text string, err error) {
	release, err := s.charge(ctx, userID)
	if err != nil {
		return "", err
	}
	defer func() { release(err) }()

	text, err = s.converter.Convert(ctx, up.Data, ocr.DocTypeFromFilename(up.Filename))
	if err != nil {
		return "", upstream(err)
	}
	return text, nil
}

// Extract loads the project, builds its record schema, converts the upload
// and asks the model to fill the record. Project and schema errors are
// reported before any provider call.
func (s *ExtractionService) Extract(ctx context.Context, userID, projectID string, up Upload) (out json.RawMessage, err error) {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	plan, err := s.extractor.Plan(project)
	if err != nil {
		return nil, err
	}

	release, err := s.charge(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer func() { release(err) }()

	markdown, err := s.converter.Convert(ctx, up.Data, ocr.DocTypeFromFilename(up.Filename))
	if err != nil {
		return nil, upstream(err)
	}

	out, err = s.extractor.Extract(ctx, plan, markdown)
	if err != nil {
		return nil, upstream(err)
	}

	s.log.Info("extraction_completed",
		"project_id", projectID,
		"markdown_len", len(markdown),
		"result_bytes", len(out),
	)
	return out, nil
}

// charge consumes one credit and returns a func that refunds it when the
// request ends in error.
func (s *ExtractionService) charge(ctx context.Context, userID string) (func(error), error) {
	noop := func(error) {}
	if s.credits == nil || userID == "" {
		return noop, nil
	}

	remaining, err := s.credits.ConsumeCredit(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCreditsExhausted) {
			s.metrics.IncCredit(metrics.CreditExhausted)
			return noop, ErrNoCredits
		}
		return noop, fmt.Errorf("consume credit: %w", err)
	}
	s.metrics.IncCredit(metrics.CreditConsumed)
	s.log.Debug("credit consumed", "user_id", userID, "remaining", remaining)

	return func(reqErr error) {
		if reqErr == nil {
			return
		}
		// The request context may already be cancelled.
		if err := s.credits.RefundCredit(context.WithoutCancel(ctx), userID); err != nil {
			s.log.Error("credit refund failed", "user_id", userID, "error", err)
			return
		}
		s.metrics.IncCredit(metrics.CreditRefunded)
	}, nil
}
