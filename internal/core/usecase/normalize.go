package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

// Extractors holds one extractor per format kind.
type Extractors struct {
	PDF       ports.TextExtractor
	HTML      ports.TextExtractor
	JSON      ports.TextExtractor
	PlainText ports.TextExtractor
	WebPage   ports.TextExtractor
}

type NormalizerConfig struct {
	// MaxChars is the size ceiling of a normalized document (default 50,000).
	MaxChars int
	Logger   *slog.Logger
}

// NormalizeUseCase runs classify -> extract -> truncate for a single reference.
// It keeps no state between calls and is safe for concurrent use.
type NormalizeUseCase struct {
	classifier ports.SourceClassifier
	extractors Extractors
	offload    ports.Offloader
	maxChars   int
	logger     *slog.Logger
}

func NewNormalizeUseCase(
	classifier ports.SourceClassifier,
	extractors Extractors,
	offload ports.Offloader,
	cfg NormalizerConfig,
) *NormalizeUseCase {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if offload == nil {
		offload = goroutineOffloader{}
	}
	return &NormalizeUseCase{
		classifier: classifier,
		extractors: extractors,
		offload:    offload,
		maxChars:   cfg.MaxChars,
		logger:     cfg.Logger,
	}
}

func (uc *NormalizeUseCase) Normalize(ctx context.Context, ref string) (domain.NormalizedDocument, error) {
	start := time.Now()

	src, err := uc.classifier.Classify(ref)
	if err != nil {
		uc.logFailure(ref, "", err)
		return domain.NormalizedDocument{}, err
	}

	extractor, err := uc.extractorFor(src)
	if err != nil {
		uc.logFailure(ref, src.Format, err)
		return domain.NormalizedDocument{}, err
	}

	raw, err := uc.offload.Run(ctx, func(runCtx context.Context) (string, error) {
		return extractor.Extract(runCtx, src)
	})
	if err != nil {
		if domain.KindOf(err) == "internal" {
			// Cancellation or pool failure: the bytes were never obtained.
			err = domain.WrapError(domain.ErrUnreadableSource, "extract "+string(src.Format), err)
		}
		uc.logFailure(ref, src.Format, err)
		return domain.NormalizedDocument{}, err
	}

	text, truncated := truncateChars(raw, uc.maxChars)
	doc := domain.NormalizedDocument{
		Text:      text,
		Format:    src.Format,
		Chars:     utf8.RuneCountInString(text),
		Truncated: truncated,
	}
	uc.logger.Debug("normalize_done",
		"source", ref,
		"format", string(src.Format),
		"location", string(src.Location),
		"chars", doc.Chars,
		"truncated", truncated,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return doc, nil
}

func (uc *NormalizeUseCase) extractorFor(src domain.Source) (ports.TextExtractor, error) {
	var extractor ports.TextExtractor
	switch src.Format {
	case domain.FormatPDF:
		extractor = uc.extractors.PDF
	case domain.FormatHTML:
		extractor = uc.extractors.HTML
	case domain.FormatJSON:
		extractor = uc.extractors.JSON
	case domain.FormatPlainText:
		extractor = uc.extractors.PlainText
	case domain.FormatWebPage:
		extractor = uc.extractors.WebPage
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "dispatch extractor", fmt.Errorf("unknown format %q", src.Format))
	}
	if extractor == nil {
		return nil, domain.WrapError(domain.ErrUnsupportedFormat, "dispatch extractor", fmt.Errorf("no extractor configured for %s", src.Format))
	}
	return extractor, nil
}

func (uc *NormalizeUseCase) logFailure(ref string, format domain.FormatKind, err error) {
	uc.logger.Warn("normalize_failed",
		"source", ref,
		"format", string(format),
		"kind", domain.KindOf(err),
		"error", err,
	)
}

// goroutineOffloader runs each job on its own goroutine and stops waiting
// when the context is done.
type goroutineOffloader struct{}

func (goroutineOffloader) Run(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := fn(ctx)
		done <- result{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.text, res.err
	}
}
