package usecase

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

const contentSeparator = "\n\n"

// ContentBuilderUseCase gathers the text of every source describing one dataset.
type ContentBuilderUseCase struct {
	normalizer  ports.SourceNormalizer
	parallelism int
}

func NewContentBuilderUseCase(normalizer ports.SourceNormalizer, parallelism int) *ContentBuilderUseCase {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &ContentBuilderUseCase{
		normalizer:  normalizer,
		parallelism: parallelism,
	}
}

// Build normalizes refs concurrently and joins the texts in input order.
// The first failure cancels the remaining work and is returned as is.
func (uc *ContentBuilderUseCase) Build(ctx context.Context, refs []string) (*domain.Content, error) {
	if len(refs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build content", errors.New("at least one source is required"))
	}

	docs := make([]domain.SourcedDocument, len(refs))
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(uc.parallelism)
	for i, ref := range refs {
		g.Go(func() error {
			doc, err := uc.normalizer.Normalize(groupCtx, ref)
			if err != nil {
				return err
			}
			docs[i] = domain.SourcedDocument{Source: ref, NormalizedDocument: doc}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Text)
	}
	return &domain.Content{
		Text:      strings.Join(parts, contentSeparator),
		Documents: docs,
	}, nil
}
