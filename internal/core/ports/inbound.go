package ports

import (
	"context"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

// SourceNormalizer turns one source reference into bounded text.
type SourceNormalizer interface {
	Normalize(ctx context.Context, ref string) (domain.NormalizedDocument, error)
}

// SourceClassifier decides the format of a reference without reading its contents.
type SourceClassifier interface {
	Classify(ref string) (domain.Source, error)
}

// ContentBuilder normalizes several references and concatenates them in order.
type ContentBuilder interface {
	Build(ctx context.Context, refs []string) (*domain.Content, error)
}

// SchemaLoader fetches the datasheets-for-datasets schema text.
type SchemaLoader interface {
	Load(ctx context.Context, url string) (string, error)
}
