package ports

import (
	"context"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
)

// LocalFiles answers existence checks and reads local sources.
type LocalFiles interface {
	Exists(path string) bool
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// Fetcher retrieves a remote resource. Non-2xx responses are errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Resource, error)
}

// TextExtractor returns the full, untruncated text of a classified source.
type TextExtractor interface {
	Extract(ctx context.Context, src domain.Source) (string, error)
}

// Offloader runs blocking work on an isolated worker.
type Offloader interface {
	Run(ctx context.Context, fn func(context.Context) (string, error)) (string, error)
}

// RunLedger persists and lists the outcomes of normalize requests.
type RunLedger interface {
	Record(ctx context.Context, run domain.NormalizeRun) error
	ListRecent(ctx context.Context, limit int) ([]domain.NormalizeRun, error)
}
