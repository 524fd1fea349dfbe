package resilience

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

// RetryingNormalizer is the caller-side retry policy around a SourceNormalizer.
// Only temporary unreadable-source failures are retried; the breaker is keyed
// by remote host.
type RetryingNormalizer struct {
	next     ports.SourceNormalizer
	executor *Executor
}

func NewRetryingNormalizer(next ports.SourceNormalizer, executor *Executor) *RetryingNormalizer {
	return &RetryingNormalizer{
		next:     next,
		executor: executor,
	}
}

func (n *RetryingNormalizer) Normalize(ctx context.Context, ref string) (domain.NormalizedDocument, error) {
	doc, err := Do(ctx, n.executor, operationFor(ref), func(callCtx context.Context) (domain.NormalizedDocument, error) {
		return n.next.Normalize(callCtx, ref)
	}, ClassifyNormalizeError)
	if err != nil && IsCircuitOpen(err) {
		return domain.NormalizedDocument{}, domain.WrapTemporary(domain.ErrUnreadableSource, "normalize "+ref, err)
	}
	return doc, err
}

func operationFor(ref string) string {
	u, err := url.Parse(ref)
	if err == nil && u.Host != "" {
		return "normalize:" + strings.ToLower(u.Host)
	}
	return "normalize:local"
}

// ClassifyNormalizeError maps pipeline error kinds to retry decisions.
func ClassifyNormalizeError(err error) ErrorClassification {
	switch {
	case err == nil:
		return ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrUnsupportedFormat), domain.IsKind(err, domain.ErrMalformedData):
		return ErrorClassification{Retryable: false, RecordFailure: false}
	case domain.IsKind(err, domain.ErrTemporary):
		return ErrorClassification{Retryable: true, RecordFailure: true}
	case domain.IsKind(err, domain.ErrUnreadableSource):
		// The host answered; the source itself is missing or unusable.
		return ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
}
