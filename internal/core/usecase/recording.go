package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

// RecordingNormalizer writes one ledger entry per call. Ledger failures are
// logged and never change the normalize result.
type RecordingNormalizer struct {
	next   ports.SourceNormalizer
	ledger ports.RunLedger
	logger *slog.Logger
	now    func() time.Time
}

func NewRecordingNormalizer(next ports.SourceNormalizer, ledger ports.RunLedger, logger *slog.Logger) *RecordingNormalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordingNormalizer{
		next:   next,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

func (n *RecordingNormalizer) Normalize(ctx context.Context, ref string) (domain.NormalizedDocument, error) {
	start := n.now()
	doc, err := n.next.Normalize(ctx, ref)

	run := domain.NormalizeRun{
		ID:        uuid.NewString(),
		Source:    ref,
		Format:    doc.Format,
		Chars:     doc.Chars,
		Truncated: doc.Truncated,
		Status:    domain.RunSucceeded,
		Duration:  n.now().Sub(start),
		CreatedAt: start.UTC(),
	}
	if err != nil {
		run.Status = domain.RunFailed
		run.ErrorKind = domain.KindOf(err)
		run.ErrorMessage = err.Error()
	}

	// Record even when the caller has gone away.
	if recErr := n.ledger.Record(context.WithoutCancel(ctx), run); recErr != nil {
		n.logger.Error("run_record_failed", "source", ref, "error", recErr)
	}
	return doc, err
}
