package nats

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// errTransport marks failures of the request itself. Any other error came
// from a decoded worker reply, so the transport worked.
var errTransport = errors.New("nats transport")

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) || domain.IsKind(err, domain.ErrTemporary) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrNoResponders) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}
	if errors.Is(err, errTransport) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	// Unsupported, malformed, missing or invalid sources reported by a worker.
	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: false,
	}
}

// transportError reports a failed request as an unreadable source: the worker
// never produced the bytes.
func transportError(err error) error {
	return wrapTemporaryIfNeeded(fmt.Errorf("%w: %w", errTransport, err))
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyNATSError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapTemporary(domain.ErrUnreadableSource, "nats request", err)
	}
	return domain.WrapError(domain.ErrUnreadableSource, "nats request", err)
}

// requestOperation keys the breaker by source host so one failing site does
// not block the rest.
func requestOperation(ref string) string {
	u, err := url.Parse(ref)
	if err == nil && u.Host != "" {
		return "nats.request:" + strings.ToLower(u.Host)
	}
	return "nats.request:local"
}
