package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/resilience"
)

const queueGroup = "workers"

// NormalizeRequest is the body of a normalize request message.
type NormalizeRequest struct {
	Source string `json:"source"`
}

// NormalizeReply is the body of the reply. Kind and Error are set on failure.
type NormalizeReply struct {
	Source    string `json:"source"`
	Format    string `json:"format,omitempty"`
	Text      string `json:"text,omitempty"`
	Chars     int    `json:"chars"`
	Truncated bool   `json:"truncated"`
	Kind      string `json:"kind,omitempty"`
	Error     string `json:"error,omitempty"`
	Temporary bool   `json:"temporary,omitempty"`
}

type Queue struct {
	conn             *nats.Conn
	subject          string
	requestTimeout   time.Duration
	serveConcurrency int
	executor         *resilience.Executor
	logger           *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	RequestTimeout       time.Duration
	// ServeConcurrency bounds the requests ServeNormalize handles at once.
	ServeConcurrency     int
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	requestTimeout := options.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Minute
	}
	serveConcurrency := options.ServeConcurrency
	if serveConcurrency <= 0 {
		serveConcurrency = 1
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("d4d-ingest"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:             conn,
		subject:          subject,
		requestTimeout:   requestTimeout,
		serveConcurrency: serveConcurrency,
		executor:         options.ResilienceExecutor,
		logger:           logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Normalize sends ref to a worker and waits for its reply, so the queue can
// stand in for a local normalizer.
func (q *Queue) Normalize(ctx context.Context, ref string) (domain.NormalizedDocument, error) {
	payload, err := json.Marshal(NormalizeRequest{Source: ref})
	if err != nil {
		return domain.NormalizedDocument{}, fmt.Errorf("marshal normalize request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.requestTimeout)
		defer cancel()
	}

	var doc domain.NormalizedDocument
	call := func(callCtx context.Context) error {
		msg, err := q.conn.RequestWithContext(callCtx, q.subject, payload)
		if err != nil {
			return transportError(err)
		}
		doc, err = decodeReplyData(msg.Data)
		return err
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, requestOperation(ref), call, classifyNATSError)
		if resilience.IsCircuitOpen(err) {
			err = wrapTemporaryIfNeeded(err)
		}
	} else {
		err = call(ctx)
	}
	if err != nil {
		return domain.NormalizedDocument{}, err
	}
	return doc, nil
}

type NormalizeHandler func(context.Context, string) (domain.NormalizedDocument, error)

// ServeNormalize answers normalize requests until ctx is done, running up to
// the configured serve concurrency of them at once.
func (q *Queue) ServeNormalize(ctx context.Context, handler NormalizeHandler) error {
	inflight := newDispatcher(q.serveConcurrency)
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		inflight.Go(ctx, func() {
			q.handleNormalize(ctx, msg, handler)
		})
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	inflight.Wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handleNormalize(ctx context.Context, msg *nats.Msg, handler NormalizeHandler) {
	var req NormalizeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		q.respond(msg, NormalizeReply{
			Kind:  domain.KindOf(domain.ErrInvalidInput),
			Error: fmt.Sprintf("decode normalize request: %v", err),
		})
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	doc, err := handler(handlerCtx, req.Source)
	q.respond(msg, encodeReply(req.Source, doc, err))
}

func (q *Queue) respond(msg *nats.Msg, reply NormalizeReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		q.logger.Error("nats_reply_marshal_failed", "source", reply.Source, "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		q.logger.Error("nats_reply_failed", "source", reply.Source, "error", err)
	}
}

func encodeReply(source string, doc domain.NormalizedDocument, err error) NormalizeReply {
	if err != nil {
		return NormalizeReply{
			Source:    source,
			Kind:      domain.KindOf(err),
			Error:     err.Error(),
			Temporary: domain.IsKind(err, domain.ErrTemporary),
		}
	}
	return NormalizeReply{
		Source:    source,
		Format:    string(doc.Format),
		Text:      doc.Text,
		Chars:     doc.Chars,
		Truncated: doc.Truncated,
	}
}

func decodeReplyData(data []byte) (domain.NormalizedDocument, error) {
	var reply NormalizeReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return domain.NormalizedDocument{}, fmt.Errorf("%w: decode normalize reply: %w", errTransport, err)
	}
	return decodeReply(reply)
}

func decodeReply(reply NormalizeReply) (domain.NormalizedDocument, error) {
	if reply.Kind != "" || reply.Error != "" {
		cause := errors.New(reply.Error)
		if kind, ok := domain.KindFromLabel(reply.Kind); ok {
			if reply.Temporary {
				return domain.NormalizedDocument{}, domain.WrapTemporary(kind, "remote normalize", cause)
			}
			return domain.NormalizedDocument{}, domain.WrapError(kind, "remote normalize", cause)
		}
		return domain.NormalizedDocument{}, fmt.Errorf("remote normalize: %w", cause)
	}
	return domain.NormalizedDocument{
		Text:      reply.Text,
		Format:    domain.FormatKind(reply.Format),
		Chars:     reply.Chars,
		Truncated: reply.Truncated,
	}, nil
}
