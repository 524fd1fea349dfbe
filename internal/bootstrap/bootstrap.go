package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/kirillkom/d4d-ingest/internal/config"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
	"github.com/kirillkom/d4d-ingest/internal/core/usecase"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/html"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/jsondoc"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/extractor/webpage"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/fetch/httpfetch"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/offload"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/queue/nats"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/resilience"
	"github.com/kirillkom/d4d-ingest/internal/infrastructure/storage/localfs"
)

type Options struct {
	Logger *slog.Logger
	// ServeQueue connects NATS for a process that answers normalize requests.
	ServeQueue bool
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	// Pipeline normalizes in-process, without retries. Workers serve it.
	Pipeline ports.SourceNormalizer
	// Normalizer is the caller-facing normalizer with the retry policy applied.
	Normalizer ports.SourceNormalizer
	Content    ports.ContentBuilder
	Schema     ports.SchemaLoader
	// Runs is nil when POSTGRES_DSN is empty.
	Runs  ports.RunLedger
	Queue *nats.Queue

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db     *sql.DB
		ledger ports.RunLedger
		queue  *nats.Queue
	)
	closeFn := func() {
		if queue != nil {
			queue.Close()
		}
		if db != nil {
			_ = db.Close()
		}
	}

	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewRunRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeFn()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		ledger = repo
	}

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		BreakerEnabled:      cfg.BreakerEnabled,
		Logger:              logger,
	})

	if opts.ServeQueue || cfg.NormalizeViaNATS {
		var err error
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			RequestTimeout:     cfg.NATSRequestTimeout,
			ServeConcurrency:   cfg.OffloadWorkers,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			closeFn()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	files := localfs.New("")
	fetcher := httpfetch.New(httpfetch.Options{
		Timeout:   cfg.FetchTimeout,
		MaxBytes:  cfg.FetchMaxBytes,
		UserAgent: cfg.FetchUserAgent,
	})

	var pipeline ports.SourceNormalizer = usecase.NewNormalizeUseCase(
		usecase.NewSourceClassifierUseCase(files),
		usecase.Extractors{
			PDF:       pdf.NewExtractor(files, fetcher),
			HTML:      html.NewExtractor(files),
			JSON:      jsondoc.NewExtractor(files),
			PlainText: plaintext.NewExtractor(files),
			WebPage:   webpage.NewExtractor(fetcher),
		},
		offload.New(cfg.OffloadWorkers),
		usecase.NormalizerConfig{
			MaxChars: cfg.MaxChars,
			Logger:   logger,
		},
	)
	if ledger != nil {
		pipeline = usecase.NewRecordingNormalizer(pipeline, ledger, logger)
	}

	var normalizer ports.SourceNormalizer
	if cfg.NormalizeViaNATS {
		normalizer = queue
	} else {
		normalizer = resilience.NewRetryingNormalizer(pipeline, executor)
	}

	return &App{
		Config: cfg,
		Logger: logger,

		Pipeline:   pipeline,
		Normalizer: normalizer,
		Content:    usecase.NewContentBuilderUseCase(normalizer, cfg.ContentParallelism),
		Schema:     usecase.NewSchemaLoaderUseCase(fetcher, cfg.SchemaURL),
		Runs:       ledger,
		Queue:      queue,

		closeFn: closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
