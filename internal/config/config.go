package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	MaxChars           int
	OffloadWorkers     int
	ContentParallelism int

	FetchTimeout   time.Duration
	FetchMaxBytes  int64
	FetchUserAgent string

	SchemaURL string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool

	APIRateLimitRPS      float64
	APIRateLimitBurst    int
	APIMaxInFlight       int
	APIBackpressureWait  time.Duration
	NormalizeViaNATS     bool
	NATSURL              string
	NATSSubject          string
	NATSRequestTimeout   time.Duration
	PostgresDSN          string
	WorkerMetricsPort    string
	WorkerProcessTimeout time.Duration
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		MaxChars:           mustEnvInt("MAX_CHARS", 50000),
		OffloadWorkers:     mustEnvInt("OFFLOAD_WORKERS", 8),
		ContentParallelism: mustEnvInt("CONTENT_PARALLELISM", 4),

		FetchTimeout:   mustEnvDuration("FETCH_TIMEOUT", 60*time.Second),
		FetchMaxBytes:  int64(mustEnvInt("FETCH_MAX_BYTES", 50<<20)),
		FetchUserAgent: mustEnv("FETCH_USER_AGENT", ""),

		SchemaURL: mustEnv("D4D_SCHEMA_URL", "https://raw.githubusercontent.com/monarch-initiative/ontogpt/main/src/ontogpt/templates/data_sheets_schema.yaml"),

		RetryMaxAttempts:    mustEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: mustEnvDuration("RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		RetryMaxBackoff:     mustEnvDuration("RETRY_MAX_BACKOFF", 2*time.Second),
		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", true),

		APIRateLimitRPS:      mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:    mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:       mustEnvInt("API_MAX_INFLIGHT", 64),
		APIBackpressureWait:  mustEnvDuration("API_BACKPRESSURE_WAIT", 100*time.Millisecond),
		NormalizeViaNATS:     mustEnvBool("NORMALIZE_VIA_NATS", false),
		NATSURL:              mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject:          mustEnv("NATS_SUBJECT", "d4d.normalize"),
		NATSRequestTimeout:   mustEnvDuration("NATS_REQUEST_TIMEOUT", 2*time.Minute),
		PostgresDSN:          mustEnv("POSTGRES_DSN", ""),
		WorkerMetricsPort:    mustEnv("WORKER_METRICS_PORT", "9090"),
		WorkerProcessTimeout: mustEnvDuration("WORKER_TIMEOUT", 5*time.Minute),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
