package main

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/d4d-ingest/internal/adapters/mcp"
	"github.com/kirillkom/d4d-ingest/internal/bootstrap"
	"github.com/kirillkom/d4d-ingest/internal/config"
	"github.com/kirillkom/d4d-ingest/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	app, err := bootstrap.New(context.Background(), cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.Normalizer, app.Content, app.Schema, logger)
	if err := server.ServeStdio(mcpadapter.NewServer(tools, version)); err != nil {
		logger.Error("mcp_serve_failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
