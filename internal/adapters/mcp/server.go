// Package mcpadapter exposes the ingestion pipeline as MCP tools for an LLM agent.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/d4d-ingest/internal/core/domain"
	"github.com/kirillkom/d4d-ingest/internal/core/ports"
)

const (
	ToolProcessSource  = "process_website_or_pdf"
	ToolExtractContent = "extract_metadata_content"
	ToolFullSchema     = "get_full_schema"
)

type Tools struct {
	normalizer ports.SourceNormalizer
	content    ports.ContentBuilder
	schema     ports.SchemaLoader
	logger     *slog.Logger
}

func NewTools(
	normalizer ports.SourceNormalizer,
	content ports.ContentBuilder,
	schema ports.SchemaLoader,
	logger *slog.Logger,
) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tools{
		normalizer: normalizer,
		content:    content,
		schema:     schema,
		logger:     logger,
	}
}

func NewServer(tools *Tools, version string) *server.MCPServer {
	srv := server.NewMCPServer("d4d-ingest", version, server.WithToolCapabilities(false))
	tools.Register(srv)
	return srv
}

func (t *Tools) Register(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool(ToolProcessSource,
		mcp.WithDescription("Normalize one local file (pdf, html, json, txt, md) or remote url into bounded plain text."),
		mcp.WithString("url_or_path",
			mcp.Required(),
			mcp.Description("Local file path or http(s) url of the source"),
		),
	), t.processSource)

	srv.AddTool(mcp.NewTool(ToolExtractContent,
		mcp.WithDescription("Normalize several sources describing one dataset and concatenate their text in order."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("Local file paths or http(s) urls"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), t.extractContent)

	srv.AddTool(mcp.NewTool(ToolFullSchema,
		mcp.WithDescription("Load the Datasheets for Datasets LinkML schema as YAML text."),
		mcp.WithString("url",
			mcp.Description("Schema url; defaults to the configured D4D schema"),
		),
	), t.fullSchema)
}

func (t *Tools) processSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("url_or_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := t.normalizer.Normalize(ctx, ref)
	if err != nil {
		return t.toolError(ToolProcessSource, err), nil
	}
	return mcp.NewToolResultText(doc.Text), nil
}

func (t *Tools) extractContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := req.RequireStringSlice("urls")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	content, err := t.content.Build(ctx, refs)
	if err != nil {
		return t.toolError(ToolExtractContent, err), nil
	}

	sources := make([]map[string]any, 0, len(content.Documents))
	for _, doc := range content.Documents {
		sources = append(sources, map[string]any{
			"source":    doc.Source,
			"format":    doc.Format,
			"chars":     doc.Chars,
			"truncated": doc.Truncated,
		})
	}
	summary, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshal content summary: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(content.Text),
			mcp.NewTextContent(string(summary)),
		},
	}, nil
}

func (t *Tools) fullSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := t.schema.Load(ctx, req.GetString("url", ""))
	if err != nil {
		return t.toolError(ToolFullSchema, err), nil
	}
	return mcp.NewToolResultText(text), nil
}

// toolError reports pipeline failures to the agent as tool results, so the
// agent can react to the kind instead of the session failing.
func (t *Tools) toolError(tool string, err error) *mcp.CallToolResult {
	kind := domain.KindOf(err)
	t.logger.Warn("mcp_tool_failed", "tool", tool, "kind", kind, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
}
