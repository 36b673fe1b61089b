package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/savagelysubtle/archivum/internal/extract"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Engine      *extract.Engine
	Registry    *extract.Registry
	Concurrency int // default batch concurrency
	Version     string
}

// NewMCPServer creates an MCP server with all archivum tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"archivum",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("archivum is a local metadata extraction service. Extractors are selected by MIME type and results are cached."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("extract_metadata",
			mcp.WithDescription("Extract metadata from a file on the local filesystem and return the full record as JSON."),
			mcp.WithString("path", mcp.Description("Path of the file to process"), mcp.Required()),
			mcp.WithString("mime_type", mcp.Description("Optional MIME type override; skips detection")),
		),
		mcpExtractMetadata(deps),
	)

	s.AddTool(
		mcp.NewTool("extract_batch",
			mcp.WithDescription("Extract metadata for multiple files concurrently. Results keep input order."),
			mcp.WithArray("paths", mcp.Description("File paths to process"), mcp.Required()),
			mcp.WithNumber("concurrency", mcp.Description("Maximum files processed at once (defaults to server config)")),
		),
		mcpExtractBatch(deps),
	)

	s.AddTool(
		mcp.NewTool("list_extractors",
			mcp.WithDescription("List registered extractors with their MIME patterns, priorities, and versions."),
		),
		mcpListExtractors(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"archivum://extractors",
			"Registered Extractors",
			mcp.WithResourceDescription("Extractor registrations as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceExtractors(deps),
	)

	return s
}

func mcpExtractMetadata(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := req.RequireString("path")
		if err != nil {
			return mcpError("path is required"), nil
		}

		var opts []extract.ExtractOption
		if mimeType := req.GetString("mime_type", ""); mimeType != "" {
			opts = append(opts, extract.WithMIMEType(mimeType))
		}

		rec := deps.Engine.ExtractOne(ctx, path, opts...)

		b, err := json.Marshal(rec)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal record: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpExtractBatch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := req.GetStringSlice("paths", nil)
		if len(paths) == 0 {
			return mcpError("paths is required and must not be empty"), nil
		}
		if len(paths) > maxBatchPaths {
			return mcpError(fmt.Sprintf("too many paths: %d (max %d)", len(paths), maxBatchPaths)), nil
		}

		concurrency := req.GetInt("concurrency", deps.Concurrency)

		results := deps.Engine.ExtractMany(ctx, paths, concurrency)

		b, err := json.Marshal(map[string]any{
			"batch_id": uuid.New().String(),
			"count":    len(results),
			"results":  results,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpListExtractors(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		regs := deps.Registry.All()
		if len(regs) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(regs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal extractors: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceExtractors(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		regs := deps.Registry.All()
		if regs == nil {
			regs = []extract.Registration{}
		}

		b, err := json.Marshal(regs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extractors: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
