package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/blueprint/internal/generate"
	"github.com/kalambet/blueprint/internal/requirements"
	"github.com/kalambet/blueprint/internal/router"
	"github.com/kalambet/blueprint/internal/storage"
)

// MCPStore is the storage the MCP tools read.
type MCPStore interface {
	ListDocuments(limit int) ([]storage.Document, error)
	ListRunFiles(runID string) ([]storage.File, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   MCPStore
	Version string
}

// NewMCPServer creates an MCP server with all blueprint tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"blueprint",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("blueprint turns application requests into requirements documents, project layouts and per-task target files."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("extract_requirements",
			mcp.WithDescription("Find the JSON requirements document embedded in a block of text."),
			mcp.WithString("text", mcp.Description("Text that may contain a fenced or bare JSON object"), mcp.Required()),
		),
		mcpExtractRequirements(),
	)

	s.AddTool(
		mcp.NewTool("plan_layout",
			mcp.WithDescription("Plan directories, container strategy and file tasks for a requirements document."),
			mcp.WithString("document", mcp.Description("Requirements document as JSON"), mcp.Required()),
		),
		mcpPlanLayout(),
	)

	s.AddTool(
		mcp.NewTool("route_task",
			mcp.WithDescription("Return the project file an implementation task should produce."),
			mcp.WithString("task", mcp.Description("Implementation plan entry"), mcp.Required()),
			mcp.WithString("document", mcp.Description("Optional requirements document as JSON, used when no keyword matches")),
		),
		mcpRouteTask(),
	)

	s.AddTool(
		mcp.NewTool("search_files",
			mcp.WithDescription("Search the files generated by a run for lines containing a query."),
			mcp.WithString("run_id", mcp.Description("Run ID"), mcp.Required()),
			mcp.WithString("query", mcp.Description("Case-insensitive substring"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of matches (default 10)")),
		),
		mcpSearchFiles(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"blueprint://documents",
			"Requirements Documents",
			mcp.WithResourceDescription("The 20 most recent stored requirements documents"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocuments(deps),
	)

	return s
}

func mcpExtractRequirements() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		resp := extract(text)
		if !resp.Found {
			return mcpError("no JSON object found"), nil
		}
		if resp.Document == nil {
			return mcpError("JSON found but it is not a requirements document"), nil
		}

		b, err := json.Marshal(resp.Document)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal document: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func decodeDocument(s string) (requirements.Document, error) {
	var doc requirements.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return requirements.Document{}, fmt.Errorf("invalid document JSON: %w", err)
	}
	return doc, nil
}

func mcpPlanLayout() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("document")
		if err != nil {
			return mcpError("document is required"), nil
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		resp, err := plan(doc)
		if err != nil {
			return mcpError(fmt.Sprintf("planning failed: %v", err)), nil
		}
		b, err := json.Marshal(resp)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal plan: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRouteTask() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := req.RequireString("task")
		if err != nil {
			return mcpError("task is required"), nil
		}

		var doc requirements.Document
		if raw := req.GetString("document", ""); raw != "" {
			if doc, err = decodeDocument(raw); err != nil {
				return mcpError(err.Error()), nil
			}
		}

		path, area := router.Explain(task, doc)
		return mcpText(fmt.Sprintf("%s (%s)", path, area)), nil
	}
}

func mcpSearchFiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runID, err := req.RequireString("run_id")
		if err != nil {
			return mcpError("run_id is required"), nil
		}
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", generate.DefaultGrepLimit)
		if limit > 100 {
			limit = 100
		}

		files, err := deps.Store.ListRunFiles(runID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load files: %v", err)), nil
		}
		pc := generate.NewProjectContext()
		for _, f := range files {
			pc.Set(f.Path, f.Content)
		}

		matches := pc.Grep(query, limit)
		if len(matches) == 0 {
			return mcpText("no matches"), nil
		}
		lines := make([]string, len(matches))
		for i, m := range matches {
			lines[i] = m.String()
		}
		return mcpText(strings.Join(lines, "\n")), nil
	}
}

func mcpResourceDocuments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := deps.Store.ListDocuments(20)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		type documentSummary struct {
			ID          string `json:"id"`
			ProjectName string `json:"project_name"`
			Slug        string `json:"slug"`
			CreatedAt   string `json:"created_at"`
		}

		summaries := make([]documentSummary, len(docs))
		for i, d := range docs {
			summaries[i] = documentSummary{
				ID:          d.ID,
				ProjectName: d.ProjectName,
				Slug:        d.Slug,
				CreatedAt:   d.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
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
