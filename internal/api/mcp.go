package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/intake/internal/intake"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service *intake.Service
	Version string
}

// NewMCPServer creates an MCP server exposing the intake operations as
// tools and the current stats as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"intake",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("intake: employee information collection. Submit, list, summarize and export employee records."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("submit_employee",
			mcp.WithDescription("Record a new employee submission."),
			mcp.WithString("name", mcp.Description("Employee name"), mcp.Required()),
			mcp.WithString("phone", mcp.Description("Phone number"), mcp.Required()),
			mcp.WithString("department", mcp.Description("Department"), mcp.Required()),
			mcp.WithString("type", mcp.Description("Employee type label, e.g. 正式员工 or 实习生"), mcp.Required()),
		),
		mcpSubmitEmployee(deps),
	)

	s.AddTool(
		mcp.NewTool("list_employees",
			mcp.WithDescription("List all employee records, newest first."),
		),
		mcpListEmployees(deps),
	)

	s.AddTool(
		mcp.NewTool("employee_stats",
			mcp.WithDescription("Summarize employee records: totals, type counts, departments and the first five records."),
		),
		mcpEmployeeStats(deps),
	)

	s.AddTool(
		mcp.NewTool("export_employees",
			mcp.WithDescription("Write all employee records to a CSV file in the data directory."),
		),
		mcpExportEmployees(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"intake://stats",
			"Employee Stats",
			mcp.WithResourceDescription("Current employee statistics as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpSubmitEmployee(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := intake.Input{
			Name:       req.GetString("name", ""),
			Phone:      req.GetString("phone", ""),
			Department: req.GetString("department", ""),
			Type:       req.GetString("type", ""),
		}

		rec, err := deps.Service.Submit(ctx, in, "")
		if errors.Is(err, intake.ErrIncomplete) {
			return mcpError(intake.ErrIncomplete.Error()), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("submit failed: %v", err)), nil
		}
		return mcpJSON(submitResponse{Success: true, Message: "submitted", ID: rec.ID})
	}
}

func mcpListEmployees(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		records, err := deps.Service.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to fetch data: %v", err)), nil
		}
		return mcpJSON(map[string]any{"data": records})
	}
}

func mcpEmployeeStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sum, err := deps.Service.Stats(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to fetch stats: %v", err)), nil
		}
		return mcpJSON(sum)
	}
}

func mcpExportEmployees(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, err := deps.Service.Export(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}
		return mcpJSON(map[string]any{
			"success":  true,
			"message":  "exported",
			"filename": a.Filename,
			"path":     a.Path,
			"rows":     a.Rows,
		})
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sum, err := deps.Service.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get stats: %w", err)
		}

		b, err := json.Marshal(sum)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
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

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
