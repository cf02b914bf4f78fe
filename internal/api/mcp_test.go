package api

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/intake/internal/intake"
	"github.com/kalambet/intake/internal/storage"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.FileStore) {
	t.Helper()
	deps, fs := newTestDeps(t)
	return MCPDeps{Service: deps.Service, Version: "test"}, fs
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func aliceArgs() map[string]interface{} {
	return map[string]interface{}{
		"name":       "Alice",
		"phone":      "555-0100",
		"department": "Engineering",
		"type":       "formal employee",
	}
}

func TestMCPTool_SubmitEmployee(t *testing.T) {
	deps, fs := newTestMCPDeps(t)

	result := callTool(t, mcpSubmitEmployee(deps), makeCallToolRequest("submit_employee", aliceArgs()))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var resp submitResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	if !resp.Success || resp.ID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	records, err := fs.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != resp.ID {
		t.Fatalf("records = %+v", records)
	}
	if records[0].IP != storage.UnknownOrigin {
		t.Errorf("IP = %q, want %q", records[0].IP, storage.UnknownOrigin)
	}
}

func TestMCPTool_SubmitEmployee_Incomplete(t *testing.T) {
	deps, fs := newTestMCPDeps(t)
	args := aliceArgs()
	delete(args, "phone")

	result := callTool(t, mcpSubmitEmployee(deps), makeCallToolRequest("submit_employee", args))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if got := toolText(t, result); got != "incomplete data" {
		t.Errorf("text = %q", got)
	}
	records, _ := fs.Load(context.Background())
	if len(records) != 0 {
		t.Errorf("collection size = %d, want 0", len(records))
	}
}

func TestMCPTool_ListAndStats(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	callTool(t, mcpSubmitEmployee(deps), makeCallToolRequest("submit_employee", aliceArgs()))

	result := callTool(t, mcpListEmployees(deps), makeCallToolRequest("list_employees", nil))
	var list struct {
		Data []storage.Record `json:"data"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &list); err != nil {
		t.Fatalf("parsing list: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].Name != "Alice" {
		t.Errorf("list = %+v", list.Data)
	}

	result = callTool(t, mcpEmployeeStats(deps), makeCallToolRequest("employee_stats", nil))
	var sum intake.Summary
	if err := json.Unmarshal([]byte(toolText(t, result)), &sum); err != nil {
		t.Fatalf("parsing stats: %v", err)
	}
	if sum.Total != 1 || sum.Formal != 1 {
		t.Errorf("stats = %+v", sum)
	}
}

func TestMCPTool_ExportEmployees(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	callTool(t, mcpSubmitEmployee(deps), makeCallToolRequest("submit_employee", aliceArgs()))

	result := callTool(t, mcpExportEmployees(deps), makeCallToolRequest("export_employees", nil))
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}
	var resp struct {
		Filename string `json:"filename"`
		Path     string `json:"path"`
		Rows     int    `json:"rows"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &resp); err != nil {
		t.Fatalf("parsing export: %v", err)
	}
	if resp.Rows != 1 {
		t.Errorf("rows = %d, want 1", resp.Rows)
	}
	if _, err := os.Stat(resp.Path); err != nil {
		t.Errorf("export not written at %q: %v", resp.Path, err)
	}
}

func TestMCPResource_Stats(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	contents, err := mcpResourceStats(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "intake://stats"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "intake://stats" || tc.MIMEType != "application/json" {
		t.Errorf("resource = %+v", tc)
	}
	var sum intake.Summary
	if err := json.Unmarshal([]byte(tc.Text), &sum); err != nil {
		t.Fatalf("parsing resource: %v", err)
	}
	if sum.Departments == nil || sum.Recent == nil {
		t.Errorf("empty stats should carry arrays: %s", tc.Text)
	}
}

func TestNewMCPServer_ListsTools(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	s := NewMCPServer(deps)

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{"submit_employee", "list_employees", "employee_stats", "export_employees"} {
		if !strings.Contains(string(b), `"`+name+`"`) {
			t.Errorf("tool %q not listed in %s", name, b)
		}
	}
}
