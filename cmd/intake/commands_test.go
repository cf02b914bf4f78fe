package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/intake/internal/intake"
	"github.com/kalambet/intake/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

type cannedResponse struct {
	status  int
	headers map[string]string
	body    string
}

func newTestServer(t *testing.T, responses map[string]cannedResponse) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			for k, v := range resp.headers {
				w.Header().Set(k, v)
			}
			if resp.status != 0 {
				w.WriteHeader(resp.status)
			}
			w.Write([]byte(resp.body))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":"not found"}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestSubmitEmployee(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"POST /api/submit": {body: `{"success":true,"message":"submitted","id":"emp_1_abc"}`},
	})

	in := intake.Input{Name: "Alice", Phone: "555-0100", Department: "Engineering", Type: "formal employee"}
	id, err := submitEmployee(ctx, ts.client(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "emp_1_abc" {
		t.Errorf("id = %q, want emp_1_abc", id)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["name"] != "Alice" || body["type"] != "formal employee" {
		t.Errorf("body = %v", body)
	}
}

func TestSubmitEmployee_ServerError(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"POST /api/submit": {status: http.StatusBadRequest, body: `{"error":"incomplete data"}`},
	})

	_, err := submitEmployee(ctx, ts.client(), intake.Input{Name: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "incomplete data") {
		t.Errorf("error = %q, want status and server message", err.Error())
	}
}

func TestSubmitCommand_MissingFlags(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"submit", "--name", "Alice"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing flags")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestFetchRecords(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/data": {body: `{"data":[{"id":"emp_2","name":"Bob"},{"id":"emp_1","name":"Alice"}]}`},
	})

	records, err := fetchRecords(ctx, ts.client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].ID != "emp_2" {
		t.Fatalf("records = %+v", records)
	}
}

func TestPrintRecords(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	err := printRecords(&buf, []storage.Record{
		{ID: "emp_1", Name: "Alice", Phone: "555", Department: "Eng", Type: "intern", Timestamp: "2024-01-15T08:00:00.000Z", IP: "::1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want header and one row", lines)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[1], "Alice") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestDownloadExport(t *testing.T) {
	csvBody := "\uFEFFID,姓名\nemp_1,Alice\n"
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/export": {
			headers: map[string]string{
				"Content-Type":        "text/csv; charset=utf-8",
				"Content-Disposition": `attachment; filename="employees_2024-01-15.csv"; filename*=UTF-8''employees_2024-01-15.csv`,
			},
			body: csvBody,
		},
	})
	dir := t.TempDir()

	path, n, err := downloadExport(ctx, ts.client(), dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(dir, "employees_2024-01-15.csv") {
		t.Errorf("path = %q", path)
	}
	if n != int64(len(csvBody)) {
		t.Errorf("n = %d, want %d", n, len(csvBody))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != csvBody {
		t.Errorf("file = %q, want %q", data, csvBody)
	}
	if ts.requests[0].Path != "/api/export?mode=download" {
		t.Errorf("request path = %q", ts.requests[0].Path)
	}
}

func TestDownloadExport_ExplicitFile(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/export": {body: "ID\n"},
	})
	out := filepath.Join(t.TempDir(), "out.csv")

	path, _, err := downloadExport(ctx, ts.client(), out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != out {
		t.Errorf("path = %q, want %q", path, out)
	}
}

func TestDownloadExport_ServerError(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /api/export": {status: http.StatusInternalServerError, body: `{"error":"export failed"}`},
	})

	if _, _, err := downloadExport(ctx, ts.client(), t.TempDir()); err == nil || !strings.Contains(err.Error(), "export failed") {
		t.Errorf("err = %v, want export failed", err)
	}
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="a.csv"`, "a.csv"},
		{`attachment; filename*=UTF-8''%E5%91%98%E5%B7%A5%E4%BF%A1%E6%81%AF_2024-01-15.csv`, "员工信息_2024-01-15.csv"},
		{`attachment; filename="../../etc/passwd"`, "passwd"},
		{``, ""},
	}
	for _, tt := range tests {
		if got := attachmentName(tt.header); got != tt.want {
			t.Errorf("attachmentName(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/nope")
	if err != nil {
		t.Fatal(err)
	}
	var v any
	err = decodeJSON(resp, &v)
	if err == nil || !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v", err)
	}
}

func TestClient_ServerUnreachable(t *testing.T) {
	c := &apiClient{baseURL: "http://127.0.0.1:1", httpClient: http.DefaultClient}
	_, err := c.get(ctx, "/health")
	if err == nil || !strings.Contains(err.Error(), "is intake running") {
		t.Errorf("err = %v", err)
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorRed, "hello")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	result = colorize(colorRed, "hello")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestColorizeType(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = false

	tests := []struct {
		label string
		color string
	}{
		{"正式员工", colorGreen},
		{"formal employee", colorGreen},
		{"实习生", colorYellow},
		{"intern", colorYellow},
		{"contractor", colorPlain},
	}
	for _, tt := range tests {
		got := colorizeType(tt.label)
		if got != tt.color+tt.label+colorReset {
			t.Errorf("colorizeType(%q) = %q", tt.label, got)
		}
		if len(got)-len(tt.label) != len(colorGreen)+len(colorReset) {
			t.Errorf("colorizeType(%q) adds %d bytes, columns would misalign", tt.label, len(got)-len(tt.label))
		}
	}

	noColor = true
	if got := colorizeType("intern"); got != "intern" {
		t.Errorf("colorizeType with noColor = %q", got)
	}
}

func TestPrintHelpersWriteToStderr(t *testing.T) {
	oldOut, oldColor := stderr, noColor
	defer func() { stderr, noColor = oldOut, oldColor }()
	var buf bytes.Buffer
	stderr, noColor = &buf, true

	printSuccess("Submitted %s", "emp_1")
	printWarning("overwriting %s", "a.csv")
	printStatus("Total", "%d", 3)

	want := "✓ Submitted emp_1\n⚠ overwriting a.csv\n  Total: 3\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
