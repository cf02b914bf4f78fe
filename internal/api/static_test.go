package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSite(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"index.html":     "<h1>intake</h1>",
		"css/style.css":  "body{}",
		"js/app.js":      "console.log(1)",
		"img/logo.SVG":   "<svg/>",
		"data/notes.txt": "plain",
		"manifest.json":  "{}",
		"favicon.ico":    "ico",
		"unknown.weird":  "??",
		"sub/index.html": "nested",
		"photos/a.jpeg":  "jpeg",
		"photos/b.png":   "png",
		"photos/c.gif":   "gif",
		"photos/d.jpg":   "jpg",
	}
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestSiteHandler_ServesFiles(t *testing.T) {
	h, _ := setupSiteHandler(t, writeSite(t))

	tests := []struct {
		path, wantType, wantBody string
	}{
		{"/", "text/html; charset=utf-8", "<h1>intake</h1>"},
		{"/index.html", "text/html; charset=utf-8", "<h1>intake</h1>"},
		{"/css/style.css", "text/css", "body{}"},
		{"/js/app.js", "application/javascript", "console.log(1)"},
		{"/img/logo.SVG", "image/svg+xml", "<svg/>"},
		{"/manifest.json", "application/json", "{}"},
		{"/favicon.ico", "image/x-icon", "ico"},
		{"/photos/a.jpeg", "image/jpeg", "jpeg"},
		{"/photos/d.jpg", "image/jpeg", "jpg"},
		{"/photos/b.png", "image/png", "png"},
		{"/photos/c.gif", "image/gif", "gif"},
		{"/unknown.weird", "text/plain", "??"},
		{"/data/notes.txt", "text/plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(h, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.wantType)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("static response missing CORS header")
			}
		})
	}
}

func TestSiteHandler_NotFound(t *testing.T) {
	h, _ := setupSiteHandler(t, writeSite(t))

	for _, path := range []string{"/missing.html", "/sub", "/css/", "/api/nope"} {
		rec := do(h, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
			continue
		}
		if rec.Body.String() != "404 Not Found" {
			t.Errorf("%s body = %q", path, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
			t.Errorf("%s Content-Type = %q", path, ct)
		}
	}
}

func TestSiteHandler_TraversalForbidden(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "site")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, _ := setupSiteHandler(t, root)

	for _, path := range []string{"/../secret.txt", "/a/../../secret.txt", "/%2e%2e/secret.txt"} {
		rec := do(h, http.MethodGet, path, "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s status = %d, want 403", path, rec.Code)
			continue
		}
		if rec.Body.String() != "403 Forbidden" {
			t.Errorf("%s body = %q", path, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
			t.Errorf("%s Content-Type = %q", path, ct)
		}
	}
}

func TestSiteHandler_SymlinkEscapeForbidden(t *testing.T) {
	root := writeSite(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("SECRET"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "secret.txt")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "css"), filepath.Join(root, "styles")); err != nil {
		t.Fatal(err)
	}
	h, _ := setupSiteHandler(t, root)

	for _, path := range []string{"/link/secret.txt", "/secret.txt"} {
		rec := do(h, http.MethodGet, path, "")
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s status = %d, want 403", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "SECRET") {
			t.Errorf("%s leaked file outside the static root", path)
		}
	}

	rec := do(h, http.MethodGet, "/styles/style.css", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "body{}" {
		t.Errorf("symlink inside root: status = %d, body = %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/css" {
		t.Errorf("symlink inside root: Content-Type = %q", ct)
	}
}

func TestSiteHandler_DataDirNotServed(t *testing.T) {
	deps, store := newTestDeps(t)
	root := filepath.Dir(store.Dir())
	if err := os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>intake</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, err := NewSiteHandler(deps, root, store.Dir())
	if err != nil {
		t.Fatalf("NewSiteHandler: %v", err)
	}

	if rec := do(h, http.MethodPost, "/api/submit", aliceJSON); rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/export", ""); rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 3 {
		t.Fatalf("data dir has %d entries, want collection, audit copy and export", len(entries))
	}

	paths := []string{"/data", "/data/", "/data/all_employees.json", "/./data/../data/all_employees.json"}
	for _, e := range entries {
		paths = append(paths, "/data/"+url.PathEscape(e.Name()))
	}
	for _, path := range paths {
		rec := do(h, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "Alice") {
			t.Errorf("%s exposed stored records", path)
		}
	}

	if rec := do(h, http.MethodGet, "/", ""); rec.Code != http.StatusOK {
		t.Errorf("index status = %d, want 200", rec.Code)
	}
}

func TestStaticResolve(t *testing.T) {
	h, err := newStaticHandler(t.TempDir(), discardLogger)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path   string
		wantOK bool
		want   string
	}{
		{"/", true, filepath.Join(h.root, "index.html")},
		{"", true, filepath.Join(h.root, "index.html")},
		{"/a/b.css", true, filepath.Join(h.root, "a", "b.css")},
		{"/a/../b.css", true, filepath.Join(h.root, "b.css")},
		{"/..", false, ""},
		{"/../../etc/passwd", false, ""},
	}
	for _, tt := range tests {
		got, ok := h.resolve(tt.path)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("resolve(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestSiteHandler_WrongMethodOnAPIFallsThroughToStatic(t *testing.T) {
	h, _ := setupSiteHandler(t, writeSite(t))

	rec := do(h, http.MethodGet, "/api/submit", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
