package api

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

func contentTypeFor(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}

// staticHandler serves files below root. It never lists directories. Paths
// under a private directory (the data directory) are reported as missing.
type staticHandler struct {
	root    string
	private []string
	logger  *slog.Logger
}

func newStaticHandler(root string, logger *slog.Logger, private ...string) (*staticHandler, error) {
	dir, err := realPath(root)
	if err != nil {
		return nil, fmt.Errorf("resolving static dir %q: %w", root, err)
	}
	h := &staticHandler{root: dir, logger: logger}
	for _, d := range private {
		if d == "" {
			continue
		}
		p, err := realPath(d)
		if err != nil {
			return nil, fmt.Errorf("resolving private dir %q: %w", d, err)
		}
		h.private = append(h.private, p)
	}
	return h, nil
}

// realPath returns p as an absolute path with symlinks resolved. A path that
// does not exist yet is only made absolute.
func realPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return abs, nil
	}
	return resolved, err
}

func within(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// resolve maps a URL path to a file under root. ok is false when the path
// escapes root lexically. Symlinks are checked by ServeHTTP.
func (h *staticHandler) resolve(urlPath string) (string, bool) {
	if urlPath == "" || urlPath == "/" {
		urlPath = "/index.html"
	}
	full := filepath.Join(h.root, filepath.FromSlash(urlPath))
	if !within(h.root, full) {
		return "", false
	}
	return full, true
}

func (h *staticHandler) isPrivate(p string) bool {
	for _, dir := range h.private {
		if within(dir, p) {
			return true
		}
	}
	return false
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, ok := h.resolve(r.URL.Path)
	if !ok {
		textResponse(w, http.StatusForbidden, "403 Forbidden")
		return
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(r.Context(), "resolve static file", "path", path, "error", err)
		}
		textResponse(w, http.StatusNotFound, "404 Not Found")
		return
	}
	if !within(h.root, target) {
		h.logger.WarnContext(r.Context(), "static symlink leaves root", "path", path, "target", target)
		textResponse(w, http.StatusForbidden, "403 Forbidden")
		return
	}
	if h.isPrivate(target) {
		textResponse(w, http.StatusNotFound, "404 Not Found")
		return
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			h.logger.WarnContext(r.Context(), "stat static file", "path", target, "error", err)
		}
		textResponse(w, http.StatusNotFound, "404 Not Found")
		return
	}

	data, err := os.ReadFile(target)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "read static file", "path", target, "error", err)
		textResponse(w, http.StatusInternalServerError, "500 Internal Server Error")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(path))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// textResponse writes one of the fixed status pages.
func textResponse(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(code)
	w.Write([]byte(body))
}
