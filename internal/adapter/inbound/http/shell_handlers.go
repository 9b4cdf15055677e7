package http

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/volview-xnat/volviewd/internal/resources"
)

const testPageNotFound = "<html><body><h1>Test page not found</h1></body></html>"

// handleShell serves the HTML shell named by the shell path setting. The
// page itself reads the project from the URL, so every project shares one
// document.
func (h *handler) handleShell(w http.ResponseWriter, r *http.Request) {
	shellPath := h.settingsService.Settings().ShellPath()
	body, err := h.readResource(shellPath)
	if err != nil {
		LoggerFromContext(r.Context()).Error("shell page unavailable",
			"shell_path", shellPath,
			"project_id", r.PathValue("projectId"),
			"error", err,
		)
		h.respondError(w, http.StatusInternalServerError, "volview shell page not found")
		return
	}
	h.respondCacheable(w, r, "text/html; charset=utf-8", body)
}

// handleTestPage serves the connectivity test page. A missing page is
// answered with a short HTML note and 200.
func (h *handler) handleTestPage(w http.ResponseWriter, r *http.Request) {
	body, err := h.readResource(resources.TestPagePath)
	if err != nil {
		LoggerFromContext(r.Context()).Warn("test page unavailable", "error", err)
		body = []byte(testPageNotFound)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// readResource reads a bundle file addressed by a site path such as
// "/plugin-resources/xnat-volview/index.html".
func (h *handler) readResource(sitePath string) ([]byte, error) {
	if h.resources == nil {
		return nil, fs.ErrNotExist
	}
	name := strings.TrimPrefix(strings.TrimSpace(sitePath), "/")
	if !fs.ValidPath(name) || name == "." {
		return nil, &fs.PathError{Op: "open", Path: sitePath, Err: fs.ErrInvalid}
	}
	return fs.ReadFile(h.resources, name)
}
