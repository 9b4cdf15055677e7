package http

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/volview-xnat/volviewd/internal/service"
)

// Shell page mount points. The shell page is reachable under three legacy
// prefixes.
var shellPrefixes = []string{
	"/xapi/volview/app/projects",
	"/volview/app/projects",
	"/app/volview/projects",
}

// handler serves the application routes below the context path.
type handler struct {
	configService   *service.ViewerConfigService
	settingsService *service.SettingsService
	resources       fs.FS
	contextPath     string
	auditor         Auditor
	metrics         *Metrics
	logger          *slog.Logger
}

// routes registers every application route on a new mux. Paths are relative
// to the context path.
func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /xapi/volview/config/projects/{projectId}", h.handleProjectConfig)
	mux.HandleFunc("GET /xapi/volview/config/projects/{projectId}/sessions/{sessionId}", h.handleSessionConfig)
	mux.HandleFunc("GET /xapi/volview/settings", h.handleListSettings)
	mux.HandleFunc("PUT /xapi/volview/settings", h.handleUpdateSettings)
	mux.HandleFunc("GET /xapi/vol/test", h.handleTestPage)
	if h.auditor != nil {
		mux.HandleFunc("GET /xapi/volview/audit", h.handleAuditQuery)
	}
	for _, prefix := range shellPrefixes {
		mux.HandleFunc("GET "+prefix+"/{projectId}", h.handleShell)
		mux.HandleFunc("GET "+prefix+"/{projectId}/{rest...}", h.handleShell)
	}
	return mux
}

// respondJSON writes data as a JSON response with the given status code.
func (h *handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a JSON error response with the given status code and message.
func (h *handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondCacheable writes body with an xxhash ETag and answers a matching
// If-None-Match with 304.
func (h *handler) respondCacheable(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := computeETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		LoggerFromContext(r.Context()).Debug("write response", "error", err)
	}
}

// respondJSONCacheable is respondCacheable for JSON payloads.
func (h *handler) respondJSONCacheable(w http.ResponseWriter, r *http.Request, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		LoggerFromContext(r.Context()).Error("failed to encode JSON response", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.respondCacheable(w, r, "application/json", append(body, '\n'))
}

func computeETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
}

// etagMatches implements the weak comparison of If-None-Match.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
