package http

import (
	"net/http"
	"strconv"

	"github.com/volview-xnat/volviewd/internal/domain/audit"
)

// Auditor receives access audit records and answers queries over the
// recent ones.
type Auditor interface {
	Record(rec audit.Record)
	Query(f audit.Filter) []audit.Record
}

// audit records rec stamped with the request's ID, caller and peer address.
func (h *handler) audit(r *http.Request, rec audit.Record) {
	if h.auditor == nil {
		return
	}
	if id, ok := r.Context().Value(RequestIDKey).(string); ok {
		rec.RequestID = id
	}
	if identity := IdentityFromContext(r.Context()); identity != nil {
		rec.IdentityID = identity.ID
	}
	rec.RemoteAddr = r.RemoteAddr
	h.auditor.Record(rec)
}

// handleAuditQuery returns recent audit records, newest first. Admin only.
// Query parameters: event, identity, decision, project, limit.
func (h *handler) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !identity.IsAdmin() {
		h.respondError(w, http.StatusForbidden, "admin role required")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Event:      q.Get("event"),
		IdentityID: q.Get("identity"),
		Decision:   q.Get("decision"),
		ProjectID:  q.Get("project"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	records := h.auditor.Query(filter)
	if records == nil {
		records = []audit.Record{}
	}
	h.respondJSON(w, http.StatusOK, records)
}
