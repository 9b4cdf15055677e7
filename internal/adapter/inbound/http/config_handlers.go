package http

import (
	"errors"
	"net/http"

	"github.com/volview-xnat/volviewd/internal/domain/audit"
	"github.com/volview-xnat/volviewd/internal/domain/imaging"
	"github.com/volview-xnat/volviewd/internal/service"
)

// Session config outcomes recorded in volviewd_session_config_total.
const (
	outcomeOK              = "ok"
	outcomeUnauthenticated = "unauthenticated"
	outcomeNotFound        = "not_found"
	outcomeForbidden       = "forbidden"
	outcomeError           = "error"
)

// handleProjectConfig serves the project viewer configuration. It needs no
// user: the payload only describes where the viewer and DICOMweb live.
func (h *handler) handleProjectConfig(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	cfg := h.configService.ProjectConfig(h.resolveOrigin(r), projectID)
	h.respondJSONCacheable(w, r, cfg)
}

// handleSessionConfig serves the configuration for one imaging session.
func (h *handler) handleSessionConfig(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectId")
	sessionID := r.PathValue("sessionId")
	logger := LoggerFromContext(r.Context())

	cfg, err := h.configService.SessionConfig(r.Context(), IdentityFromContext(r.Context()),
		h.resolveOrigin(r), projectID, sessionID)
	if err != nil {
		status, outcome := sessionErrorStatus(err)
		h.recordSessionOutcome(outcome)
		h.audit(r, audit.Record{
			Event:     audit.EventSessionConfig,
			ProjectID: projectID,
			SessionID: sessionID,
			Decision:  audit.DecisionDeny,
			Reason:    outcome,
		})
		if status == http.StatusInternalServerError {
			logger.Error("session config failed", "project_id", projectID, "session_id", sessionID, "error", err)
			h.respondError(w, status, "internal error")
			return
		}
		logger.Warn("session config rejected",
			"project_id", projectID,
			"session_id", sessionID,
			"outcome", outcome,
			"error", err,
		)
		h.respondError(w, status, http.StatusText(status))
		return
	}

	h.recordSessionOutcome(outcomeOK)
	h.audit(r, audit.Record{
		Event:     audit.EventSessionConfig,
		ProjectID: projectID,
		SessionID: sessionID,
		Decision:  audit.DecisionAllow,
	})
	h.respondJSONCacheable(w, r, cfg)
}

func (h *handler) recordSessionOutcome(outcome string) {
	if h.metrics != nil {
		h.metrics.SessionConfigOutcomes.WithLabelValues(outcome).Inc()
	}
}

// sessionErrorStatus maps service errors to an HTTP status and metric label.
func sessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, outcomeUnauthenticated
	case errors.Is(err, imaging.ErrSessionNotFound):
		return http.StatusNotFound, outcomeNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, outcomeForbidden
	default:
		return http.StatusInternalServerError, outcomeError
	}
}
