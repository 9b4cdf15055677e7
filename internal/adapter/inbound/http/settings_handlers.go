package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/volview-xnat/volviewd/internal/domain/audit"
	"github.com/volview-xnat/volviewd/internal/service"
)

// maxSettingsBody caps the PUT /xapi/volview/settings request body.
const maxSettingsBody = 64 << 10

// handleListSettings returns the effective site settings. Any authenticated
// user may read them.
func (h *handler) handleListSettings(w http.ResponseWriter, r *http.Request) {
	if IdentityFromContext(r.Context()) == nil {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	h.respondJSON(w, http.StatusOK, h.settingsService.List(r.Context()))
}

// handleUpdateSettings stores site overrides. The body is a JSON object of
// setting key to value; a blank value removes the override.
func (h *handler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		h.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if !identity.IsAdmin() {
		h.audit(r, audit.Record{Event: audit.EventSettingsUpdate, Decision: audit.DecisionDeny, Reason: "forbidden"})
		h.respondError(w, http.StatusForbidden, "admin role required")
		return
	}

	var overrides map[string]string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody)).Decode(&overrides); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body: expected an object of setting values")
		return
	}

	views, err := h.settingsService.Update(r.Context(), overrides)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSetting) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		LoggerFromContext(r.Context()).Error("failed to update settings", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	h.audit(r, audit.Record{Event: audit.EventSettingsUpdate, Decision: audit.DecisionAllow, Changes: overrides})
	LoggerFromContext(r.Context()).Info("site settings updated", "identity_id", identity.ID, "keys", len(overrides))
	h.respondJSON(w, http.StatusOK, views)
}
