package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// ErrInvalidSetting marks an update the service refused. Handlers map it to
// 400; any other error is a 500.
var ErrInvalidSetting = errors.New("invalid setting")

// Settings are the host settings exposed over HTTP. FormationText is the
// stored value; ActiveText is what the running formation shows. Text layouts
// are fixed once loaded, so a new text takes effect at the next start.
type Settings struct {
	GlobalScale   float64 `json:"global_scale"`
	FormationText string  `json:"formation_text"`
	ActiveText    string  `json:"active_text"`
}

// SettingsUpdate carries the fields a client wants to change. Nil fields
// are left alone.
type SettingsUpdate struct {
	GlobalScale   *float64 `json:"global_scale,omitempty"`
	FormationText *string  `json:"formation_text,omitempty"`
}

// SettingsService reads and applies host settings.
type SettingsService interface {
	Settings() Settings
	UpdateSettings(SettingsUpdate) (Settings, error)
}

// SettingsHandler handles /api/settings.
type SettingsHandler struct {
	service SettingsService
}

// NewSettingsHandler creates a SettingsHandler backed by service.
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.service.Settings())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.GlobalScale == nil && req.FormationText == nil {
		writeError(w, http.StatusBadRequest, "No settings to update")
		return
	}
	if req.GlobalScale != nil && *req.GlobalScale <= 0 {
		writeError(w, http.StatusBadRequest, "global_scale must be positive")
		return
	}
	if req.FormationText != nil && strings.TrimSpace(*req.FormationText) == "" {
		writeError(w, http.StatusBadRequest, "formation_text must not be blank")
		return
	}

	updated, err := h.service.UpdateSettings(req)
	if err != nil {
		if errors.Is(err, ErrInvalidSetting) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
