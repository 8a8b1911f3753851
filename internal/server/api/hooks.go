package api

import (
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/hook"
)

// HookHandler lists transition hooks and rescans the hook directory.
type HookHandler struct {
	manager *hook.Manager
}

// NewHookHandler creates a HookHandler for m.
func NewHookHandler(m *hook.Manager) *HookHandler {
	return &HookHandler{manager: m}
}

type hookResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	States      []string `json:"states"`
}

type listHooksResponse struct {
	Dir   string         `json:"dir"`
	Hooks []hookResponse `json:"hooks"`
}

// ServeHTTP routes GET /api/hooks and POST /api/hooks/reload.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/hooks"), "/") {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
	case "reload":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := h.manager.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to discover hooks")
			return
		}
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	h.list(w)
}

func (h *HookHandler) list(w http.ResponseWriter) {
	hooks := h.manager.List()
	response := listHooksResponse{
		Dir:   h.manager.Dir(),
		Hooks: make([]hookResponse, 0, len(hooks)),
	}
	for _, hk := range hooks {
		states := hk.Manifest.States
		if states == nil {
			states = []string{}
		}
		response.Hooks = append(response.Hooks, hookResponse{
			Name:        hk.Manifest.Name,
			Version:     hk.Manifest.Version,
			Description: hk.Manifest.Description,
			States:      states,
		})
	}
	writeJSON(w, http.StatusOK, response)
}
