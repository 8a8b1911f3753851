package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/store"
)

// LayoutHandler handles requests for cached text layouts.
type LayoutHandler struct {
	store *store.Store
}

// NewLayoutHandler creates a LayoutHandler with the given store.
func NewLayoutHandler(s *store.Store) *LayoutHandler {
	return &LayoutHandler{store: s}
}

type layoutResponse struct {
	ID            string  `json:"id"`
	Text          string  `json:"text"`
	ParticleCount int     `json:"particle_count"`
	Width         float64 `json:"width"`
	Seed          uint64  `json:"seed"`
	CreatedAt     string  `json:"created_at"`
}

type listLayoutsResponse struct {
	Layouts []layoutResponse `json:"layouts"`
}

// ServeHTTP routes /api/layouts and /api/layouts/{id}.
func (h *LayoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/layouts"), "/")

	if id == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w)
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, id)
}

func (h *LayoutHandler) list(w http.ResponseWriter) {
	layouts, err := h.store.Layouts().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list layouts")
		return
	}

	response := listLayoutsResponse{Layouts: make([]layoutResponse, 0, len(layouts))}
	for _, l := range layouts {
		response.Layouts = append(response.Layouts, layoutResponse{
			ID:            l.ID,
			Text:          l.Key.Text,
			ParticleCount: l.Key.ParticleCount,
			Width:         l.Key.Width,
			Seed:          l.Key.Seed,
			CreatedAt:     formatTime(l.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *LayoutHandler) delete(w http.ResponseWriter, id string) {
	if err := h.store.Layouts().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Layout not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete layout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
