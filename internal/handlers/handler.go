package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/reader"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/store"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/writer"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	writes *writer.Writer
	reads  *reader.Reader
	meta   store.MetadataStore
	coords coord.Store
	log    zerolog.Logger
}

// NewHandler creates a new Handler with the given collaborators.
func NewHandler(writes *writer.Writer, reads *reader.Reader, meta store.MetadataStore,
	coords coord.Store, log zerolog.Logger) *Handler {
	return &Handler{
		writes: writes,
		reads:  reads,
		meta:   meta,
		coords: coords,
		log:    log,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
