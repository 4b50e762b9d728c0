package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/coord"
)

const version = "0.1.0"

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health handles the health check endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	allHealthy := true

	metaStart := time.Now()
	if err := h.meta.Ping(ctx); err != nil {
		checks["metadata"] = Check{Status: "fail", Message: "connection failed"}
		allHealthy = false
	} else {
		checks["metadata"] = Check{Status: "pass", Latency: time.Since(metaStart).String()}
	}

	// A miss on the probe key still proves the store answers.
	coordStart := time.Now()
	if _, err := h.coords.Get(ctx, "health:probe"); err != nil && !errors.Is(err, coord.ErrNotFound) {
		checks["coordination"] = Check{Status: "fail", Message: "connection failed"}
		allHealthy = false
	} else {
		checks["coordination"] = Check{Status: "pass", Latency: time.Since(coordStart).String()}
	}

	status := "healthy"
	code := http.StatusOK
	if !allHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	h.JSON(w, code, HealthResponse{
		Status:    status,
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
