package handlers

import (
	"net/http"
	"time"
)

// StatsResponse summarizes reference counts per storage tier.
type StatsResponse struct {
	TotalMessages int64  `json:"total_messages"`
	CASRefs       int64  `json:"cas_refs"`
	SegRefs       int64  `json:"seg_refs"`
	Timestamp     string `json:"timestamp"`
}

// Stats returns storage tier statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.meta.Stats(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("stats query failed")
		h.Error(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalMessages: stats.TotalMessages,
		CASRefs:       stats.CASRefs,
		SegRefs:       stats.SegRefs,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
