package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tranHoang-Phuc/chat-storage-arch/internal/models"
	"github.com/tranHoang-Phuc/chat-storage-arch/internal/reader"
)

// Page size bounds for the read endpoint. The engine-level cap is higher;
// the HTTP surface stays conservative.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// WriteMessageRequest is the append request body.
type WriteMessageRequest struct {
	Role      string         `json:"role"`
	Body      any            `json:"body"`
	Meta      map[string]any `json:"meta,omitempty"`
	ClientKey string         `json:"clientKey,omitempty"`
}

// WriteMessageResponse acknowledges a durable write.
type WriteMessageResponse struct {
	MsgID  string `json:"msgId"`
	Seq    int64  `json:"seq"`
	Status string `json:"status"` // "created" or "already_exists"
}

// ReadMessagesResponse is one page of a conversation window.
type ReadMessagesResponse struct {
	Messages   []models.MessageRecord `json:"messages"`
	NextCursor *int64                 `json:"nextCursor,omitempty"`
}

// WriteMessage handles POST /conversations/{conversationId}/messages.
func (h *Handler) WriteMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationId")

	// UseNumber keeps body numbers as written; re-encoding them any other
	// way would change the content address.
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var req WriteMessageRequest
	if err := dec.Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		h.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Body == nil {
		h.Error(w, http.StatusBadRequest, "body is required")
		return
	}

	rec, replayed, err := h.writes.Write(r.Context(), conversationID, role, req.Body, req.Meta, req.ClientKey)
	if err != nil {
		h.log.Error().Err(err).Str("conversation_id", conversationID).Msg("write failed")
		h.Error(w, http.StatusInternalServerError, "write failed")
		return
	}

	resp := WriteMessageResponse{MsgID: rec.MsgID, Seq: rec.Seq, Status: "created"}
	status := http.StatusCreated
	if replayed {
		resp.Status = "already_exists"
		status = http.StatusOK
	}
	h.JSON(w, status, resp)
}

// ReadMessages handles GET /conversations/{conversationId}/messages.
// Query parameters: cursor (seq, exclusive), limit, order (asc|desc).
func (h *Handler) ReadMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationId")

	var cursor int64
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.Error(w, http.StatusBadRequest, "cursor must be an integer")
			return
		}
		cursor = n
	}

	limit := defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageLimit {
			h.Error(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageLimit))
			return
		}
		limit = n
	}

	ascending := true
	switch r.URL.Query().Get("order") {
	case "", "asc":
	case "desc":
		ascending = false
		if cursor == 0 {
			// Descending from the top means "newest first".
			cursor = int64(^uint64(0) >> 1)
		}
	default:
		h.Error(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	recs, err := h.reads.ReadWindow(r.Context(), conversationID, cursor, limit, ascending)
	if err != nil {
		switch {
		case errors.Is(err, reader.ErrValidation):
			h.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, reader.ErrMissingMapping):
			h.log.Error().Err(err).Str("conversation_id", conversationID).Msg("read failed")
			h.Error(w, http.StatusInternalServerError, "segment mapping missing")
		default:
			h.log.Error().Err(err).Str("conversation_id", conversationID).Msg("read failed")
			h.Error(w, http.StatusInternalServerError, "read failed")
		}
		return
	}

	resp := ReadMessagesResponse{Messages: recs}
	if len(recs) == limit {
		next := recs[len(recs)-1].Seq
		resp.NextCursor = &next
	}
	h.JSON(w, http.StatusOK, resp)
}
