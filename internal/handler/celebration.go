package handler

import (
	"log/slog"
	"net/http"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

// CelebrationHandler serves the celebration queue. Clients poll or react to
// websocket nudges, show the next event full-screen, and acknowledge it so it
// is never shown twice.
type CelebrationHandler struct {
	celebStore *store.CelebrationStore
	logger     *slog.Logger
}

func NewCelebrationHandler(cs *store.CelebrationStore, logger *slog.Logger) *CelebrationHandler {
	return &CelebrationHandler{celebStore: cs, logger: logger}
}

func (h *CelebrationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	events, err := h.celebStore.ListPending(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list celebrations"})
		return
	}
	if events == nil {
		events = []model.CelebrationEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Next returns the oldest unacknowledged celebration, or 204 when the queue
// is empty.
func (h *CelebrationHandler) Next(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	event, err := h.celebStore.NextPending(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get celebration"})
		return
	}
	if event == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Acknowledge marks a celebration as shown. Acknowledging twice is a 409 so
// two screens racing on the same event resolve deterministically.
func (h *CelebrationHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	acked, err := h.celebStore.Acknowledge(id)
	if err != nil {
		h.logger.Error("acknowledge celebration", "event_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to acknowledge celebration"})
		return
	}
	if !acked {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "celebration already acknowledged"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}
