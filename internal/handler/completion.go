package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kallevik/stjerne/internal/auth"
	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/reward"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/streak"
	"github.com/kallevik/stjerne/internal/websocket"
)

// CompletionHandler reviews pending completions. Approval is the moment a
// completion starts counting: the streak advances, milestones are checked,
// and the frozen points and allowance become spendable.
type CompletionHandler struct {
	taskStore    *store.TaskStore
	streakEngine *streak.Engine
	rewardEngine *reward.Engine
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewCompletionHandler(ts *store.TaskStore, se *streak.Engine, re *reward.Engine, hub *websocket.Hub, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{
		taskStore:    ts,
		streakEngine: se,
		rewardEngine: re,
		hub:          hub,
		logger:       logger,
	}
}

func (h *CompletionHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

func (h *CompletionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	pending, err := h.taskStore.ListPendingByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list pending completions"})
		return
	}
	if pending == nil {
		pending = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type reviewRequest struct {
	ReviewerID int64 `json:"reviewer_id"`
}

// reviewer falls back to the session parent when the body names nobody.
func (req reviewRequest) reviewer(r *http.Request) int64 {
	if req.ReviewerID != 0 {
		return req.ReviewerID
	}
	return auth.ParentID(r.Context())
}

func (h *CompletionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	completion, err := h.taskStore.SetCompletionStatus(id, model.CompletionApproved, req.reviewer(r), time.Now().UTC())
	if errors.Is(err, store.ErrNotPending) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "completion already reviewed"})
		return
	}
	if err != nil {
		h.logger.Error("approve completion", "completion_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to approve completion"})
		return
	}
	if completion == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "completion not found"})
		return
	}

	task, err := h.taskStore.GetByID(completion.TaskID)
	if err != nil || task == nil {
		h.logger.Error("load task for approval", "task_id", completion.TaskID, "error", err)
	} else {
		st, err := h.streakEngine.RecordCompletion(task, completion.UserID, completion.CompletedAt)
		if err != nil {
			h.logger.Error("record streak", "completion_id", id, "error", err)
		} else if st != nil {
			if _, err := h.rewardEngine.CheckMilestones(st, task.Title); err != nil {
				h.logger.Error("check milestones", "streak_id", st.ID, "error", err)
			}
			h.broadcast(completion.FamilyID, websocket.NewMessage("streak", "updated", st.ID, map[string]any{
				"user_id": st.UserID,
				"current": st.CurrentStreak,
			}))
		}
	}

	h.broadcast(completion.FamilyID, websocket.NewMessage("completion", "approved", completion.ID, map[string]any{
		"user_id": completion.UserID,
	}))
	writeJSON(w, http.StatusOK, completion)
}

func (h *CompletionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	completion, err := h.taskStore.SetCompletionStatus(id, model.CompletionRejected, req.reviewer(r), time.Now().UTC())
	if errors.Is(err, store.ErrNotPending) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "completion already reviewed"})
		return
	}
	if err != nil {
		h.logger.Error("reject completion", "completion_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reject completion"})
		return
	}
	if completion == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "completion not found"})
		return
	}

	h.broadcast(completion.FamilyID, websocket.NewMessage("completion", "rejected", completion.ID, map[string]any{
		"user_id": completion.UserID,
	}))
	writeJSON(w, http.StatusOK, completion)
}
