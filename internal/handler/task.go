package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/websocket"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	userStore *store.UserStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, userStore: us, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type taskRequest struct {
	FamilyID             int64  `json:"family_id"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	AssignedTo           *int64 `json:"assigned_to"`
	Frequency            string `json:"frequency"`
	Points               int    `json:"points"`
	AllowanceAmount      int    `json:"allowance_amount"`
	AllowanceEnabled     bool   `json:"allowance_enabled"`
	IsActive             *bool  `json:"is_active"`
	IsFamily             bool   `json:"is_family"`
	RequiredParticipants int    `json:"required_participants"`
	CreatedBy            *int64 `json:"created_by"`
}

func validFrequency(f string) bool {
	switch f {
	case model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyMonthly, model.FrequencyOnce:
		return true
	}
	return false
}

func (h *TaskHandler) validate(req *taskRequest) string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if !validFrequency(req.Frequency) {
		return "frequency must be daily, weekly, monthly, or once"
	}
	if req.Points < 0 || req.AllowanceAmount < 0 {
		return "points and allowance must not be negative"
	}
	if req.IsFamily && req.RequiredParticipants < 2 {
		return "family tasks need at least 2 participants"
	}
	return ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	if req.AssignedTo != nil {
		user, err := h.userStore.GetByID(*req.AssignedTo)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check assignee"})
			return
		}
		if user == nil || user.FamilyID != req.FamilyID {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "assignee not found in family"})
			return
		}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	task, err := h.taskStore.Create(model.Task{
		FamilyID:             req.FamilyID,
		Title:                req.Title,
		Description:          req.Description,
		AssignedTo:           req.AssignedTo,
		Frequency:            req.Frequency,
		Points:               req.Points,
		AllowanceAmount:      req.AllowanceAmount,
		AllowanceEnabled:     req.AllowanceEnabled,
		IsActive:             active,
		IsFamily:             req.IsFamily,
		RequiredParticipants: req.RequiredParticipants,
		CreatedBy:            req.CreatedBy,
	})
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("task", "created", task.ID, nil))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	tasks, err := h.taskStore.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ListByUser returns the tasks assigned to a single user, family
// activities included.
func (h *TaskHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	tasks, err := h.taskStore.ListByAssignee(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	active := existing.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}

	task, err := h.taskStore.Update(id, model.Task{
		Title:                req.Title,
		Description:          req.Description,
		AssignedTo:           req.AssignedTo,
		Frequency:            req.Frequency,
		Points:               req.Points,
		AllowanceAmount:      req.AllowanceAmount,
		AllowanceEnabled:     req.AllowanceEnabled,
		IsActive:             active,
		IsFamily:             req.IsFamily,
		RequiredParticipants: req.RequiredParticipants,
	})
	if err != nil {
		h.logger.Error("update task", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("task", "updated", id, nil))
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if err := h.taskStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type completeRequest struct {
	UserID int64  `json:"user_id"`
	Notes  string `json:"notes"`
}

// Complete marks a task done by a child. The completion sits in the pending
// queue until a parent reviews it; points and allowance are frozen now so a
// later task edit cannot change what this completion is worth.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	if !task.IsActive {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task is not active"})
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	user, err := h.userStore.GetByID(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check user"})
		return
	}
	if user == nil || user.FamilyID != task.FamilyID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found in family"})
		return
	}
	if task.AssignedTo != nil && *task.AssignedTo != user.ID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task is assigned to someone else"})
		return
	}

	completion, err := h.taskStore.CreateCompletion(task, user.ID, time.Now().UTC(), req.Notes)
	if err != nil {
		h.logger.Error("create completion", "task_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to record completion"})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("completion", "created", completion.ID, map[string]any{
		"task_id": task.ID,
		"user_id": user.ID,
	}))
	writeJSON(w, http.StatusCreated, completion)
}
