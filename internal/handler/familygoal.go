package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kallevik/stjerne/internal/auth"
	"github.com/kallevik/stjerne/internal/familypoints"
	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/websocket"
)

type FamilyGoalHandler struct {
	pointsStore *store.FamilyPointsStore
	taskStore   *store.TaskStore
	engine      *familypoints.Engine
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewFamilyGoalHandler(ps *store.FamilyPointsStore, ts *store.TaskStore, engine *familypoints.Engine, hub *websocket.Hub, logger *slog.Logger) *FamilyGoalHandler {
	return &FamilyGoalHandler{
		pointsStore: ps,
		taskStore:   ts,
		engine:      engine,
		hub:         hub,
		logger:      logger,
	}
}

func (h *FamilyGoalHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

// Total returns the family's shared point pool, with goal progress when a
// goal is active.
func (h *FamilyGoalHandler) Total(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	total, err := h.pointsStore.GetTotal(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get family points"})
		return
	}

	resp := map[string]any{"total": total}
	if total.CurrentGoalID != nil {
		goal, err := h.pointsStore.GetGoal(*total.CurrentGoalID)
		if err == nil && goal != nil {
			resp["goal"] = goal
			resp["progress"] = familypoints.Progress(total, goal)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type activityRequest struct {
	TaskID       int64   `json:"task_id"`
	Participants []int64 `json:"participants"`
}

// CreateActivity records a completed family task and credits its points to
// the pool.
func (h *FamilyGoalHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.taskStore.GetByID(req.TaskID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	activity, err := h.engine.AddPointsForActivity(task, req.Participants)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.broadcast(task.FamilyID, websocket.NewMessage("family_activity", "created", activity.ID, map[string]any{
		"points": activity.PointsEarned,
	}))
	writeJSON(w, http.StatusCreated, activity)
}

func (h *FamilyGoalHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
	}

	activities, err := h.pointsStore.ListActivities(familyID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list activities"})
		return
	}
	if activities == nil {
		activities = []model.FamilyActivity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

type goalRequest struct {
	FamilyID          int64  `json:"family_id"`
	Title             string `json:"title"`
	TargetPoints      int    `json:"target_points"`
	RewardDescription string `json:"reward_description"`
}

func (h *FamilyGoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.TargetPoints <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target_points must be positive"})
		return
	}

	goal, err := h.pointsStore.CreateGoal(req.FamilyID, req.Title, req.TargetPoints, req.RewardDescription)
	if err != nil {
		h.logger.Error("create goal", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create goal"})
		return
	}

	h.broadcast(req.FamilyID, websocket.NewMessage("family_goal", "created", goal.ID, nil))
	writeJSON(w, http.StatusCreated, goal)
}

func (h *FamilyGoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	goals, err := h.pointsStore.ListGoals(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list goals"})
		return
	}
	if goals == nil {
		goals = []model.FamilyGoal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

type completeGoalRequest struct {
	ParentID int64 `json:"parent_id"`
}

// CompleteGoal redeems a reached goal, spending its target from the pool.
func (h *FamilyGoalHandler) CompleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	goal, err := h.pointsStore.GetGoal(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get goal"})
		return
	}
	if goal == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "goal not found"})
		return
	}

	var req completeGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ParentID == 0 {
		req.ParentID = auth.ParentID(r.Context())
	}

	completed, err := h.engine.CompleteGoal(goal, req.ParentID)
	if errors.Is(err, familypoints.ErrGoalNotReached) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "goal target not reached"})
		return
	}
	if errors.Is(err, store.ErrGoalCompleted) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "goal already completed"})
		return
	}
	if err != nil {
		h.logger.Error("complete goal", "goal_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete goal"})
		return
	}

	h.broadcast(goal.FamilyID, websocket.NewMessage("family_goal", "completed", id, nil))
	writeJSON(w, http.StatusOK, completed)
}

func (h *FamilyGoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.pointsStore.GetGoal(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get goal"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "goal not found"})
		return
	}

	if err := h.pointsStore.DeleteGoal(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete goal"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
