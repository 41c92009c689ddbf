package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/streak"
)

type StreakHandler struct {
	streakStore *store.StreakStore
	engine      *streak.Engine
	logger      *slog.Logger
}

func NewStreakHandler(ss *store.StreakStore, engine *streak.Engine, logger *slog.Logger) *StreakHandler {
	return &StreakHandler{streakStore: ss, engine: engine, logger: logger}
}

func (h *StreakHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	active := r.URL.Query().Get("active") == "true"
	var streaks []model.Streak
	if active {
		streaks, err = h.streakStore.ListActiveByUser(userID)
	} else {
		streaks, err = h.streakStore.ListByUser(userID)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list streaks"})
		return
	}
	if streaks == nil {
		streaks = []model.Streak{}
	}
	writeJSON(w, http.StatusOK, streaks)
}

// Check runs the streak lapse sweep on demand. The scheduler runs the same
// sweep once a day; this endpoint exists so a parent can force it after
// editing holidays.
func (h *StreakHandler) Check(w http.ResponseWriter, r *http.Request) {
	result := h.engine.DailyCheck(time.Now().UTC())
	for _, err := range result.Errors {
		h.logger.Error("streak check", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"checked":     result.Checked,
		"deactivated": result.Deactivated,
		"errors":      len(result.Errors),
	})
}

type holidayRequest struct {
	FamilyID        int64  `json:"family_id"`
	Name            string `json:"name"`
	Date            string `json:"date"`
	AffectsAllTasks bool   `json:"affects_all_tasks"`
	UserID          *int64 `json:"user_id"`
}

func (h *StreakHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req holidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	if !req.AffectsAllTasks && req.UserID == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "holiday needs a user or affects_all_tasks"})
		return
	}

	holiday, err := h.streakStore.CreateHoliday(req.FamilyID, req.Name, date, req.AffectsAllTasks, req.UserID)
	if err != nil {
		h.logger.Error("create holiday", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create holiday"})
		return
	}
	writeJSON(w, http.StatusCreated, holiday)
}

func (h *StreakHandler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	holidays, err := h.streakStore.ListHolidaysByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list holidays"})
		return
	}
	if holidays == nil {
		holidays = []model.HolidayException{}
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *StreakHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.streakStore.GetHoliday(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get holiday"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "holiday not found"})
		return
	}

	if err := h.streakStore.DeleteHoliday(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete holiday"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
