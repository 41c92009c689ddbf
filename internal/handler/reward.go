package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/reward"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/websocket"
)

type RewardHandler struct {
	rewardStore *store.RewardStore
	userStore   *store.UserStore
	engine      *reward.Engine
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, us *store.UserStore, engine *reward.Engine, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewardStore: rs, userStore: us, engine: engine, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

type rewardRequest struct {
	FamilyID      int64  `json:"family_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	PointsCost    int    `json:"points_cost"`
	AllowanceCost int    `json:"allowance_cost"`
	Category      string `json:"category"`
	IsActive      *bool  `json:"is_active"`
	CreatedBy     *int64 `json:"created_by"`
}

func (h *RewardHandler) validate(req *rewardRequest) string {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return "title is required"
	}
	if req.PointsCost < 0 || req.AllowanceCost < 0 {
		return "costs must not be negative"
	}
	if req.PointsCost == 0 && req.AllowanceCost == 0 {
		return "reward needs a points or allowance cost"
	}
	return ""
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := h.validate(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	rw, err := h.rewardStore.Create(model.Reward{
		FamilyID:      req.FamilyID,
		Title:         req.Title,
		Description:   req.Description,
		PointsCost:    req.PointsCost,
		AllowanceCost: req.AllowanceCost,
		Category:      req.Category,
		IsActive:      active,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create reward"})
		return
	}

	h.broadcast(rw.FamilyID, websocket.NewMessage("reward", "created", rw.ID, nil))
	writeJSON(w, http.StatusCreated, rw)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	rewards, err := h.rewardStore.ListByFamily(familyID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rewards"})
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewardStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	var req rewardRequest
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

	rw, err := h.rewardStore.Update(id, model.Reward{
		Title:         req.Title,
		Description:   req.Description,
		PointsCost:    req.PointsCost,
		AllowanceCost: req.AllowanceCost,
		Category:      req.Category,
		IsActive:      active,
	})
	if err != nil {
		h.logger.Error("update reward", "reward_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update reward"})
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("reward", "updated", id, nil))
	writeJSON(w, http.StatusOK, rw)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	existing, err := h.rewardStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	if err := h.rewardStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete reward"})
		return
	}

	h.broadcast(existing.FamilyID, websocket.NewMessage("reward", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type claimRequest struct {
	UserID int64 `json:"user_id"`
}

// Claim spends a user's balance on a reward. An insufficient balance comes
// back as 409 with how much is missing in each currency.
func (h *RewardHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	rw, err := h.rewardStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get reward"})
		return
	}
	if rw == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reward not found"})
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	user, err := h.userStore.GetByID(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check user"})
		return
	}
	if user == nil || user.FamilyID != rw.FamilyID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user not found in family"})
		return
	}

	claim, err := h.engine.Claim(rw, user.ID)
	var insufficient *reward.InsufficientFundsError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":             "insufficient balance",
			"missing_points":    insufficient.MissingPoints,
			"missing_allowance": insufficient.MissingAllowance,
		})
		return
	}
	if err != nil {
		h.logger.Error("claim reward", "reward_id", id, "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to claim reward"})
		return
	}

	h.broadcast(rw.FamilyID, websocket.NewMessage("reward", "claimed", claim.ID, map[string]any{
		"user_id":   user.ID,
		"reward_id": rw.ID,
	}))
	writeJSON(w, http.StatusCreated, claim)
}

func (h *RewardHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	claims, err := h.rewardStore.ListClaimsByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list claims"})
		return
	}
	if claims == nil {
		claims = []model.ClaimedReward{}
	}
	writeJSON(w, http.StatusOK, claims)
}

func (h *RewardHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	achievements, err := h.rewardStore.ListAchievementsByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list achievements"})
		return
	}
	if achievements == nil {
		achievements = []model.Achievement{}
	}
	writeJSON(w, http.StatusOK, achievements)
}
