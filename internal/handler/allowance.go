package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kallevik/stjerne/internal/allowance"
	"github.com/kallevik/stjerne/internal/auth"
	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
	"github.com/kallevik/stjerne/internal/websocket"
)

type AllowanceHandler struct {
	allowanceStore *store.AllowanceStore
	taskStore      *store.TaskStore
	userStore      *store.UserStore
	hub            *websocket.Hub
	logger         *slog.Logger
}

func NewAllowanceHandler(as *store.AllowanceStore, ts *store.TaskStore, us *store.UserStore, hub *websocket.Hub, logger *slog.Logger) *AllowanceHandler {
	return &AllowanceHandler{
		allowanceStore: as,
		taskStore:      ts,
		userStore:      us,
		hub:            hub,
		logger:         logger,
	}
}

func (h *AllowanceHandler) broadcast(familyID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, msg)
	}
}

// weeklyCalc assembles the earned/pending/paid view for one user and week.
func (h *AllowanceHandler) weeklyCalc(userID int64, offset int) (*allowance.WeeklyCalculation, error) {
	weekStart, weekEnd := allowance.WeekWindow(time.Now(), offset)

	completions, err := h.taskStore.ListCompletionsInRange(userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	tasks := make(map[int64]model.Task)
	for _, c := range completions {
		if _, ok := tasks[c.TaskID]; ok {
			continue
		}
		task, err := h.taskStore.GetByID(c.TaskID)
		if err != nil {
			return nil, err
		}
		if task != nil {
			tasks[c.TaskID] = *task
		}
	}

	coverage, err := h.allowanceStore.CoverageForUser(userID)
	if err != nil {
		return nil, err
	}

	return allowance.Calculate(weekStart, weekEnd, completions, tasks, coverage), nil
}

// Weekly returns the allowance breakdown for a user's week. The week_offset
// query parameter selects the week, 0 being the current one.
func (h *AllowanceHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	offset := 0
	if raw := r.URL.Query().Get("week_offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid week_offset"})
			return
		}
	}

	calc, err := h.weeklyCalc(userID, offset)
	if err != nil {
		h.logger.Error("weekly allowance", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to calculate allowance"})
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

type paymentRequest struct {
	WeekOffset int    `json:"week_offset"`
	Notes      string `json:"notes"`
}

// CreatePayment freezes the user's uncovered earnings for a week into a
// pending payment.
func (h *AllowanceHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	user, err := h.userStore.GetByID(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	calc, err := h.weeklyCalc(userID, req.WeekOffset)
	if err != nil {
		h.logger.Error("payment calc", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to calculate allowance"})
		return
	}

	ids := allowance.UncoveredApprovedIDs(calc)
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to pay for this week"})
		return
	}

	payment, err := h.allowanceStore.CreatePayment(userID, user.FamilyID, calc.TotalPending, calc.WeekStart, calc.WeekEnd, ids, req.Notes)
	if err != nil {
		h.logger.Error("create payment", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create payment"})
		return
	}

	h.broadcast(user.FamilyID, websocket.NewMessage("payment", "created", payment.ID, map[string]any{
		"user_id": userID,
	}))
	writeJSON(w, http.StatusCreated, payment)
}

func (h *AllowanceHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	payments, err := h.allowanceStore.ListByUser(userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list payments"})
		return
	}
	if payments == nil {
		payments = []model.AllowancePayment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

type settleRequest struct {
	ParentID int64 `json:"parent_id"`
}

func (h *AllowanceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.PaymentPaid, "paid")
}

func (h *AllowanceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, model.PaymentCancelled, "cancelled")
}

// setStatus settles a pending payment. A payment that already left the
// pending state comes back as 409; cancelling returns its completions to the
// pending pool.
func (h *AllowanceHandler) setStatus(w http.ResponseWriter, r *http.Request, status, action string) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ParentID == 0 {
		req.ParentID = auth.ParentID(r.Context())
	}

	payment, err := h.allowanceStore.SetStatus(id, status, req.ParentID, time.Now().UTC())
	if errors.Is(err, store.ErrPaymentSettled) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "payment already settled"})
		return
	}
	if err != nil {
		h.logger.Error("settle payment", "payment_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update payment"})
		return
	}
	if payment == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "payment not found"})
		return
	}

	h.broadcast(payment.FamilyID, websocket.NewMessage("payment", action, payment.ID, map[string]any{
		"user_id": payment.UserID,
	}))
	writeJSON(w, http.StatusOK, payment)
}
