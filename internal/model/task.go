package model

import "time"

const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyOnce    = "once"
)

const (
	CompletionPending  = "pending"
	CompletionApproved = "approved"
	CompletionRejected = "rejected"
)

type Task struct {
	ID                   int64     `json:"id"`
	FamilyID             int64     `json:"family_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	AssignedTo           *int64    `json:"assigned_to"`
	Frequency            string    `json:"frequency"`
	Points               int       `json:"points"`
	AllowanceAmount      int       `json:"allowance_amount"`
	AllowanceEnabled     bool      `json:"allowance_enabled"`
	IsActive             bool      `json:"is_active"`
	IsFamily             bool      `json:"is_family"`
	RequiredParticipants int       `json:"required_participants"`
	CreatedBy            *int64    `json:"created_by"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type TaskCompletion struct {
	ID               int64      `json:"id"`
	TaskID           int64      `json:"task_id"`
	UserID           int64      `json:"user_id"`
	FamilyID         int64      `json:"family_id"`
	CompletedAt      time.Time  `json:"completed_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovedBy       *int64     `json:"approved_by,omitempty"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes"`
	PointsAwarded    int        `json:"points_awarded"`
	AllowanceAwarded int        `json:"allowance_awarded"`
}
