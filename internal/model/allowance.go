package model

import "time"

const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentCancelled = "cancelled"
)

// AllowancePayment settles one user's earned allowance for one calendar week.
// The amount is frozen at creation; only the status may change afterwards.
type AllowancePayment struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	FamilyID      int64      `json:"family_id"`
	Amount        int        `json:"amount"`
	WeekStart     time.Time  `json:"week_start"`
	WeekEnd       time.Time  `json:"week_end"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	PaidBy        *int64     `json:"paid_by,omitempty"`
	Notes         string     `json:"notes"`
	CompletionIDs []int64    `json:"completion_ids"`
	CreatedAt     time.Time  `json:"created_at"`
}
