package model

import "time"

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

type User struct {
	ID               int64     `json:"id"`
	FamilyID         int64     `json:"family_id"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Age              *int      `json:"age,omitempty"`
	HasPIN           bool      `json:"has_pin"`
	AllowanceEnabled bool      `json:"allowance_enabled"`
	AvatarEmoji      string    `json:"avatar_emoji"`
	SortOrder        int       `json:"sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Balance is a user's spendable totals: points and allowance earned through
// approved completions minus what reward claims have consumed.
type Balance struct {
	UserID          int64 `json:"user_id"`
	PointsEarned    int   `json:"points_earned"`
	PointsSpent     int   `json:"points_spent"`
	Points          int   `json:"points"`
	AllowanceEarned int   `json:"allowance_earned"`
	AllowanceSpent  int   `json:"allowance_spent"`
	Allowance       int   `json:"allowance"`
}

type ParentSession struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
