package model

import "time"

const (
	ClaimStatusClaimed   = "claimed"
	ClaimStatusFulfilled = "fulfilled"
	ClaimStatusExpired   = "expired"
)

type Reward struct {
	ID            int64     `json:"id"`
	FamilyID      int64     `json:"family_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PointsCost    int       `json:"points_cost"`
	AllowanceCost int       `json:"allowance_cost"`
	Category      string    `json:"category"`
	IsActive      bool      `json:"is_active"`
	CreatedBy     *int64    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type ClaimedReward struct {
	ID             int64      `json:"id"`
	RewardID       int64      `json:"reward_id"`
	UserID         int64      `json:"user_id"`
	FamilyID       int64      `json:"family_id"`
	PointsSpent    int        `json:"points_spent"`
	AllowanceSpent int        `json:"allowance_spent"`
	RedemptionCode string     `json:"redemption_code"`
	Status         string     `json:"status"`
	ClaimedAt      time.Time  `json:"claimed_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

const (
	CelebrationReward    = "reward"
	CelebrationStreak    = "streak"
	CelebrationMilestone = "milestone"
	CelebrationGoal      = "goal"
)

// CelebrationEvent is a queued UI notification. Events stay pending until the
// client acknowledges them, so an event is delivered at least once.
type CelebrationEvent struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	UserID       int64     `json:"user_id"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
}
