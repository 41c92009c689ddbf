package model

import "time"

type FamilyGoal struct {
	ID                int64      `json:"id"`
	FamilyID          int64      `json:"family_id"`
	Title             string     `json:"title"`
	TargetPoints      int        `json:"target_points"`
	RewardDescription string     `json:"reward_description"`
	IsActive          bool       `json:"is_active"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// FamilyPointsTotal is the shared point pool for one family, separate from
// individual user points.
type FamilyPointsTotal struct {
	FamilyID      int64     `json:"family_id"`
	TotalPoints   int       `json:"total_points"`
	CurrentGoalID *int64    `json:"current_goal_id,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

type FamilyActivity struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	TaskID       int64     `json:"task_id"`
	PointsEarned int       `json:"points_earned"`
	Participants []int64   `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}
