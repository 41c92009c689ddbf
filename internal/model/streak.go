package model

import "time"

// Streak tracks consecutive qualifying completions of one task by one user.
// One row exists per (user, task) pair.
type Streak struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	TaskID             int64     `json:"task_id"`
	FamilyID           int64     `json:"family_id"`
	CurrentStreak      int       `json:"current_streak"`
	LongestStreak      int       `json:"longest_streak"`
	LastCompletionDate time.Time `json:"last_completion_date"`
	IsActive           bool      `json:"is_active"`
	StartDate          time.Time `json:"start_date"`
}

// HolidayException suspends streak-breaking for one date, either family-wide
// or for a single user.
type HolidayException struct {
	ID              int64     `json:"id"`
	FamilyID        int64     `json:"family_id"`
	Name            string    `json:"name"`
	Date            time.Time `json:"date"`
	AffectsAllTasks bool      `json:"affects_all_tasks"`
	UserID          *int64    `json:"user_id,omitempty"`
}

type Achievement struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	StreakID  int64     `json:"streak_id"`
	TaskID    int64     `json:"task_id"`
	Threshold int       `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}
