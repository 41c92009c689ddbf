package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

type FamilyPointsStore struct {
	db *sql.DB
}

func NewFamilyPointsStore(db *sql.DB) *FamilyPointsStore {
	return &FamilyPointsStore{db: db}
}

// GetTotal returns the family's shared point pool, creating the row on first
// access.
func (s *FamilyPointsStore) GetTotal(familyID int64) (*model.FamilyPointsTotal, error) {
	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO family_points (family_id, total_points) VALUES (?, 0)`, familyID,
	); err != nil {
		return nil, fmt.Errorf("init family points: %w", err)
	}

	var t model.FamilyPointsTotal
	var goalID sql.NullInt64
	err := s.db.QueryRow(
		`SELECT family_id, total_points, current_goal_id, last_updated FROM family_points WHERE family_id = ?`,
		familyID,
	).Scan(&t.FamilyID, &t.TotalPoints, &goalID, &t.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("get family points: %w", err)
	}
	if goalID.Valid {
		t.CurrentGoalID = &goalID.Int64
	}
	return &t, nil
}

// AddActivity records a family activity with its participants and increments
// the shared total, all in one transaction.
func (s *FamilyPointsStore) AddActivity(familyID, taskID int64, participants []int64, pointsEarned int) (*model.FamilyActivity, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO family_activities (family_id, task_id, points_earned) VALUES (?, ?, ?)`,
		familyID, taskID, pointsEarned,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, uid := range participants {
		if _, err := tx.Exec(
			`INSERT INTO family_activity_participants (activity_id, user_id) VALUES (?, ?)`,
			id, uid,
		); err != nil {
			return nil, fmt.Errorf("insert participant %d: %w", uid, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO family_points (family_id, total_points, last_updated) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(family_id) DO UPDATE SET total_points = total_points + ?, last_updated = CURRENT_TIMESTAMP`,
		familyID, pointsEarned, pointsEarned,
	); err != nil {
		return nil, fmt.Errorf("add family points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activity: %w", err)
	}
	return s.GetActivity(id)
}

func (s *FamilyPointsStore) GetActivity(id int64) (*model.FamilyActivity, error) {
	var a model.FamilyActivity
	err := s.db.QueryRow(
		`SELECT id, family_id, task_id, points_earned, created_at FROM family_activities WHERE id = ?`, id,
	).Scan(&a.ID, &a.FamilyID, &a.TaskID, &a.PointsEarned, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT user_id FROM family_activity_participants WHERE activity_id = ? ORDER BY user_id ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		a.Participants = append(a.Participants, uid)
	}
	return &a, rows.Err()
}

func (s *FamilyPointsStore) ListActivities(familyID int64, limit int) ([]model.FamilyActivity, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, task_id, points_earned, created_at FROM family_activities WHERE family_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		familyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []model.FamilyActivity
	for rows.Next() {
		var a model.FamilyActivity
		if err := rows.Scan(&a.ID, &a.FamilyID, &a.TaskID, &a.PointsEarned, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// --- Goal methods ---

func scanGoal(scanner interface{ Scan(...any) error }) (*model.FamilyGoal, error) {
	var g model.FamilyGoal
	var completedAt sql.NullTime

	err := scanner.Scan(
		&g.ID, &g.FamilyID, &g.Title, &g.TargetPoints, &g.RewardDescription,
		&g.IsActive, &g.IsCompleted, &completedAt, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		g.CompletedAt = &completedAt.Time
	}
	return &g, nil
}

const goalCols = `id, family_id, title, target_points, reward_description, is_active, is_completed, completed_at, created_at`

func (s *FamilyPointsStore) CreateGoal(familyID int64, title string, targetPoints int, rewardDescription string) (*model.FamilyGoal, error) {
	result, err := s.db.Exec(
		`INSERT INTO family_goals (family_id, title, target_points, reward_description) VALUES (?, ?, ?, ?)`,
		familyID, title, targetPoints, rewardDescription,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO family_points (family_id, total_points, current_goal_id) VALUES (?, 0, ?)
		 ON CONFLICT(family_id) DO UPDATE SET current_goal_id = ?`,
		familyID, id, id,
	); err != nil {
		return nil, fmt.Errorf("set current goal: %w", err)
	}

	return s.GetGoal(id)
}

func (s *FamilyPointsStore) GetGoal(id int64) (*model.FamilyGoal, error) {
	row := s.db.QueryRow(`SELECT `+goalCols+` FROM family_goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *FamilyPointsStore) ListGoals(familyID int64) ([]model.FamilyGoal, error) {
	rows, err := s.db.Query(
		`SELECT `+goalCols+` FROM family_goals WHERE family_id = ? ORDER BY is_completed ASC, created_at DESC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.FamilyGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// CompleteGoal marks a goal completed and deducts pointsSpent from the shared
// total, in one transaction. The guard on is_completed makes a second
// redemption fail with ErrGoalCompleted instead of double-deducting.
func (s *FamilyPointsStore) CompleteGoal(goalID int64, pointsSpent int, completedBy int64, at time.Time) (*model.FamilyGoal, error) {
	goal, err := s.GetGoal(goalID)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE family_goals SET is_completed = 1, is_active = 0, completed_at = ? WHERE id = ? AND is_completed = 0`,
		at.UTC(), goalID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete goal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrGoalCompleted
	}

	if _, err := tx.Exec(
		`UPDATE family_points SET total_points = total_points - ?, current_goal_id = NULL, last_updated = CURRENT_TIMESTAMP WHERE family_id = ?`,
		pointsSpent, goal.FamilyID,
	); err != nil {
		return nil, fmt.Errorf("deduct family points: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO celebration_events (family_id, user_id, type, title, message)
		 VALUES (?, ?, ?, ?, ?)`,
		goal.FamilyID, completedBy, model.CelebrationGoal, goal.Title, goal.RewardDescription,
	); err != nil {
		return nil, fmt.Errorf("insert celebration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit goal completion: %w", err)
	}
	return s.GetGoal(goalID)
}

func (s *FamilyPointsStore) DeleteGoal(id int64) error {
	_, err := s.db.Exec(`DELETE FROM family_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
