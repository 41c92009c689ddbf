package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

type RewardStore struct {
	db *sql.DB
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{db: db}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var createdBy sql.NullInt64

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.Title, &r.Description, &r.PointsCost,
		&r.AllowanceCost, &r.Category, &r.IsActive, &createdBy, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		r.CreatedBy = &createdBy.Int64
	}
	return &r, nil
}

const rewardCols = `id, family_id, title, description, points_cost, allowance_cost, category, is_active, created_by, created_at`

func (s *RewardStore) Create(r model.Reward) (*model.Reward, error) {
	var createdBy sql.NullInt64
	if r.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: *r.CreatedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO rewards (family_id, title, description, points_cost, allowance_cost, category, is_active, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FamilyID, r.Title, r.Description, r.PointsCost, r.AllowanceCost, r.Category, r.IsActive, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.db.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// ListByFamily returns all of a family's rewards, active first, then by title.
func (s *RewardStore) ListByFamily(familyID int64) ([]model.Reward, error) {
	rows, err := s.db.Query(
		`SELECT `+rewardCols+` FROM rewards WHERE family_id = ? ORDER BY is_active DESC, title ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

func (s *RewardStore) Update(id int64, r model.Reward) (*model.Reward, error) {
	_, err := s.db.Exec(
		`UPDATE rewards SET title = ?, description = ?, points_cost = ?, allowance_cost = ?, category = ?, is_active = ? WHERE id = ?`,
		r.Title, r.Description, r.PointsCost, r.AllowanceCost, r.Category, r.IsActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM rewards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reward: %w", err)
	}
	return nil
}

// --- Claim methods ---

func scanClaim(scanner interface{ Scan(...any) error }) (*model.ClaimedReward, error) {
	var c model.ClaimedReward
	var expiresAt sql.NullTime

	err := scanner.Scan(
		&c.ID, &c.RewardID, &c.UserID, &c.FamilyID, &c.PointsSpent,
		&c.AllowanceSpent, &c.RedemptionCode, &c.Status, &c.ClaimedAt, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	return &c, nil
}

const claimCols = `id, reward_id, user_id, family_id, points_spent, allowance_spent, redemption_code, status, claimed_at, expires_at`

// CreateClaim records a reward claim and its celebration event in a single
// transaction. Balances are derived from completions minus claims, so the
// point and allowance deduction is exactly this insert: either both the claim
// and the celebration commit, or neither does.
func (s *RewardStore) CreateClaim(reward *model.Reward, userID int64, redemptionCode string, expiresAt *time.Time) (*model.ClaimedReward, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exp sql.NullTime
	if expiresAt != nil {
		exp = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	result, err := tx.Exec(
		`INSERT INTO claimed_rewards (reward_id, user_id, family_id, points_spent, allowance_spent, redemption_code, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reward.ID, userID, reward.FamilyID, reward.PointsCost, reward.AllowanceCost, redemptionCode, exp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO celebration_events (family_id, user_id, type, title, message)
		 VALUES (?, ?, ?, ?, ?)`,
		reward.FamilyID, userID, model.CelebrationReward, reward.Title, "Reward claimed!",
	)
	if err != nil {
		return nil, fmt.Errorf("insert celebration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+claimCols+` FROM claimed_rewards WHERE id = ?`, id)
	return scanClaim(row)
}

func (s *RewardStore) ListClaimsByUser(userID int64) ([]model.ClaimedReward, error) {
	rows, err := s.db.Query(
		`SELECT `+claimCols+` FROM claimed_rewards WHERE user_id = ? ORDER BY claimed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []model.ClaimedReward
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// --- Achievement methods ---

// RecordMilestone stores an achievement for a streak threshold and, when the
// threshold is newly crossed, queues its celebration event. The
// (streak, threshold) uniqueness makes repeat calls no-ops, which is what
// keeps milestone checks idempotent.
func (s *RewardStore) RecordMilestone(st *model.Streak, threshold int, title string) (bool, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT OR IGNORE INTO achievements (user_id, streak_id, task_id, threshold) VALUES (?, ?, ?, ?)`,
		st.UserID, st.ID, st.TaskID, threshold,
	)
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.Exec(
		`INSERT INTO celebration_events (family_id, user_id, type, title, message)
		 VALUES (?, ?, ?, ?, ?)`,
		st.FamilyID, st.UserID, model.CelebrationStreak, title,
		fmt.Sprintf("%d in a row!", threshold),
	)
	if err != nil {
		return false, fmt.Errorf("insert celebration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit milestone: %w", err)
	}
	return true, nil
}

func (s *RewardStore) ListAchievementsByUser(userID int64) ([]model.Achievement, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, streak_id, task_id, threshold, created_at FROM achievements WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []model.Achievement
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.StreakID, &a.TaskID, &a.Threshold, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}
