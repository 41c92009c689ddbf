package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

// FamilyExport is a portable snapshot of everything one family owns.
type FamilyExport struct {
	Version     int                      `json:"version"`
	ExportedAt  time.Time                `json:"exported_at"`
	Family      model.Family             `json:"family"`
	Users       []model.User             `json:"users"`
	Tasks       []model.Task             `json:"tasks"`
	Completions []model.TaskCompletion   `json:"completions"`
	Streaks     []model.Streak           `json:"streaks"`
	Holidays    []model.HolidayException `json:"holidays"`
	Rewards     []model.Reward           `json:"rewards"`
	Claims      []model.ClaimedReward    `json:"claims"`
	Goals       []model.FamilyGoal       `json:"goals"`
	Points      *model.FamilyPointsTotal `json:"points,omitempty"`
	Activities  []model.FamilyActivity   `json:"activities"`
	Payments    []model.AllowancePayment `json:"payments"`
}

const exportVersion = 1

// ExportStore serializes and restores whole families. It leans on the other
// stores for row shapes and keeps id remapping in one place.
type ExportStore struct {
	db *sql.DB

	families  *FamilyStore
	users     *UserStore
	tasks     *TaskStore
	streaks   *StreakStore
	rewards   *RewardStore
	points    *FamilyPointsStore
	allowance *AllowanceStore
}

func NewExportStore(db *sql.DB) *ExportStore {
	return &ExportStore{
		db:        db,
		families:  NewFamilyStore(db),
		users:     NewUserStore(db),
		tasks:     NewTaskStore(db),
		streaks:   NewStreakStore(db),
		rewards:   NewRewardStore(db),
		points:    NewFamilyPointsStore(db),
		allowance: NewAllowanceStore(db),
	}
}

// Export gathers every record a family owns into one document. Returns nil
// when the family does not exist.
func (s *ExportStore) Export(familyID int64) (*FamilyExport, error) {
	family, err := s.families.GetByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, nil
	}

	exp := &FamilyExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Family:     *family,
	}

	if exp.Users, err = s.users.ListByFamily(familyID); err != nil {
		return nil, err
	}
	if exp.Tasks, err = s.tasks.ListByFamily(familyID); err != nil {
		return nil, err
	}
	for _, u := range exp.Users {
		completions, err := s.tasks.ListCompletionsInRange(u.ID, time.Time{}, time.Now().Add(24*time.Hour))
		if err != nil {
			return nil, err
		}
		exp.Completions = append(exp.Completions, completions...)

		streaks, err := s.streaks.ListByUser(u.ID)
		if err != nil {
			return nil, err
		}
		exp.Streaks = append(exp.Streaks, streaks...)

		claims, err := s.rewards.ListClaimsByUser(u.ID)
		if err != nil {
			return nil, err
		}
		exp.Claims = append(exp.Claims, claims...)

		payments, err := s.allowance.ListByUser(u.ID)
		if err != nil {
			return nil, err
		}
		exp.Payments = append(exp.Payments, payments...)
	}
	if exp.Holidays, err = s.streaks.ListHolidaysByFamily(familyID); err != nil {
		return nil, err
	}
	if exp.Rewards, err = s.rewards.ListByFamily(familyID); err != nil {
		return nil, err
	}
	if exp.Goals, err = s.points.ListGoals(familyID); err != nil {
		return nil, err
	}
	if exp.Points, err = s.points.GetTotal(familyID); err != nil {
		return nil, err
	}
	if exp.Activities, err = s.points.ListActivities(familyID, 10000); err != nil {
		return nil, err
	}
	for i := range exp.Activities {
		a, err := s.points.GetActivity(exp.Activities[i].ID)
		if err != nil {
			return nil, err
		}
		if a != nil {
			exp.Activities[i].Participants = a.Participants
		}
	}

	return exp, nil
}

// Import restores an exported family as a new family inside a single
// transaction; any failure rolls the whole restore back. Returns the new
// family id.
func (s *ExportStore) Import(exp *FamilyExport) (int64, error) {
	if exp.Version != exportVersion {
		return 0, fmt.Errorf("unsupported export version %d", exp.Version)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insert := func(query string, args ...any) (int64, error) {
		result, err := tx.Exec(query, args...)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	}

	familyID, err := insert(`INSERT INTO families (name, created_at) VALUES (?, ?)`,
		exp.Family.Name, exp.Family.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("import family: %w", err)
	}

	userIDs := make(map[int64]int64, len(exp.Users))
	for _, u := range exp.Users {
		var age sql.NullInt64
		if u.Age != nil {
			age = sql.NullInt64{Int64: int64(*u.Age), Valid: true}
		}
		id, err := insert(
			`INSERT INTO users (family_id, name, role, age, allowance_enabled, avatar_emoji, sort_order, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			familyID, u.Name, u.Role, age, u.AllowanceEnabled, u.AvatarEmoji, u.SortOrder,
			u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("import user %q: %w", u.Name, err)
		}
		userIDs[u.ID] = id
	}

	mapUser := func(old *int64) sql.NullInt64 {
		if old == nil {
			return sql.NullInt64{}
		}
		if id, ok := userIDs[*old]; ok {
			return sql.NullInt64{Int64: id, Valid: true}
		}
		return sql.NullInt64{}
	}

	taskIDs := make(map[int64]int64, len(exp.Tasks))
	for _, t := range exp.Tasks {
		id, err := insert(
			`INSERT INTO tasks (family_id, title, description, assigned_to, frequency, points, allowance_amount, allowance_enabled, is_active, is_family, required_participants, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			familyID, t.Title, t.Description, mapUser(t.AssignedTo), t.Frequency, t.Points,
			t.AllowanceAmount, t.AllowanceEnabled, t.IsActive, t.IsFamily,
			t.RequiredParticipants, mapUser(t.CreatedBy), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("import task %q: %w", t.Title, err)
		}
		taskIDs[t.ID] = id
	}

	completionIDs := make(map[int64]int64, len(exp.Completions))
	for _, c := range exp.Completions {
		taskID, ok := taskIDs[c.TaskID]
		if !ok {
			return 0, fmt.Errorf("import completion %d: unknown task %d", c.ID, c.TaskID)
		}
		var approvedAt sql.NullTime
		if c.ApprovedAt != nil {
			approvedAt = sql.NullTime{Time: c.ApprovedAt.UTC(), Valid: true}
		}
		id, err := insert(
			`INSERT INTO task_completions (task_id, user_id, family_id, completed_at, approved_at, approved_by, status, notes, points_awarded, allowance_awarded)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			taskID, userIDs[c.UserID], familyID, c.CompletedAt.UTC(), approvedAt,
			mapUser(c.ApprovedBy), c.Status, c.Notes, c.PointsAwarded, c.AllowanceAwarded,
		)
		if err != nil {
			return 0, fmt.Errorf("import completion %d: %w", c.ID, err)
		}
		completionIDs[c.ID] = id
	}

	for _, st := range exp.Streaks {
		taskID, ok := taskIDs[st.TaskID]
		if !ok {
			return 0, fmt.Errorf("import streak %d: unknown task %d", st.ID, st.TaskID)
		}
		if _, err := insert(
			`INSERT INTO streaks (user_id, task_id, family_id, current_streak, longest_streak, last_completion_date, is_active, start_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			userIDs[st.UserID], taskID, familyID, st.CurrentStreak, st.LongestStreak,
			st.LastCompletionDate.UTC(), st.IsActive, st.StartDate.UTC(),
		); err != nil {
			return 0, fmt.Errorf("import streak %d: %w", st.ID, err)
		}
	}

	for _, h := range exp.Holidays {
		if _, err := insert(
			`INSERT INTO holiday_exceptions (family_id, name, date, affects_all_tasks, user_id) VALUES (?, ?, ?, ?, ?)`,
			familyID, h.Name, h.Date.Format("2006-01-02"), h.AffectsAllTasks, mapUser(h.UserID),
		); err != nil {
			return 0, fmt.Errorf("import holiday %q: %w", h.Name, err)
		}
	}

	rewardIDs := make(map[int64]int64, len(exp.Rewards))
	for _, r := range exp.Rewards {
		id, err := insert(
			`INSERT INTO rewards (family_id, title, description, points_cost, allowance_cost, category, is_active, created_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			familyID, r.Title, r.Description, r.PointsCost, r.AllowanceCost, r.Category,
			r.IsActive, mapUser(r.CreatedBy), r.CreatedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("import reward %q: %w", r.Title, err)
		}
		rewardIDs[r.ID] = id
	}

	for _, c := range exp.Claims {
		rewardID, ok := rewardIDs[c.RewardID]
		if !ok {
			return 0, fmt.Errorf("import claim %d: unknown reward %d", c.ID, c.RewardID)
		}
		var expiresAt sql.NullTime
		if c.ExpiresAt != nil {
			expiresAt = sql.NullTime{Time: c.ExpiresAt.UTC(), Valid: true}
		}
		if _, err := insert(
			`INSERT INTO claimed_rewards (reward_id, user_id, family_id, points_spent, allowance_spent, redemption_code, status, claimed_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rewardID, userIDs[c.UserID], familyID, c.PointsSpent, c.AllowanceSpent,
			c.RedemptionCode, c.Status, c.ClaimedAt.UTC(), expiresAt,
		); err != nil {
			return 0, fmt.Errorf("import claim %d: %w", c.ID, err)
		}
	}

	for _, g := range exp.Goals {
		var completedAt sql.NullTime
		if g.CompletedAt != nil {
			completedAt = sql.NullTime{Time: g.CompletedAt.UTC(), Valid: true}
		}
		if _, err := insert(
			`INSERT INTO family_goals (family_id, title, target_points, reward_description, is_active, is_completed, completed_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			familyID, g.Title, g.TargetPoints, g.RewardDescription, g.IsActive,
			g.IsCompleted, completedAt, g.CreatedAt.UTC(),
		); err != nil {
			return 0, fmt.Errorf("import goal %q: %w", g.Title, err)
		}
	}

	if exp.Points != nil {
		if _, err := insert(
			`INSERT INTO family_points (family_id, total_points) VALUES (?, ?)`,
			familyID, exp.Points.TotalPoints,
		); err != nil {
			return 0, fmt.Errorf("import family points: %w", err)
		}
	}

	for _, a := range exp.Activities {
		taskID, ok := taskIDs[a.TaskID]
		if !ok {
			return 0, fmt.Errorf("import activity %d: unknown task %d", a.ID, a.TaskID)
		}
		id, err := insert(
			`INSERT INTO family_activities (family_id, task_id, points_earned, created_at) VALUES (?, ?, ?, ?)`,
			familyID, taskID, a.PointsEarned, a.CreatedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("import activity %d: %w", a.ID, err)
		}
		for _, uid := range a.Participants {
			if _, err := insert(
				`INSERT INTO family_activity_participants (activity_id, user_id) VALUES (?, ?)`,
				id, userIDs[uid],
			); err != nil {
				return 0, fmt.Errorf("import activity %d participant: %w", a.ID, err)
			}
		}
	}

	for _, p := range exp.Payments {
		var paidAt sql.NullTime
		if p.PaidAt != nil {
			paidAt = sql.NullTime{Time: p.PaidAt.UTC(), Valid: true}
		}
		id, err := insert(
			`INSERT INTO allowance_payments (user_id, family_id, amount, week_start, week_end, status, paid_at, paid_by, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			userIDs[p.UserID], familyID, p.Amount, p.WeekStart.Format("2006-01-02"),
			p.WeekEnd.Format("2006-01-02"), p.Status, paidAt, mapUser(p.PaidBy), p.Notes, p.CreatedAt.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("import payment %d: %w", p.ID, err)
		}
		for _, cid := range p.CompletionIDs {
			newCID, ok := completionIDs[cid]
			if !ok {
				return 0, fmt.Errorf("import payment %d: unknown completion %d", p.ID, cid)
			}
			if _, err := insert(
				`INSERT INTO allowance_payment_completions (payment_id, completion_id) VALUES (?, ?)`,
				id, newCID,
			); err != nil {
				return 0, fmt.Errorf("import payment %d link: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return familyID, nil
}
