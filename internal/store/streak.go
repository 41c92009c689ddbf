package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

type StreakStore struct {
	db *sql.DB
}

func NewStreakStore(db *sql.DB) *StreakStore {
	return &StreakStore{db: db}
}

// --- Streak methods ---

func scanStreak(scanner interface{ Scan(...any) error }) (*model.Streak, error) {
	var st model.Streak
	err := scanner.Scan(
		&st.ID, &st.UserID, &st.TaskID, &st.FamilyID,
		&st.CurrentStreak, &st.LongestStreak, &st.LastCompletionDate,
		&st.IsActive, &st.StartDate,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

const streakCols = `id, user_id, task_id, family_id, current_streak, longest_streak, last_completion_date, is_active, start_date`

func (s *StreakStore) GetByUserTask(userID, taskID int64) (*model.Streak, error) {
	row := s.db.QueryRow(`SELECT `+streakCols+` FROM streaks WHERE user_id = ? AND task_id = ?`, userID, taskID)
	st, err := scanStreak(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return st, nil
}

func (s *StreakStore) Create(userID, taskID, familyID int64, completedAt time.Time) (*model.Streak, error) {
	result, err := s.db.Exec(
		`INSERT INTO streaks (user_id, task_id, family_id, current_streak, longest_streak, last_completion_date, is_active, start_date)
		 VALUES (?, ?, ?, 1, 1, ?, 1, ?)`,
		userID, taskID, familyID, completedAt.UTC(), completedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert streak: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+streakCols+` FROM streaks WHERE id = ?`, id)
	return scanStreak(row)
}

func (s *StreakStore) Update(st *model.Streak) error {
	_, err := s.db.Exec(
		`UPDATE streaks SET current_streak = ?, longest_streak = ?, last_completion_date = ?, is_active = ?, start_date = ? WHERE id = ?`,
		st.CurrentStreak, st.LongestStreak, st.LastCompletionDate.UTC(), st.IsActive, st.StartDate.UTC(), st.ID,
	)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}

func (s *StreakStore) ListByUser(userID int64) ([]model.Streak, error) {
	return s.list(`SELECT `+streakCols+` FROM streaks WHERE user_id = ? ORDER BY current_streak DESC`, userID)
}

func (s *StreakStore) ListActiveByUser(userID int64) ([]model.Streak, error) {
	return s.list(`SELECT `+streakCols+` FROM streaks WHERE user_id = ? AND is_active = 1 ORDER BY current_streak DESC`, userID)
}

func (s *StreakStore) ListActive() ([]model.Streak, error) {
	return s.list(`SELECT ` + streakCols + ` FROM streaks WHERE is_active = 1 ORDER BY id ASC`)
}

func (s *StreakStore) list(query string, args ...any) ([]model.Streak, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list streaks: %w", err)
	}
	defer rows.Close()

	var streaks []model.Streak
	for rows.Next() {
		st, err := scanStreak(rows)
		if err != nil {
			return nil, fmt.Errorf("scan streak: %w", err)
		}
		streaks = append(streaks, *st)
	}
	return streaks, rows.Err()
}

// --- Holiday exception methods ---

func (s *StreakStore) CreateHoliday(familyID int64, name string, date time.Time, affectsAllTasks bool, userID *int64) (*model.HolidayException, error) {
	var uid sql.NullInt64
	if userID != nil {
		uid = sql.NullInt64{Int64: *userID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO holiday_exceptions (family_id, name, date, affects_all_tasks, user_id) VALUES (?, ?, ?, ?, ?)`,
		familyID, name, date.Format("2006-01-02"), affectsAllTasks, uid,
	)
	if err != nil {
		return nil, fmt.Errorf("insert holiday: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetHoliday(id)
}

func (s *StreakStore) GetHoliday(id int64) (*model.HolidayException, error) {
	row := s.db.QueryRow(
		`SELECT id, family_id, name, date, affects_all_tasks, user_id FROM holiday_exceptions WHERE id = ?`, id,
	)
	h, err := scanHoliday(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get holiday: %w", err)
	}
	return h, nil
}

func scanHoliday(scanner interface{ Scan(...any) error }) (*model.HolidayException, error) {
	var h model.HolidayException
	var date string
	var userID sql.NullInt64

	err := scanner.Scan(&h.ID, &h.FamilyID, &h.Name, &date, &h.AffectsAllTasks, &userID)
	if err != nil {
		return nil, err
	}

	h.Date, err = time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parse holiday date %q: %w", date, err)
	}
	if userID.Valid {
		h.UserID = &userID.Int64
	}
	return &h, nil
}

func (s *StreakStore) ListHolidaysByFamily(familyID int64) ([]model.HolidayException, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, name, date, affects_all_tasks, user_id FROM holiday_exceptions WHERE family_id = ? ORDER BY date ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []model.HolidayException
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, *h)
	}
	return holidays, rows.Err()
}

func (s *StreakStore) DeleteHoliday(id int64) error {
	_, err := s.db.Exec(`DELETE FROM holiday_exceptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return nil
}

// CountHolidayDates counts distinct exception dates strictly inside
// (after, before) that apply to the given user: either family-wide
// (affects_all_tasks) or scoped to that user.
func (s *StreakStore) CountHolidayDates(familyID, userID int64, after, before time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT date) FROM holiday_exceptions
		 WHERE family_id = ? AND date > ? AND date < ?
		   AND (affects_all_tasks = 1 OR user_id = ?)`,
		familyID, after.Format("2006-01-02"), before.Format("2006-01-02"), userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count holiday dates: %w", err)
	}
	return count, nil
}
