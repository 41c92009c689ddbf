package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// --- Task methods ---

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var assignedTo, createdBy sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.FamilyID, &t.Title, &t.Description, &assignedTo,
		&t.Frequency, &t.Points, &t.AllowanceAmount, &t.AllowanceEnabled,
		&t.IsActive, &t.IsFamily, &t.RequiredParticipants, &createdBy,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.Int64
	}
	if createdBy.Valid {
		t.CreatedBy = &createdBy.Int64
	}
	return &t, nil
}

const taskCols = `id, family_id, title, description, assigned_to, frequency, points, allowance_amount, allowance_enabled, is_active, is_family, required_participants, created_by, created_at, updated_at`

func (s *TaskStore) Create(t model.Task) (*model.Task, error) {
	var assignedTo, createdBy sql.NullInt64
	if t.AssignedTo != nil {
		assignedTo = sql.NullInt64{Int64: *t.AssignedTo, Valid: true}
	}
	if t.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: *t.CreatedBy, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (family_id, title, description, assigned_to, frequency, points, allowance_amount, allowance_enabled, is_active, is_family, required_participants, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.FamilyID, t.Title, t.Description, assignedTo, t.Frequency, t.Points,
		t.AllowanceAmount, t.AllowanceEnabled, t.IsActive, t.IsFamily,
		t.RequiredParticipants, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByFamily(familyID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks WHERE family_id = ? ORDER BY is_active DESC, title ASC`, familyID)
}

// ListByAssignee returns a user's active tasks plus the active family
// activities of their family.
func (s *TaskStore) ListByAssignee(userID int64) ([]model.Task, error) {
	return s.list(`SELECT `+taskCols+` FROM tasks
		WHERE is_active = 1 AND (assigned_to = ?
			OR (is_family = 1 AND family_id = (SELECT family_id FROM users WHERE id = ?)))
		ORDER BY title ASC`, userID, userID)
}

func (s *TaskStore) list(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, t model.Task) (*model.Task, error) {
	var assignedTo sql.NullInt64
	if t.AssignedTo != nil {
		assignedTo = sql.NullInt64{Int64: *t.AssignedTo, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, assigned_to = ?, frequency = ?, points = ?, allowance_amount = ?, allowance_enabled = ?, is_active = ?, is_family = ?, required_participants = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		t.Title, t.Description, assignedTo, t.Frequency, t.Points,
		t.AllowanceAmount, t.AllowanceEnabled, t.IsActive, t.IsFamily,
		t.RequiredParticipants, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// --- Completion methods ---

func scanTaskCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var approvedAt sql.NullTime
	var approvedBy sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.TaskID, &c.UserID, &c.FamilyID, &c.CompletedAt,
		&approvedAt, &approvedBy, &c.Status, &c.Notes,
		&c.PointsAwarded, &c.AllowanceAwarded,
	)
	if err != nil {
		return nil, err
	}

	if approvedAt.Valid {
		c.ApprovedAt = &approvedAt.Time
	}
	if approvedBy.Valid {
		c.ApprovedBy = &approvedBy.Int64
	}
	return &c, nil
}

const completionCols = `id, task_id, user_id, family_id, completed_at, approved_at, approved_by, status, notes, points_awarded, allowance_awarded`

// CreateCompletion records a task as done, freezing the task's point and
// allowance values at completion time.
func (s *TaskStore) CreateCompletion(task *model.Task, userID int64, completedAt time.Time, notes string) (*model.TaskCompletion, error) {
	allowance := 0
	if task.AllowanceEnabled {
		allowance = task.AllowanceAmount
	}

	result, err := s.db.Exec(
		`INSERT INTO task_completions (task_id, user_id, family_id, completed_at, notes, points_awarded, allowance_awarded)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.ID, userID, task.FamilyID, completedAt.UTC(), notes, task.Points, allowance,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCompletion(id)
}

func (s *TaskStore) GetCompletion(id int64) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	c, err := scanTaskCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// SetCompletionStatus transitions a pending completion to approved or
// rejected. The transition is terminal: a row that is no longer pending is
// left untouched and ErrNotPending is returned.
func (s *TaskStore) SetCompletionStatus(id int64, status string, reviewerID int64, reviewedAt time.Time) (*model.TaskCompletion, error) {
	result, err := s.db.Exec(
		`UPDATE task_completions SET status = ?, approved_at = ?, approved_by = ? WHERE id = ? AND status = 'pending'`,
		status, reviewedAt.UTC(), reviewerID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update completion status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotPending
	}
	return s.GetCompletion(id)
}

// ListCompletionsInRange returns a user's completions with completed_at in
// [start, end), newest first.
func (s *TaskStore) ListCompletionsInRange(userID int64, start, end time.Time) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM task_completions WHERE user_id = ? AND completed_at >= ? AND completed_at < ? ORDER BY completed_at DESC`,
		userID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by range: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanTaskCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// ListPendingByFamily returns the family's approval queue, oldest first.
func (s *TaskStore) ListPendingByFamily(familyID int64) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM task_completions WHERE family_id = ? AND status = 'pending' ORDER BY completed_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanTaskCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
