package store

import (
	"database/sql"
	"fmt"

	"github.com/kallevik/stjerne/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var age sql.NullInt64

	err := scanner.Scan(
		&u.ID, &u.FamilyID, &u.Name, &u.Role, &age, &u.HasPIN,
		&u.AllowanceEnabled, &u.AvatarEmoji, &u.SortOrder,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		a := int(age.Int64)
		u.Age = &a
	}
	return &u, nil
}

const userCols = `id, family_id, name, role, age, pin IS NOT NULL, allowance_enabled, avatar_emoji, sort_order, created_at, updated_at`

func (s *UserStore) Create(familyID int64, name, role string, age *int, allowanceEnabled bool, avatarEmoji string) (*model.User, error) {
	if avatarEmoji == "" {
		avatarEmoji = "😀"
	}

	var maxOrder int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM users WHERE family_id = ?`, familyID).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	var a sql.NullInt64
	if age != nil {
		a = sql.NullInt64{Int64: int64(*age), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (family_id, name, role, age, allowance_enabled, avatar_emoji, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, name, role, a, allowanceEnabled, avatarEmoji, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) ListByFamily(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? ORDER BY sort_order ASC, name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Update(id int64, name, role string, age *int, allowanceEnabled bool, avatarEmoji string) (*model.User, error) {
	var a sql.NullInt64
	if age != nil {
		a = sql.NullInt64{Int64: int64(*age), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE users SET name = ?, role = ?, age = ?, allowance_enabled = ?, avatar_emoji = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, role, a, allowanceEnabled, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *UserStore) SetPIN(id int64, hashedPIN string) error {
	_, err := s.db.Exec(`UPDATE users SET pin = ? WHERE id = ?`, hashedPIN, id)
	if err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

func (s *UserStore) ClearPIN(id int64) error {
	_, err := s.db.Exec(`UPDATE users SET pin = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}

func (s *UserStore) GetPINHash(id int64) (string, error) {
	var pin sql.NullString
	err := s.db.QueryRow(`SELECT pin FROM users WHERE id = ?`, id).Scan(&pin)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("user not found")
	}
	if err != nil {
		return "", fmt.Errorf("query pin: %w", err)
	}
	if !pin.Valid {
		return "", nil
	}
	return pin.String, nil
}

// GetBalance computes a user's spendable totals. Earned counts only approved
// completions; spent counts every reward claim regardless of claim status, so
// an expired claim does not refund its cost.
func (s *UserStore) GetBalance(userID int64) (*model.Balance, error) {
	b := &model.Balance{UserID: userID}

	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(points_awarded), 0), COALESCE(SUM(allowance_awarded), 0)
		 FROM task_completions WHERE user_id = ? AND status = 'approved'`,
		userID,
	).Scan(&b.PointsEarned, &b.AllowanceEarned)
	if err != nil {
		return nil, fmt.Errorf("sum earned: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COALESCE(SUM(points_spent), 0), COALESCE(SUM(allowance_spent), 0)
		 FROM claimed_rewards WHERE user_id = ?`,
		userID,
	).Scan(&b.PointsSpent, &b.AllowanceSpent)
	if err != nil {
		return nil, fmt.Errorf("sum spent: %w", err)
	}

	b.Points = b.PointsEarned - b.PointsSpent
	b.Allowance = b.AllowanceEarned - b.AllowanceSpent
	return b, nil
}

func (s *UserStore) NameExists(familyID int64, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM users WHERE family_id = ? AND name = ? AND id != ?`,
		familyID, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
