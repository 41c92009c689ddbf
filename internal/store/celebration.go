package store

import (
	"database/sql"
	"fmt"

	"github.com/kallevik/stjerne/internal/model"
)

type CelebrationStore struct {
	db *sql.DB
}

func NewCelebrationStore(db *sql.DB) *CelebrationStore {
	return &CelebrationStore{db: db}
}

func scanCelebration(scanner interface{ Scan(...any) error }) (*model.CelebrationEvent, error) {
	var e model.CelebrationEvent
	err := scanner.Scan(&e.ID, &e.FamilyID, &e.UserID, &e.Type, &e.Title, &e.Message, &e.Acknowledged, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const celebrationCols = `id, family_id, user_id, type, title, message, acknowledged, created_at`

func (s *CelebrationStore) Enqueue(familyID, userID int64, eventType, title, message string) (*model.CelebrationEvent, error) {
	result, err := s.db.Exec(
		`INSERT INTO celebration_events (family_id, user_id, type, title, message) VALUES (?, ?, ?, ?, ?)`,
		familyID, userID, eventType, title, message,
	)
	if err != nil {
		return nil, fmt.Errorf("insert celebration: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+celebrationCols+` FROM celebration_events WHERE id = ?`, id)
	return scanCelebration(row)
}

// ListPending returns unacknowledged events for a family in insertion order.
func (s *CelebrationStore) ListPending(familyID int64) ([]model.CelebrationEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+celebrationCols+` FROM celebration_events WHERE family_id = ? AND acknowledged = 0 ORDER BY id ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending celebrations: %w", err)
	}
	defer rows.Close()

	var events []model.CelebrationEvent
	for rows.Next() {
		e, err := scanCelebration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan celebration: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// NextPending returns the oldest unacknowledged event for a family, or nil.
func (s *CelebrationStore) NextPending(familyID int64) (*model.CelebrationEvent, error) {
	row := s.db.QueryRow(
		`SELECT `+celebrationCols+` FROM celebration_events WHERE family_id = ? AND acknowledged = 0 ORDER BY id ASC LIMIT 1`,
		familyID,
	)
	e, err := scanCelebration(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending celebration: %w", err)
	}
	return e, nil
}

// Acknowledge marks one event as shown. It reports whether the event existed
// and was still pending; an already-acknowledged event returns false so the
// caller can treat the ack as a no-op instead of an error.
func (s *CelebrationStore) Acknowledge(id int64) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE celebration_events SET acknowledged = 1 WHERE id = ? AND acknowledged = 0`, id,
	)
	if err != nil {
		return false, fmt.Errorf("acknowledge celebration: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListUnnotified returns pending events newer than the given id, for push
// notification fan-out.
func (s *CelebrationStore) ListUnnotified(afterID int64) ([]model.CelebrationEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+celebrationCols+` FROM celebration_events WHERE id > ? AND acknowledged = 0 ORDER BY id ASC`,
		afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unnotified celebrations: %w", err)
	}
	defer rows.Close()

	var events []model.CelebrationEvent
	for rows.Next() {
		e, err := scanCelebration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan celebration: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
