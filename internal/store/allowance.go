package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

type AllowanceStore struct {
	db *sql.DB
}

func NewAllowanceStore(db *sql.DB) *AllowanceStore {
	return &AllowanceStore{db: db}
}

func scanPayment(scanner interface{ Scan(...any) error }) (*model.AllowancePayment, error) {
	var p model.AllowancePayment
	var weekStart, weekEnd string
	var paidAt sql.NullTime
	var paidBy sql.NullInt64

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.FamilyID, &p.Amount, &weekStart, &weekEnd,
		&p.Status, &paidAt, &paidBy, &p.Notes, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.WeekStart, err = time.Parse("2006-01-02", weekStart)
	if err != nil {
		return nil, fmt.Errorf("parse week_start %q: %w", weekStart, err)
	}
	p.WeekEnd, err = time.Parse("2006-01-02", weekEnd)
	if err != nil {
		return nil, fmt.Errorf("parse week_end %q: %w", weekEnd, err)
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	if paidBy.Valid {
		p.PaidBy = &paidBy.Int64
	}
	return &p, nil
}

const paymentCols = `id, user_id, family_id, amount, week_start, week_end, status, paid_at, paid_by, notes, created_at`

// CreatePayment records a weekly payment together with the completions it
// covers, in one transaction. The amount is frozen here and never changes.
func (s *AllowanceStore) CreatePayment(userID, familyID int64, amount int, weekStart, weekEnd time.Time, completionIDs []int64, notes string) (*model.AllowancePayment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO allowance_payments (user_id, family_id, amount, week_start, week_end, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, familyID, amount, weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"), notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, cid := range completionIDs {
		if _, err := tx.Exec(
			`INSERT INTO allowance_payment_completions (payment_id, completion_id) VALUES (?, ?)`,
			id, cid,
		); err != nil {
			return nil, fmt.Errorf("link completion %d: %w", cid, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}
	return s.GetPayment(id)
}

func (s *AllowanceStore) GetPayment(id int64) (*model.AllowancePayment, error) {
	row := s.db.QueryRow(`SELECT `+paymentCols+` FROM allowance_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	p.CompletionIDs, err = s.completionIDs(id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *AllowanceStore) completionIDs(paymentID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT completion_id FROM allowance_payment_completions WHERE payment_id = ? ORDER BY completion_id ASC`,
		paymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payment completions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completion id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *AllowanceStore) ListByUser(userID int64) ([]model.AllowancePayment, error) {
	rows, err := s.db.Query(
		`SELECT `+paymentCols+` FROM allowance_payments WHERE user_id = ? ORDER BY week_start DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []model.AllowancePayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range payments {
		payments[i].CompletionIDs, err = s.completionIDs(payments[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return payments, nil
}

// CoverageForUser maps completion id to payment status for every completion
// of the user that a non-cancelled payment references.
func (s *AllowanceStore) CoverageForUser(userID int64) (map[int64]string, error) {
	rows, err := s.db.Query(
		`SELECT apc.completion_id, ap.status
		 FROM allowance_payment_completions apc
		 JOIN allowance_payments ap ON ap.id = apc.payment_id
		 WHERE ap.user_id = ? AND ap.status != 'cancelled'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	coverage := make(map[int64]string)
	for rows.Next() {
		var id int64
		var status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, fmt.Errorf("scan coverage: %w", err)
		}
		coverage[id] = status
	}
	return coverage, rows.Err()
}

// SetStatus transitions a pending payment to paid or cancelled. Settled
// payments are immutable.
func (s *AllowanceStore) SetStatus(id int64, status string, paidBy int64, at time.Time) (*model.AllowancePayment, error) {
	var paidAt sql.NullTime
	var by sql.NullInt64
	if status == model.PaymentPaid {
		paidAt = sql.NullTime{Time: at.UTC(), Valid: true}
		by = sql.NullInt64{Int64: paidBy, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE allowance_payments SET status = ?, paid_at = ?, paid_by = ? WHERE id = ? AND status = 'pending'`,
		status, paidAt, by, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrPaymentSettled
	}
	return s.GetPayment(id)
}
