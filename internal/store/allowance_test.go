package store

import (
	"errors"
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

func TestPaymentLifecycle(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	task := seedTask(t, db, family.ID, "Dishes", model.FrequencyDaily, 0, 10)
	as := NewAllowanceStore(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	c1 := approveCompletion(t, db, task, child.ID, parent.ID, weekStart.Add(24*time.Hour))
	c2 := approveCompletion(t, db, task, child.ID, parent.ID, weekStart.Add(48*time.Hour))

	payment, err := as.CreatePayment(child.ID, family.ID, 20, weekStart, weekEnd, []int64{c1.ID, c2.ID}, "week 10")
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if payment.Status != model.PaymentPending {
		t.Errorf("status = %q, want pending", payment.Status)
	}
	if payment.Amount != 20 {
		t.Errorf("amount = %d, want 20", payment.Amount)
	}
	if !payment.WeekStart.Equal(weekStart) || !payment.WeekEnd.Equal(weekEnd) {
		t.Errorf("week = %v..%v, want %v..%v", payment.WeekStart, payment.WeekEnd, weekStart, weekEnd)
	}
	if len(payment.CompletionIDs) != 2 {
		t.Fatalf("completion ids = %d, want 2", len(payment.CompletionIDs))
	}

	coverage, err := as.CoverageForUser(child.ID)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if coverage[c1.ID] != model.PaymentPending || coverage[c2.ID] != model.PaymentPending {
		t.Errorf("coverage = %v, want both pending", coverage)
	}

	paid, err := as.SetStatus(payment.ID, model.PaymentPaid, parent.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != model.PaymentPaid {
		t.Errorf("status = %q, want paid", paid.Status)
	}
	if paid.PaidBy == nil || *paid.PaidBy != parent.ID {
		t.Errorf("paid_by = %v, want %d", paid.PaidBy, parent.ID)
	}

	// Settled payments are immutable.
	_, err = as.SetStatus(payment.ID, model.PaymentCancelled, parent.ID, time.Now().UTC())
	if !errors.Is(err, ErrPaymentSettled) {
		t.Errorf("re-settle error = %v, want ErrPaymentSettled", err)
	}
}

func TestCancelledPaymentReleasesCoverage(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	task := seedTask(t, db, family.ID, "Dishes", model.FrequencyDaily, 0, 10)
	as := NewAllowanceStore(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	c := approveCompletion(t, db, task, child.ID, parent.ID, weekStart.Add(24*time.Hour))

	payment, err := as.CreatePayment(child.ID, family.ID, 10, weekStart, weekStart.AddDate(0, 0, 7), []int64{c.ID}, "")
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if _, err := as.SetStatus(payment.ID, model.PaymentCancelled, parent.ID, time.Now().UTC()); err != nil {
		t.Fatalf("cancel payment: %v", err)
	}

	// A cancelled payment no longer covers its completions, so they can be
	// paid again by a new payment.
	coverage, err := as.CoverageForUser(child.ID)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if _, covered := coverage[c.ID]; covered {
		t.Error("expected cancelled payment to release its completions")
	}
}

func TestListPaymentsByUser(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	as := NewAllowanceStore(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ws := weekStart.AddDate(0, 0, -7*i)
		if _, err := as.CreatePayment(child.ID, family.ID, 10, ws, ws.AddDate(0, 0, 7), nil, ""); err != nil {
			t.Fatalf("create payment %d: %v", i, err)
		}
	}

	payments, err := as.ListByUser(child.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 3 {
		t.Errorf("payments = %d, want 3", len(payments))
	}
}
