package allowance

import (
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

// Entry is one completion's contribution to a weekly calculation.
type Entry struct {
	Completion    model.TaskCompletion `json:"completion"`
	Amount        int                  `json:"amount"`
	Covered       bool                 `json:"covered"`
	PaymentStatus string               `json:"payment_status,omitempty"`
}

// WeeklyCalculation is the earned/pending/paid breakdown for one user and one
// calendar week.
type WeeklyCalculation struct {
	WeekStart    time.Time `json:"week_start"`
	WeekEnd      time.Time `json:"week_end"`
	TotalEarned  int       `json:"total_earned"`
	TotalPending int       `json:"total_pending"`
	TotalPaid    int       `json:"total_paid"`
	Entries      []Entry   `json:"entries"`
}

// WeekWindow returns the Monday-based half-open week [start, end) containing
// now, shifted by offset weeks. Offset 0 is the current week, -1 the previous.
func WeekWindow(now time.Time, offset int) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// time.Weekday has Sunday = 0; shift so Monday = 0.
	back := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -back+offset*7)
	return start, start.AddDate(0, 0, 7)
}

// Calculate produces the weekly breakdown from a user's completions in the
// window, the live tasks (for legacy rows without a frozen award), and the
// payment coverage map (completion id -> payment status).
//
// Earned counts every non-rejected completion. Pending counts approved
// completions no payment covers yet. Paid counts completions covered by a
// payment marked paid, so paid + pending can never exceed earned.
func Calculate(weekStart, weekEnd time.Time, completions []model.TaskCompletion, tasks map[int64]model.Task, coverage map[int64]string) *WeeklyCalculation {
	calc := &WeeklyCalculation{WeekStart: weekStart, WeekEnd: weekEnd}

	for _, c := range completions {
		amount := amountFor(c, tasks)
		status, covered := coverage[c.ID]

		entry := Entry{Completion: c, Amount: amount, Covered: covered, PaymentStatus: status}
		calc.Entries = append(calc.Entries, entry)

		if c.Status == model.CompletionRejected {
			continue
		}
		calc.TotalEarned += amount

		if c.Status != model.CompletionApproved {
			continue
		}
		switch {
		case covered && status == model.PaymentPaid:
			calc.TotalPaid += amount
		case !covered:
			calc.TotalPending += amount
		}
	}

	return calc
}

// amountFor prefers the award frozen at completion time. Rows imported from
// before awards were frozen carry a zero, so those fall back to the live task.
func amountFor(c model.TaskCompletion, tasks map[int64]model.Task) int {
	if c.AllowanceAwarded != 0 {
		return c.AllowanceAwarded
	}
	task, ok := tasks[c.TaskID]
	if !ok || !task.AllowanceEnabled {
		return 0
	}
	return task.AllowanceAmount
}

// UncoveredApprovedIDs lists the approved completions in a calculation that
// no payment covers yet. These are the rows a new weekly payment settles.
func UncoveredApprovedIDs(calc *WeeklyCalculation) []int64 {
	var ids []int64
	for _, e := range calc.Entries {
		if e.Completion.Status == model.CompletionApproved && !e.Covered {
			ids = append(ids, e.Completion.ID)
		}
	}
	return ids
}
