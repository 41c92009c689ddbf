package streak

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

// Grace windows in days per task frequency. A gap of up to this many days
// between qualifying completions keeps a streak alive; holiday exceptions
// inside the gap extend it further.
const (
	ToleranceDaily   = 2
	ToleranceWeekly  = 10
	ToleranceMonthly = 35
)

// Engine applies the streak rules on top of the streak store. One-off tasks
// are never streak-eligible.
type Engine struct {
	streaks *store.StreakStore
	tasks   *store.TaskStore
	logger  *slog.Logger
}

func NewEngine(streaks *store.StreakStore, tasks *store.TaskStore, logger *slog.Logger) *Engine {
	return &Engine{streaks: streaks, tasks: tasks, logger: logger}
}

// Tolerance returns the grace window in days for a frequency, or -1 when the
// frequency never forms streaks.
func Tolerance(frequency string) int {
	switch frequency {
	case model.FrequencyDaily:
		return ToleranceDaily
	case model.FrequencyWeekly:
		return ToleranceWeekly
	case model.FrequencyMonthly:
		return ToleranceMonthly
	default:
		return -1
	}
}

// RecordCompletion advances the user's streak on a task after a completion is
// approved. It returns the updated streak, or nil when the task's frequency
// is not streak-eligible or the completion falls on the same day as the last
// one already counted.
func (e *Engine) RecordCompletion(task *model.Task, userID int64, completedAt time.Time) (*model.Streak, error) {
	tolerance := Tolerance(task.Frequency)
	if tolerance < 0 {
		return nil, nil
	}

	st, err := e.streaks.GetByUserTask(userID, task.ID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return e.streaks.Create(userID, task.ID, task.FamilyID, completedAt)
	}

	gap := daysBetween(st.LastCompletionDate, completedAt)
	if gap <= 0 {
		// Same day (or clock skew): the completion already counted.
		return st, nil
	}

	allowed, err := e.allowedGap(st, tolerance, completedAt)
	if err != nil {
		return nil, err
	}

	if gap <= allowed {
		st.CurrentStreak++
		if st.CurrentStreak > st.LongestStreak {
			st.LongestStreak = st.CurrentStreak
		}
	} else {
		// Too late: the streak restarts at this completion. Reactivating a
		// lapsed streak goes through the same path.
		st.CurrentStreak = 1
		st.StartDate = completedAt
	}
	st.LastCompletionDate = completedAt
	st.IsActive = true

	if err := e.streaks.Update(st); err != nil {
		return nil, err
	}
	return st, nil
}

// CheckResult summarizes one sweep over the active streaks.
type CheckResult struct {
	Checked     int
	Deactivated int
	Errors      []error
}

// DailyCheck deactivates every active streak whose grace window has run out
// as of now. Row-level failures are collected so one bad row does not stop
// the sweep.
func (e *Engine) DailyCheck(now time.Time) CheckResult {
	var result CheckResult

	active, err := e.streaks.ListActive()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("list active streaks: %w", err))
		return result
	}

	for i := range active {
		st := &active[i]
		result.Checked++

		task, err := e.tasks.GetByID(st.TaskID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("streak %d: %w", st.ID, err))
			continue
		}
		if task == nil {
			// Task deleted out from under the streak; retire it.
			if err := e.deactivate(st); err != nil {
				result.Errors = append(result.Errors, err)
			} else {
				result.Deactivated++
			}
			continue
		}

		tolerance := Tolerance(task.Frequency)
		if tolerance < 0 {
			continue
		}

		allowed, err := e.allowedGap(st, tolerance, now)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("streak %d: %w", st.ID, err))
			continue
		}
		if daysBetween(st.LastCompletionDate, now) <= allowed {
			continue
		}

		if err := e.deactivate(st); err != nil {
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Deactivated++
		e.logger.Info("streak lapsed",
			"streak_id", st.ID,
			"user_id", st.UserID,
			"task_id", st.TaskID,
			"length", st.CurrentStreak)
	}

	return result
}

// allowedGap is the base tolerance plus one day per distinct holiday date
// strictly between the last completion and the reference time.
func (e *Engine) allowedGap(st *model.Streak, tolerance int, until time.Time) (int, error) {
	holidays, err := e.streaks.CountHolidayDates(st.FamilyID, st.UserID, st.LastCompletionDate, until)
	if err != nil {
		return 0, fmt.Errorf("count holiday dates: %w", err)
	}
	return tolerance + holidays, nil
}

func (e *Engine) deactivate(st *model.Streak) error {
	st.IsActive = false
	st.CurrentStreak = 0
	if err := e.streaks.Update(st); err != nil {
		return fmt.Errorf("deactivate streak %d: %w", st.ID, err)
	}
	return nil
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}
