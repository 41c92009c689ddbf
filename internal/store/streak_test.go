package store

import (
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

func TestStreakCreateAndUpdate(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	task := seedTask(t, db, family.ID, "Dishes", model.FrequencyDaily, 10, 0)
	ss := NewStreakStore(db)

	got, err := ss.GetByUserTask(child.ID, task.ID)
	if err != nil {
		t.Fatalf("get missing streak: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for missing streak")
	}

	now := time.Now().UTC()
	st, err := ss.Create(child.ID, task.ID, family.ID, now)
	if err != nil {
		t.Fatalf("create streak: %v", err)
	}
	if st.CurrentStreak != 1 || st.LongestStreak != 1 || !st.IsActive {
		t.Errorf("new streak = %d/%d active=%v, want 1/1 active", st.CurrentStreak, st.LongestStreak, st.IsActive)
	}

	st.CurrentStreak = 5
	st.LongestStreak = 5
	if err := ss.Update(st); err != nil {
		t.Fatalf("update streak: %v", err)
	}
	got, _ = ss.GetByUserTask(child.ID, task.ID)
	if got.CurrentStreak != 5 {
		t.Errorf("current = %d, want 5", got.CurrentStreak)
	}
}

func TestStreakListActive(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	t1 := seedTask(t, db, family.ID, "Dishes", model.FrequencyDaily, 10, 0)
	t2 := seedTask(t, db, family.ID, "Laundry", model.FrequencyWeekly, 20, 0)
	ss := NewStreakStore(db)

	now := time.Now().UTC()
	active, _ := ss.Create(child.ID, t1.ID, family.ID, now)
	lapsed, _ := ss.Create(child.ID, t2.ID, family.ID, now)
	lapsed.IsActive = false
	lapsed.CurrentStreak = 0
	if err := ss.Update(lapsed); err != nil {
		t.Fatalf("deactivate streak: %v", err)
	}

	got, err := ss.ListActiveByUser(child.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("active streaks = %d, want just %d", len(got), active.ID)
	}

	all, err := ss.ListByUser(child.ID)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all streaks = %d, want 2", len(all))
	}
}

func TestCountHolidayDates(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	other := seedUser(t, db, family.ID, "Ben", model.RoleChild)
	ss := NewStreakStore(db)

	day := func(d int) time.Time {
		return time.Date(2026, 7, d, 0, 0, 0, 0, time.UTC)
	}

	// Family-wide holiday and one scoped to Emma.
	if _, err := ss.CreateHoliday(family.ID, "Summer trip", day(10), true, nil); err != nil {
		t.Fatalf("create family holiday: %v", err)
	}
	if _, err := ss.CreateHoliday(family.ID, "Camp", day(11), false, &child.ID); err != nil {
		t.Fatalf("create user holiday: %v", err)
	}
	// Ben's holiday must not count for Emma.
	if _, err := ss.CreateHoliday(family.ID, "Scouts", day(12), false, &other.ID); err != nil {
		t.Fatalf("create other holiday: %v", err)
	}
	// Duplicate date counts once.
	if _, err := ss.CreateHoliday(family.ID, "Summer trip day 2", day(10), true, nil); err != nil {
		t.Fatalf("create duplicate-date holiday: %v", err)
	}

	n, err := ss.CountHolidayDates(family.ID, child.ID, day(9), day(13))
	if err != nil {
		t.Fatalf("count holidays: %v", err)
	}
	if n != 2 {
		t.Errorf("holiday dates = %d, want 2", n)
	}

	// Bounds are exclusive on both ends.
	n, err = ss.CountHolidayDates(family.ID, child.ID, day(10), day(11))
	if err != nil {
		t.Fatalf("count holidays tight: %v", err)
	}
	if n != 0 {
		t.Errorf("holiday dates in empty gap = %d, want 0", n)
	}
}

func TestHolidayCRUD(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	ss := NewStreakStore(db)

	date := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)
	holiday, err := ss.CreateHoliday(family.ID, "Christmas Eve", date, true, nil)
	if err != nil {
		t.Fatalf("create holiday: %v", err)
	}
	if !holiday.Date.Equal(date) {
		t.Errorf("date = %v, want %v", holiday.Date, date)
	}

	list, err := ss.ListHolidaysByFamily(family.ID)
	if err != nil {
		t.Fatalf("list holidays: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("holidays = %d, want 1", len(list))
	}

	if err := ss.DeleteHoliday(holiday.ID); err != nil {
		t.Fatalf("delete holiday: %v", err)
	}
	got, err := ss.GetHoliday(holiday.ID)
	if err != nil {
		t.Fatalf("get deleted holiday: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted holiday")
	}
}
