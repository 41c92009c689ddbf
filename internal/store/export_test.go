package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

// seedFullFamily builds a family exercising every exported table.
func seedFullFamily(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)

	task := seedTask(t, db, family.ID, "Dishes", model.FrequencyDaily, 10, 10)
	now := time.Now().UTC()
	approveCompletion(t, db, task, child.ID, parent.ID, now)

	ss := NewStreakStore(db)
	if _, err := ss.Create(child.ID, task.ID, family.ID, now); err != nil {
		t.Fatalf("seed streak: %v", err)
	}
	if _, err := ss.CreateHoliday(family.ID, "Easter", now.AddDate(0, 0, 7), true, nil); err != nil {
		t.Fatalf("seed holiday: %v", err)
	}

	rs := NewRewardStore(db)
	reward, err := rs.Create(model.Reward{FamilyID: family.ID, Title: "Cinema", PointsCost: 5, IsActive: true})
	if err != nil {
		t.Fatalf("seed reward: %v", err)
	}
	if _, err := rs.CreateClaim(reward, child.ID, "code-1", nil); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	ps := NewFamilyPointsStore(db)
	if _, err := ps.CreateGoal(family.ID, "Zoo trip", 100, "A day out"); err != nil {
		t.Fatalf("seed goal: %v", err)
	}
	if _, err := ps.AddActivity(family.ID, task.ID, []int64{parent.ID, child.ID}, 25); err != nil {
		t.Fatalf("seed activity: %v", err)
	}

	as := NewAllowanceStore(db)
	weekStart := now.AddDate(0, 0, -3)
	if _, err := as.CreatePayment(child.ID, family.ID, 10, weekStart, now.AddDate(0, 0, 4), nil, ""); err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	return family.ID
}

func TestExportImportRoundTrip(t *testing.T) {
	db := openTestDB(t)
	familyID := seedFullFamily(t, db)

	es := NewExportStore(db)
	exp, err := es.Export(familyID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp == nil {
		t.Fatal("export returned nil for an existing family")
	}
	if len(exp.Users) != 2 || len(exp.Tasks) != 1 || len(exp.Completions) != 1 {
		t.Fatalf("export shape: %d users, %d tasks, %d completions",
			len(exp.Users), len(exp.Tasks), len(exp.Completions))
	}

	newID, err := es.Import(exp)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if newID == familyID {
		t.Fatal("import must create a new family")
	}

	reimported, err := es.Export(newID)
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if len(reimported.Users) != len(exp.Users) {
		t.Errorf("users = %d, want %d", len(reimported.Users), len(exp.Users))
	}
	if len(reimported.Completions) != len(exp.Completions) {
		t.Errorf("completions = %d, want %d", len(reimported.Completions), len(exp.Completions))
	}
	if len(reimported.Streaks) != len(exp.Streaks) {
		t.Errorf("streaks = %d, want %d", len(reimported.Streaks), len(exp.Streaks))
	}
	if len(reimported.Holidays) != len(exp.Holidays) {
		t.Errorf("holidays = %d, want %d", len(reimported.Holidays), len(exp.Holidays))
	}
	if len(reimported.Claims) != len(exp.Claims) {
		t.Errorf("claims = %d, want %d", len(reimported.Claims), len(exp.Claims))
	}
	if len(reimported.Goals) != len(exp.Goals) {
		t.Errorf("goals = %d, want %d", len(reimported.Goals), len(exp.Goals))
	}
	if len(reimported.Activities) != len(exp.Activities) {
		t.Errorf("activities = %d, want %d", len(reimported.Activities), len(exp.Activities))
	}
	if len(reimported.Payments) != len(exp.Payments) {
		t.Errorf("payments = %d, want %d", len(reimported.Payments), len(exp.Payments))
	}
	if reimported.Points == nil || reimported.Points.TotalPoints != exp.Points.TotalPoints {
		t.Errorf("points = %+v, want total %d", reimported.Points, exp.Points.TotalPoints)
	}

	// Balances are derived, so the imported child must come out even.
	var origChild, newChild int64
	for _, u := range exp.Users {
		if u.Role == model.RoleChild {
			origChild = u.ID
		}
	}
	for _, u := range reimported.Users {
		if u.Role == model.RoleChild {
			newChild = u.ID
		}
	}
	us := NewUserStore(db)
	origBal, err := us.GetBalance(origChild)
	if err != nil {
		t.Fatalf("original balance: %v", err)
	}
	newBal, err := us.GetBalance(newChild)
	if err != nil {
		t.Fatalf("imported balance: %v", err)
	}
	if newBal.Points != origBal.Points || newBal.Allowance != origBal.Allowance {
		t.Errorf("imported balance = %d/%d, want %d/%d",
			newBal.Points, newBal.Allowance, origBal.Points, origBal.Allowance)
	}
}

func TestExportMissingFamily(t *testing.T) {
	db := openTestDB(t)

	exp, err := NewExportStore(db).Export(999)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exp != nil {
		t.Error("export of a missing family should return nil")
	}
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	db := openTestDB(t)

	_, err := NewExportStore(db).Import(&FamilyExport{Version: 99})
	if err == nil {
		t.Error("expected an error for an unsupported version")
	}
}
