package reward

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/database"
	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(store.NewRewardStore(db), store.NewUserStore(db), logger)
	return engine, db
}

// seedEarnings gives the child a family, a task, and n approved completions
// worth 10 points and 10 kr each.
func seedEarnings(t *testing.T, db *sql.DB, n int) (familyID, childID int64) {
	t.Helper()
	family, err := store.NewFamilyStore(db).Create("Hansen")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	parent, err := store.NewUserStore(db).Create(family.ID, "Anna", model.RoleParent, nil, false, "")
	if err != nil {
		t.Fatalf("seed parent: %v", err)
	}
	child, err := store.NewUserStore(db).Create(family.ID, "Emma", model.RoleChild, nil, true, "")
	if err != nil {
		t.Fatalf("seed child: %v", err)
	}

	ts := store.NewTaskStore(db)
	task, err := ts.Create(model.Task{
		FamilyID: family.ID, Title: "Dishes", Frequency: model.FrequencyDaily,
		Points: 10, AllowanceAmount: 10, AllowanceEnabled: true, IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}

	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		c, err := ts.CreateCompletion(task, child.ID, now.AddDate(0, 0, -i), "")
		if err != nil {
			t.Fatalf("seed completion: %v", err)
		}
		if _, err := ts.SetCompletionStatus(c.ID, model.CompletionApproved, parent.ID, now); err != nil {
			t.Fatalf("approve completion: %v", err)
		}
	}
	return family.ID, child.ID
}

func TestClaimSuccess(t *testing.T) {
	engine, db := setupEngine(t)
	familyID, childID := seedEarnings(t, db, 3) // 30 points, 30 kr

	rw, err := store.NewRewardStore(db).Create(model.Reward{
		FamilyID: familyID, Title: "Cinema", PointsCost: 20, AllowanceCost: 10, IsActive: true,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	claim, err := engine.Claim(rw, childID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.PointsSpent != 20 || claim.AllowanceSpent != 10 {
		t.Errorf("spent = %d/%d, want 20/10", claim.PointsSpent, claim.AllowanceSpent)
	}
	if claim.RedemptionCode == "" {
		t.Error("expected a redemption code")
	}
	if claim.ExpiresAt == nil {
		t.Error("expected an expiry")
	}

	balance, err := store.NewUserStore(db).GetBalance(childID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Points != 10 || balance.Allowance != 20 {
		t.Errorf("balance after claim = %d pts, %d kr, want 10, 20", balance.Points, balance.Allowance)
	}
}

func TestClaimInsufficientReportsBothCurrencies(t *testing.T) {
	engine, db := setupEngine(t)
	familyID, childID := seedEarnings(t, db, 1) // 10 points, 10 kr

	rw, err := store.NewRewardStore(db).Create(model.Reward{
		FamilyID: familyID, Title: "Lego set", PointsCost: 30, AllowanceCost: 5, IsActive: true,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	_, err = engine.Claim(rw, childID)
	var insufficient *InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientFundsError", err)
	}
	if insufficient.MissingPoints != 20 {
		t.Errorf("missing points = %d, want 20", insufficient.MissingPoints)
	}
	if insufficient.MissingAllowance != 0 {
		t.Errorf("missing allowance = %d, want 0", insufficient.MissingAllowance)
	}

	// A failed claim must not touch the balance.
	balance, _ := store.NewUserStore(db).GetBalance(childID)
	if balance.Points != 10 || balance.Allowance != 10 {
		t.Errorf("balance after failed claim = %d/%d, want 10/10", balance.Points, balance.Allowance)
	}
}

func TestClaimInactiveReward(t *testing.T) {
	engine, db := setupEngine(t)
	familyID, childID := seedEarnings(t, db, 5)

	rw, err := store.NewRewardStore(db).Create(model.Reward{
		FamilyID: familyID, Title: "Retired", PointsCost: 10, IsActive: false,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	if _, err := engine.Claim(rw, childID); err == nil {
		t.Error("expected claiming an inactive reward to fail")
	}
}

func TestCheckMilestones(t *testing.T) {
	engine, db := setupEngine(t)
	familyID, childID := seedEarnings(t, db, 0)

	task, err := store.NewTaskStore(db).Create(model.Task{
		FamilyID: familyID, Title: "Dishes", Frequency: model.FrequencyDaily, Points: 10, IsActive: true,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	ss := store.NewStreakStore(db)
	st, err := ss.Create(childID, task.ID, familyID, time.Now().UTC())
	if err != nil {
		t.Fatalf("create streak: %v", err)
	}

	// Below the first threshold: nothing minted.
	reached, err := engine.CheckMilestones(st, task.Title)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(reached) != 0 {
		t.Errorf("reached = %v, want none at streak 1", reached)
	}

	// At 7 both the 3 and 7 thresholds mint, once.
	st.CurrentStreak = 7
	st.LongestStreak = 7
	if err := ss.Update(st); err != nil {
		t.Fatalf("update streak: %v", err)
	}
	reached, err = engine.CheckMilestones(st, task.Title)
	if err != nil {
		t.Fatalf("check at 7: %v", err)
	}
	if len(reached) != 2 || reached[0] != 3 || reached[1] != 7 {
		t.Errorf("reached = %v, want [3 7]", reached)
	}

	// Re-checking mints nothing new.
	reached, err = engine.CheckMilestones(st, task.Title)
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if len(reached) != 0 {
		t.Errorf("reached on recheck = %v, want none", reached)
	}

	achievements, err := store.NewRewardStore(db).ListAchievementsByUser(childID)
	if err != nil {
		t.Fatalf("list achievements: %v", err)
	}
	if len(achievements) != 2 {
		t.Errorf("achievements = %d, want 2", len(achievements))
	}
}

func TestCheckMilestonesInactiveStreak(t *testing.T) {
	engine, db := setupEngine(t)
	familyID, childID := seedEarnings(t, db, 0)

	task, _ := store.NewTaskStore(db).Create(model.Task{
		FamilyID: familyID, Title: "Dishes", Frequency: model.FrequencyDaily, Points: 10, IsActive: true,
	})
	ss := store.NewStreakStore(db)
	st, _ := ss.Create(childID, task.ID, familyID, time.Now().UTC())
	st.CurrentStreak = 10
	st.IsActive = false
	ss.Update(st)

	reached, err := engine.CheckMilestones(st, task.Title)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(reached) != 0 {
		t.Errorf("reached = %v, want none for inactive streak", reached)
	}
}
