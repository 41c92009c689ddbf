package store

import (
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

func TestUserCRUD(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	us := NewUserStore(db)

	age := 9
	user, err := us.Create(family.ID, "Emma", model.RoleChild, &age, true, "🦊")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Name != "Emma" || user.Role != model.RoleChild {
		t.Errorf("user = %q/%q, want Emma/child", user.Name, user.Role)
	}
	if user.Age == nil || *user.Age != 9 {
		t.Errorf("age = %v, want 9", user.Age)
	}
	if user.HasPIN {
		t.Error("new user should not have a PIN")
	}

	got, err := us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.AvatarEmoji != "🦊" {
		t.Errorf("avatar = %q, want 🦊", got.AvatarEmoji)
	}

	updated, err := us.Update(user.ID, "Emma L", model.RoleChild, &age, false, "🦊")
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Name != "Emma L" || updated.AllowanceEnabled {
		t.Errorf("updated = %q/%v, want Emma L/false", updated.Name, updated.AllowanceEnabled)
	}

	if err := us.Delete(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	got, err = us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get deleted user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted user")
	}
}

func TestUserSortOrderPerFamily(t *testing.T) {
	db := openTestDB(t)
	f1 := seedFamily(t, db)
	f2, _ := NewFamilyStore(db).Create("Olsen")

	a := seedUser(t, db, f1.ID, "Anna", model.RoleParent)
	b := seedUser(t, db, f1.ID, "Ben", model.RoleChild)
	c := seedUser(t, db, f2.ID, "Clara", model.RoleParent)

	if a.SortOrder != 1 || b.SortOrder != 2 {
		t.Errorf("sort orders = %d, %d, want 1, 2", a.SortOrder, b.SortOrder)
	}
	if c.SortOrder != 1 {
		t.Errorf("other family sort order = %d, want 1", c.SortOrder)
	}
}

func TestUserNameExists(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	us := NewUserStore(db)
	user := seedUser(t, db, family.ID, "Emma", model.RoleChild)

	taken, err := us.NameExists(family.ID, "Emma", 0)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !taken {
		t.Error("expected Emma to be taken")
	}

	// The user itself is excluded when renaming.
	taken, err = us.NameExists(family.ID, "Emma", user.ID)
	if err != nil {
		t.Fatalf("name exists with exclude: %v", err)
	}
	if taken {
		t.Error("expected Emma to be available for herself")
	}
}

func TestUserPIN(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	us := NewUserStore(db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)

	if err := us.SetPIN(parent.ID, "hashed-pin"); err != nil {
		t.Fatalf("set pin: %v", err)
	}

	hash, err := us.GetPINHash(parent.ID)
	if err != nil {
		t.Fatalf("get pin hash: %v", err)
	}
	if hash != "hashed-pin" {
		t.Errorf("hash = %q, want %q", hash, "hashed-pin")
	}

	got, _ := us.GetByID(parent.ID)
	if !got.HasPIN {
		t.Error("expected HasPIN after SetPIN")
	}

	if err := us.ClearPIN(parent.ID); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	hash, err = us.GetPINHash(parent.ID)
	if err != nil {
		t.Fatalf("get cleared pin hash: %v", err)
	}
	if hash != "" {
		t.Errorf("hash after clear = %q, want empty", hash)
	}
}

func TestUserBalance(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	task := seedTask(t, db, family.ID, "Dishes", model.FrequencyDaily, 10, 5)

	us := NewUserStore(db)

	balance, err := us.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get empty balance: %v", err)
	}
	if balance.Points != 0 || balance.Allowance != 0 {
		t.Errorf("empty balance = %d pts, %d kr, want 0, 0", balance.Points, balance.Allowance)
	}

	now := time.Now().UTC()
	approveCompletion(t, db, task, child.ID, parent.ID, now)
	approveCompletion(t, db, task, child.ID, parent.ID, now.Add(-24*time.Hour))

	// A pending completion must not count.
	if _, err := NewTaskStore(db).CreateCompletion(task, child.ID, now, ""); err != nil {
		t.Fatalf("create pending completion: %v", err)
	}

	balance, err = us.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.Points != 20 {
		t.Errorf("points = %d, want 20", balance.Points)
	}
	if balance.Allowance != 10 {
		t.Errorf("allowance = %d, want 10", balance.Allowance)
	}

	// Claims reduce the spendable balance.
	rs := NewRewardStore(db)
	rw, err := rs.Create(model.Reward{FamilyID: family.ID, Title: "Ice cream", PointsCost: 15, IsActive: true})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := rs.CreateClaim(rw, child.ID, "code-1", nil); err != nil {
		t.Fatalf("create claim: %v", err)
	}

	balance, err = us.GetBalance(child.ID)
	if err != nil {
		t.Fatalf("get balance after claim: %v", err)
	}
	if balance.Points != 5 {
		t.Errorf("points after claim = %d, want 5", balance.Points)
	}
	if balance.PointsEarned != 20 || balance.PointsSpent != 15 {
		t.Errorf("earned/spent = %d/%d, want 20/15", balance.PointsEarned, balance.PointsSpent)
	}
}
