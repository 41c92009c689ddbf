package store

import (
	"database/sql"
	"testing"

	"github.com/kallevik/stjerne/internal/model"
)

func TestPushSubscribeUpserts(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)

	ps := NewPushStore(db)
	sub, err := ps.Subscribe(parent.ID, "https://push.example/abc", "p256dh-1", "auth-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// Re-subscribing the same endpoint replaces keys and owner, no new row.
	again, err := ps.Subscribe(child.ID, "https://push.example/abc", "p256dh-2", "auth-2")
	if err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("upsert created a new row: id %d != %d", again.ID, sub.ID)
	}
	if again.UserID != child.ID || again.P256dhKey != "p256dh-2" {
		t.Errorf("upsert did not replace fields: %+v", again)
	}

	subs, err := ps.ListByUser(parent.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("old owner still has %d subscriptions, want 0", len(subs))
	}
}

func TestPushListByRole(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)

	other := seedFamily2(t, db)
	otherParent := seedUser(t, db, other.ID, "Kari", model.RoleParent)

	ps := NewPushStore(db)
	ps.Subscribe(parent.ID, "https://push.example/parent", "k", "a")
	ps.Subscribe(child.ID, "https://push.example/child", "k", "a")
	ps.Subscribe(otherParent.ID, "https://push.example/other", "k", "a")

	subs, err := ps.ListByRole(family.ID, model.RoleParent)
	if err != nil {
		t.Fatalf("list by role: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("parent subscriptions = %d, want 1", len(subs))
	}
	if subs[0].UserID != parent.ID {
		t.Errorf("subscription user = %d, want %d", subs[0].UserID, parent.ID)
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)

	ps := NewPushStore(db)
	ps.Subscribe(parent.ID, "https://push.example/gone", "k", "a")

	if err := ps.DeleteByEndpoint("https://push.example/gone"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, err := ps.ListByUser(parent.ID)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscriptions after delete = %d, want 0", len(subs))
	}
}

func seedFamily2(t *testing.T, db *sql.DB) *model.Family {
	t.Helper()
	family, err := NewFamilyStore(db).Create("Berg")
	if err != nil {
		t.Fatalf("seed second family: %v", err)
	}
	return family
}
