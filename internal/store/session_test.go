package store

import (
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/model"
)

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)

	ss := NewSessionStore(db)
	sess, err := ss.Create(parent.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != parent.ID {
		t.Fatalf("GetByToken = %+v, want session for user %d", got, parent.ID)
	}

	if err := ss.Delete(sess.Token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, err = ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get deleted session: %v", err)
	}
	if got != nil {
		t.Error("deleted session should not resolve")
	}
}

func TestSessionExpired(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)

	ss := NewSessionStore(db)
	sess, err := ss.Create(parent.ID, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expired session should not resolve")
	}
}

func TestSessionDeleteByUser(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)
	other := seedUser(t, db, family.ID, "Jonas", model.RoleParent)

	ss := NewSessionStore(db)
	s1, _ := ss.Create(parent.ID, time.Hour)
	s2, _ := ss.Create(parent.ID, time.Hour)
	s3, _ := ss.Create(other.ID, time.Hour)

	if err := ss.DeleteByUser(parent.ID); err != nil {
		t.Fatalf("delete by user: %v", err)
	}

	for _, tok := range []string{s1.Token, s2.Token} {
		if got, _ := ss.GetByToken(tok); got != nil {
			t.Error("revoked session should not resolve")
		}
	}
	if got, _ := ss.GetByToken(s3.Token); got == nil {
		t.Error("other parent's session should survive")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	parent := seedUser(t, db, family.ID, "Anna", model.RoleParent)

	ss := NewSessionStore(db)
	ss.Create(parent.ID, -time.Minute)
	ss.Create(parent.ID, -time.Hour)
	live, _ := ss.Create(parent.ID, time.Hour)

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if got, _ := ss.GetByToken(live.Token); got == nil {
		t.Error("live session should survive the sweep")
	}
}
