package store

import (
	"testing"

	"github.com/kallevik/stjerne/internal/model"
)

func TestCelebrationQueueOrder(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	cs := NewCelebrationStore(db)

	first, err := cs.Enqueue(family.ID, child.ID, model.CelebrationStreak, "3 in a row!", "Keep it up")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	second, err := cs.Enqueue(family.ID, child.ID, model.CelebrationReward, "Ice cream!", "Enjoy")
	if err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	next, err := cs.NextPending(family.ID)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if next.ID != first.ID {
		t.Errorf("next = %d, want oldest %d", next.ID, first.ID)
	}

	acked, err := cs.Acknowledge(first.ID)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !acked {
		t.Fatal("expected first acknowledge to succeed")
	}

	next, err = cs.NextPending(family.ID)
	if err != nil {
		t.Fatalf("next after ack: %v", err)
	}
	if next.ID != second.ID {
		t.Errorf("next after ack = %d, want %d", next.ID, second.ID)
	}
}

func TestCelebrationAcknowledgeOnce(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	cs := NewCelebrationStore(db)

	ev, err := cs.Enqueue(family.ID, child.ID, model.CelebrationGoal, "Goal reached!", "")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	acked, err := cs.Acknowledge(ev.ID)
	if err != nil || !acked {
		t.Fatalf("first ack = %v/%v, want true/nil", acked, err)
	}

	acked, err = cs.Acknowledge(ev.ID)
	if err != nil {
		t.Fatalf("second ack: %v", err)
	}
	if acked {
		t.Error("expected second acknowledge to report already done")
	}
}

func TestCelebrationEmptyQueue(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	cs := NewCelebrationStore(db)

	next, err := cs.NextPending(family.ID)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if next != nil {
		t.Error("expected nil for empty queue")
	}
}

func TestCelebrationListUnnotified(t *testing.T) {
	db := openTestDB(t)
	family := seedFamily(t, db)
	child := seedUser(t, db, family.ID, "Emma", model.RoleChild)
	cs := NewCelebrationStore(db)

	a, _ := cs.Enqueue(family.ID, child.ID, model.CelebrationStreak, "A", "")
	b, _ := cs.Enqueue(family.ID, child.ID, model.CelebrationStreak, "B", "")

	events, err := cs.ListUnnotified(a.ID)
	if err != nil {
		t.Fatalf("list unnotified: %v", err)
	}
	if len(events) != 1 || events[0].ID != b.ID {
		t.Errorf("unnotified after %d = %v, want just %d", a.ID, events, b.ID)
	}
}
