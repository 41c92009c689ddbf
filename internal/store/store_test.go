package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/database"
	"github.com/kallevik/stjerne/internal/model"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedFamily(t *testing.T, db *sql.DB) *model.Family {
	t.Helper()
	family, err := NewFamilyStore(db).Create("Hansen")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	return family
}

func seedUser(t *testing.T, db *sql.DB, familyID int64, name, role string) *model.User {
	t.Helper()
	user, err := NewUserStore(db).Create(familyID, name, role, nil, true, "")
	if err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return user
}

func seedTask(t *testing.T, db *sql.DB, familyID int64, title, frequency string, points, allowance int) *model.Task {
	t.Helper()
	task, err := NewTaskStore(db).Create(model.Task{
		FamilyID:         familyID,
		Title:            title,
		Frequency:        frequency,
		Points:           points,
		AllowanceAmount:  allowance,
		AllowanceEnabled: allowance > 0,
		IsActive:         true,
	})
	if err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

// approveCompletion records and immediately approves a completion.
func approveCompletion(t *testing.T, db *sql.DB, task *model.Task, userID, parentID int64, at time.Time) *model.TaskCompletion {
	t.Helper()
	ts := NewTaskStore(db)
	c, err := ts.CreateCompletion(task, userID, at, "")
	if err != nil {
		t.Fatalf("create completion: %v", err)
	}
	approved, err := ts.SetCompletionStatus(c.ID, model.CompletionApproved, parentID, at)
	if err != nil {
		t.Fatalf("approve completion: %v", err)
	}
	return approved
}
