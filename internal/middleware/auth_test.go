package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kallevik/stjerne/internal/auth"
	"github.com/kallevik/stjerne/internal/database"
	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

func setupAuth(t *testing.T) (http.Handler, *store.SessionStore, *model.User, *model.User) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	family, err := store.NewFamilyStore(db).Create("Hansen")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	users := store.NewUserStore(db)
	parent, err := users.Create(family.ID, "Anna", model.RoleParent, nil, false, "")
	if err != nil {
		t.Fatalf("seed parent: %v", err)
	}
	child, err := users.Create(family.ID, "Emma", model.RoleChild, nil, false, "")
	if err != nil {
		t.Fatalf("seed child: %v", err)
	}

	sessions := store.NewSessionStore(db)
	handler := RequireParent(sessions, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			t.Error("expected parent context to be set")
		}
		w.WriteHeader(http.StatusOK)
	}))
	return handler, sessions, parent, child
}

func TestRequireParentNoCookie(t *testing.T) {
	handler, _, _, _ := setupAuth(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireParentInvalidToken(t *testing.T) {
	handler, _, _, _ := setupAuth(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "not-a-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireParentExpiredSession(t *testing.T) {
	handler, sessions, parent, _ := setupAuth(t)

	sess, err := sessions.Create(parent.ID, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireParentChildRole(t *testing.T) {
	handler, sessions, _, child := setupAuth(t)

	// A session pointing at a child account must not pass the gate.
	sess, err := sessions.Create(child.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireParentValidSession(t *testing.T) {
	handler, sessions, parent, _ := setupAuth(t)

	sess, err := sessions.Create(parent.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}
