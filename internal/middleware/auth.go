package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kallevik/stjerne/internal/auth"
	"github.com/kallevik/stjerne/internal/model"
	"github.com/kallevik/stjerne/internal/store"
)

const SessionCookieName = "stjerne_parent"

// RequireParent validates the parent session cookie and populates
// ParentContext. Requests without a live session from a parent get 401; a
// session whose user lost the parent role gets 403.
func RequireParent(sessions *store.SessionStore, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, "parent session required")
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w, "parent session expired")
				return
			}

			user, err := users.GetByID(sess.UserID)
			if err != nil || user == nil {
				unauthorized(w, "parent session expired")
				return
			}
			if user.Role != model.RoleParent {
				forbidden(w)
				return
			}

			pc := auth.ParentContext{
				UserID:   user.ID,
				FamilyID: user.FamilyID,
				Token:    sess.Token,
			}

			ctx := auth.WithParent(r.Context(), pc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": "parent role required"})
}
