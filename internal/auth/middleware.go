package auth

import (
	"net/http"
	"os"
	"strings"

	"gorm.io/gorm"

	"manutec/internal/identity"
	"manutec/internal/models"
)

// ActorMiddleware attaches the acting user to the request context. A Bearer
// token wins when present; otherwise the x-user-email/x-user-role/x-user-name
// headers describe the actor. When the email matches a registered user, the
// stored role overrides whatever the client claimed.
//
// With AUTH_STRICT=1 anonymous requests are rejected outright.
func ActorMiddleware(db *gorm.DB) func(http.Handler) http.Handler {
	strict := os.Getenv("AUTH_STRICT") == "1"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromRequest(db, r)
			if strict && !actor.Known() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromRequest(db *gorm.DB, r *http.Request) identity.Actor {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if claims, err := Verify(strings.TrimPrefix(h, "Bearer ")); err == nil {
			if u := lookupByID(db, r, claims.Subject); u != nil {
				return identity.Actor{ID: u.ID, Email: u.Email, Name: u.Name, Role: identity.NormalizeRole(u.Role)}
			}
			return identity.Actor{ID: claims.Subject, Email: claims.Email, Role: identity.NormalizeRole(claims.Role)}
		}
	}

	email := strings.ToLower(strings.TrimSpace(r.Header.Get("x-user-email")))
	actor := identity.Actor{
		Email: email,
		Name:  strings.TrimSpace(r.Header.Get("x-user-name")),
	}
	if role := strings.TrimSpace(r.Header.Get("x-user-role")); role != "" {
		actor.Role = identity.NormalizeRole(role)
	}
	if email == "" {
		return actor
	}
	var u models.User
	err := db.WithContext(r.Context()).
		First(&u, "LOWER(email) = ? AND is_deleted = ?", email, false).Error
	if err == nil {
		actor.ID = u.ID
		if u.Role != "" {
			actor.Role = identity.NormalizeRole(u.Role)
		}
		if actor.Name == "" {
			actor.Name = u.Name
		}
	}
	return actor
}

func lookupByID(db *gorm.DB, r *http.Request, id string) *models.User {
	if id == "" {
		return nil
	}
	var u models.User
	if err := db.WithContext(r.Context()).First(&u, "id = ? AND is_deleted = ?", id, false).Error; err != nil {
		return nil
	}
	return &u
}
