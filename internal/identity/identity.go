// Package identity maps the inconsistent actor references found in requests
// and imported data (email, legacy document id, display name) onto durable
// user rows. Resolve is deliberately permissive and creates stub users so
// upstream data never blocks; ResolveStrict is the enforcing variant.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"manutec/internal/apperrors"
	"manutec/internal/models"
)

const (
	RoleOperator   = "operador"
	RoleMaintainer = "manutentor"
	RoleManager    = "gestor"
	RoleAdmin      = "admin" // declared but grants nothing yet
)

var validRoles = map[string]struct{}{
	RoleOperator:   {},
	RoleMaintainer: {},
	RoleManager:    {},
	RoleAdmin:      {},
}

// NormalizeRole maps arbitrary input onto a known role, defaulting to operador.
func NormalizeRole(raw string) string {
	r := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := validRoles[r]; ok {
		return r
	}
	return RoleOperator
}

// Actor is the already-authenticated caller context. A zero Actor means the
// request carried no identity.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  string
}

func (a Actor) Known() bool { return a.ID != "" }

// CanMaintain reports whether the actor may work tickets.
func (a Actor) CanMaintain() bool {
	return a.Role == RoleMaintainer || a.Role == RoleManager
}

func (a Actor) IsManager() bool { return a.Role == RoleManager }

// DisplayName falls back to the email when no name is known.
func (a Actor) DisplayName() string {
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	return strings.TrimSpace(a.Email)
}

// Cache maps external (legacy document store) ids to user ids. It is an
// explicit dependency with the lifetime of whatever run owns it, never a
// package global. Staleness is harmless: a miss re-queries the store.
type Cache struct {
	mu         sync.RWMutex
	byExternal map[string]string
}

func NewCache() *Cache {
	return &Cache{byExternal: make(map[string]string)}
}

func (c *Cache) get(externalID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byExternal[externalID]
	return id, ok
}

func (c *Cache) put(externalID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byExternal[externalID] = userID
}

// Ref is a possibly-partial reference to a person.
type Ref struct {
	Email      string
	ExternalID string
	Name       string
}

type Resolver struct {
	db    *gorm.DB
	cache *Cache
}

func NewResolver(db *gorm.DB, cache *Cache) *Resolver {
	if cache == nil {
		cache = NewCache()
	}
	return &Resolver{db: db, cache: cache}
}

// Resolve returns the user id for ref, creating a stub user when nothing
// matches. It fails only on store errors.
//
// Priority: exact email match, cached external id, username (email local
// part) match, stub creation.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (string, error) {
	email := strings.ToLower(strings.TrimSpace(ref.Email))
	externalID := strings.TrimSpace(ref.ExternalID)

	if email != "" {
		var u models.User
		err := r.db.WithContext(ctx).First(&u, "LOWER(email) = ?", email).Error
		if err == nil {
			if externalID != "" {
				r.cache.put(externalID, u.ID)
			}
			return u.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NewStoreFailure(err)
		}
	}

	if externalID != "" {
		if id, ok := r.cache.get(externalID); ok {
			return id, nil
		}
	}

	username := ""
	if email != "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	if username != "" {
		var u models.User
		err := r.db.WithContext(ctx).First(&u, "LOWER(username) = ?", username).Error
		if err == nil {
			if externalID != "" {
				r.cache.put(externalID, u.ID)
			}
			return u.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.NewStoreFailure(err)
		}
	}

	id, err := r.createStub(ctx, email, externalID, username, ref.Name)
	if err != nil {
		return "", err
	}
	if externalID != "" {
		r.cache.put(externalID, id)
	}
	return id, nil
}

func (r *Resolver) createStub(ctx context.Context, email, externalID, username, name string) (string, error) {
	if email == "" {
		if externalID != "" {
			email = fmt.Sprintf("%s@migracao.local", strings.ToLower(externalID))
		} else {
			email = fmt.Sprintf("sem.email+%d@migracao.local", time.Now().UnixNano())
		}
	}
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	if strings.TrimSpace(name) == "" {
		name = "Operador (migrado)"
	}

	u := models.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Username: username,
		Role:     RoleOperator,
		Function: "Operador de CNC",
	}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		// A concurrent resolve may have created the same email; re-read.
		var existing models.User
		if err2 := r.db.WithContext(ctx).First(&existing, "LOWER(email) = ?", email).Error; err2 == nil {
			return existing.ID, nil
		}
		return "", apperrors.NewStoreFailure(err)
	}
	return u.ID, nil
}

// ResolveStrict requires an existing, non-deleted user for the email.
func (r *Resolver) ResolveStrict(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewInvalidActor("email obrigatorio")
	}
	var u models.User
	err := r.db.WithContext(ctx).First(&u, "LOWER(email) = ? AND is_deleted = ?", email, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInvalidActor(fmt.Sprintf("usuario nao cadastrado: %s", email))
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return &u, nil
}
