package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"manutec/internal/apperrors"
	"manutec/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func TestResolvePrefersEmail(t *testing.T) {
	db := newTestDB(t)
	u := models.User{Name: "Joana", Email: "joana@fabrica.com", Username: "joana"}
	require.NoError(t, db.Create(&u).Error)

	r := NewResolver(db, NewCache())
	id, err := r.Resolve(context.Background(), Ref{Email: "JOANA@fabrica.com", ExternalID: "fs-1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	// Email hit primes the external-id cache.
	id, err = r.Resolve(context.Background(), Ref{ExternalID: "fs-1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestResolveByUsername(t *testing.T) {
	db := newTestDB(t)
	u := models.User{Name: "Carlos", Email: "carlos@outra.com", Username: "carlos"}
	require.NoError(t, db.Create(&u).Error)

	r := NewResolver(db, NewCache())
	id, err := r.Resolve(context.Background(), Ref{Email: "carlos@fabrica.com"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestResolveCreatesStub(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db, NewCache())

	id, err := r.Resolve(context.Background(), Ref{Email: "novo@fabrica.com", Name: "Novo Operador"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	assert.Equal(t, "novo@fabrica.com", u.Email)
	assert.Equal(t, "Novo Operador", u.Name)
	assert.Equal(t, RoleOperator, u.Role)

	// Resolving again finds the same row instead of stacking stubs.
	again, err := r.Resolve(context.Background(), Ref{Email: "novo@fabrica.com"})
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestResolveStubFromExternalIDOnly(t *testing.T) {
	db := newTestDB(t)
	r := NewResolver(db, NewCache())

	id, err := r.Resolve(context.Background(), Ref{ExternalID: "FS-abc"})
	require.NoError(t, err)

	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	assert.Equal(t, "fs-abc@migracao.local", u.Email)

	// Second resolve with the same external id is served from the cache.
	again, err := r.Resolve(context.Background(), Ref{ExternalID: "FS-abc"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestResolveStrict(t *testing.T) {
	db := newTestDB(t)
	u := models.User{Name: "Ana", Email: "ana@fabrica.com"}
	require.NoError(t, db.Create(&u).Error)
	deleted := models.User{Name: "Velho", Email: "velho@fabrica.com", IsDeleted: true}
	require.NoError(t, db.Create(&deleted).Error)

	r := NewResolver(db, nil)

	got, err := r.ResolveStrict(context.Background(), "ANA@fabrica.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = r.ResolveStrict(context.Background(), "ninguem@fabrica.com")
	assert.True(t, apperrors.IsType(err, apperrors.TypeInvalidActor))

	_, err = r.ResolveStrict(context.Background(), "velho@fabrica.com")
	assert.True(t, apperrors.IsType(err, apperrors.TypeInvalidActor))

	_, err = r.ResolveStrict(context.Background(), "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeInvalidActor))
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, RoleManager, NormalizeRole(" Gestor "))
	assert.Equal(t, RoleMaintainer, NormalizeRole("MANUTENTOR"))
	assert.Equal(t, RoleOperator, NormalizeRole("qualquer coisa"))
}
