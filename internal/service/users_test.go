package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manutec/internal/apperrors"
	"manutec/internal/identity"
)

func TestCreateUser(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{Name: "Sem Email"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	u, err := f.users.Create(ctx, CreateUserInput{
		Name: "Joana", Email: "JOANA@fabrica.com", Role: "Manutentor", Password: "segredo",
	})
	require.NoError(t, err)
	assert.Equal(t, "joana@fabrica.com", u.Email)
	assert.Equal(t, identity.RoleMaintainer, u.Role)
	assert.NotEmpty(t, u.PasswordHash)

	_, err = f.users.Create(ctx, CreateUserInput{Name: "Dup", Email: "joana@fabrica.com"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict))
}

func TestListUsersExcludesDeleted(t *testing.T) {
	f := newFixtures(t)
	gestor := f.user(t, "Gestor", "gestor@fabrica.com", identity.RoleManager)
	alvo := f.user(t, "Alvo", "alvo@fabrica.com", identity.RoleOperator)
	ctx := context.Background()

	users, err := f.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	err = f.users.Delete(ctx, actorFor(alvo), alvo.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypePermissionDenied))

	require.NoError(t, f.users.Delete(ctx, actorFor(gestor), alvo.ID))

	err = f.users.Delete(ctx, actorFor(gestor), "nao-existe")
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	users, err = f.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Gestor", users[0].Name)
}

func TestAuthenticate(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	_, err := f.users.Create(ctx, CreateUserInput{
		Name: "Joana", Email: "joana@fabrica.com", Role: "gestor", Password: "segredo",
	})
	require.NoError(t, err)

	u, err := f.users.Authenticate(ctx, "JOANA@fabrica.com", "segredo")
	require.NoError(t, err)
	assert.Equal(t, "Joana", u.Name)

	_, err = f.users.Authenticate(ctx, "joana@fabrica.com", "errada")
	assert.True(t, apperrors.IsType(err, apperrors.TypeInvalidActor))

	_, err = f.users.Authenticate(ctx, "ninguem@fabrica.com", "segredo")
	assert.True(t, apperrors.IsType(err, apperrors.TypeInvalidActor))

	_, err = f.users.Authenticate(ctx, "", "")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))
}
