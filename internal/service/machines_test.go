package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manutec/internal/apperrors"
	"manutec/internal/identity"
)

func TestCreateMachine(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	_, err := f.machines.Create(ctx, CreateMachineInput{Name: "X"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	m, err := f.machines.Create(ctx, CreateMachineInput{Name: "Torno 01", Sector: "Usinagem", Critical: true})
	require.NoError(t, err)
	assert.Equal(t, "Torno 01", m.Tag, "tag defaults to the name")
	assert.True(t, m.Critical)

	_, err = f.machines.Create(ctx, CreateMachineInput{Name: "TORNO 01"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict), "case-insensitive name dup")

	_, err = f.machines.Create(ctx, CreateMachineInput{Name: "Outra", Tag: "torno 01"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeConflict), "case-insensitive tag dup")
}

func TestListMachines(t *testing.T) {
	f := newFixtures(t)
	f.machine(t, "Torno 01", "T-01")
	f.machine(t, "Fresa 02", "F-02")
	ctx := context.Background()

	all, err := f.machines.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Fresa 02", all[0].Name, "ordered by name")

	got, err := f.machines.List(ctx, "torno")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Torno 01", got[0].Name)

	got, err = f.machines.List(ctx, "f-02")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestMachineChecklistMutations(t *testing.T) {
	f := newFixtures(t)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()

	_, err := f.machines.AddChecklistItem(ctx, m.ID, "  ")
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	_, err = f.machines.AddChecklistItem(ctx, "nao-existe", "Check Oil")
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	items, err := f.machines.AddChecklistItem(ctx, m.ID, "Check Oil")
	require.NoError(t, err)
	assert.Equal(t, []string{"Check Oil"}, items)

	// Case-insensitive duplicate is a no-op.
	items, err = f.machines.AddChecklistItem(ctx, m.ID, "check oil")
	require.NoError(t, err)
	assert.Equal(t, []string{"Check Oil"}, items)

	items, err = f.machines.AddChecklistItem(ctx, m.ID, "Limpar filtro")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = f.machines.RemoveChecklistItem(ctx, m.ID, "CHECK OIL")
	require.NoError(t, err)
	assert.Equal(t, []string{"Limpar filtro"}, items)

	// Removing an absent item is also a no-op.
	items, err = f.machines.RemoveChecklistItem(ctx, m.ID, "Check Oil")
	require.NoError(t, err)
	assert.Equal(t, []string{"Limpar filtro"}, items)
}

func TestMachineDetail(t *testing.T) {
	f := newFixtures(t)
	gestor := f.user(t, "Gestor", "gestor@fabrica.com", identity.RoleManager)
	manutentor := f.user(t, "Manutentor", "man@fabrica.com", identity.RoleMaintainer)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()

	open, err := f.tickets.Create(ctx, actorFor(gestor), CreateTicketInput{
		MachineTag: "T-01", Description: "vazamento de oleo", CreatedByEmail: gestor.Email,
	})
	require.NoError(t, err)

	done, err := f.tickets.Create(ctx, actorFor(gestor), CreateTicketInput{
		MachineTag: "T-01", Description: "ruido no fuso", CreatedByEmail: gestor.Email,
		Status: "Em Andamento", MaintainerEmail: manutentor.Email,
	})
	require.NoError(t, err)
	_, err = f.tickets.Complete(ctx, actorFor(manutentor), done.ID, CompleteTicketInput{
		Cause: "desgaste", Resolution: "troca",
	})
	require.NoError(t, err)

	detail, err := f.machines.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, detail.ActiveTickets, 1, "completed tickets excluded")
	assert.Equal(t, open.ID, detail.ActiveTickets[0].ID)

	_, err = f.machines.Get(ctx, "nao-existe")
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}
