package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manutec/internal/apperrors"
	"manutec/internal/checklist"
	"manutec/internal/identity"
	"manutec/internal/models"
	"manutec/internal/status"
)

func window() (*time.Time, *time.Time) {
	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	end := start.Add(2 * time.Hour)
	return &start, &end
}

func TestCreateSchedule(t *testing.T) {
	f := newFixtures(t)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()
	start, end := window()

	_, err := f.schedules.Create(ctx, CreateScheduleInput{MachineID: m.ID, Description: "mensal"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation), "missing window")

	_, err = f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: "nao-existe", Description: "mensal", Start: start, End: end,
	})
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	sc, err := f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: m.ID, Description: "mensal",
		Items: []byte(`["Check Oil","Limpar filtro"]`),
		Start: start, End: end,
	})
	require.NoError(t, err)
	assert.Equal(t, status.Scheduled, sc.Status)

	var items []checklist.TemplateItem
	require.NoError(t, sc.Items.Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "check-oil", items[0].Key)
}

func TestListSchedules(t *testing.T) {
	f := newFixtures(t)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()
	start, end := window()

	_, err := f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: m.ID, Description: "mensal", Start: start, End: end,
	})
	require.NoError(t, err)

	views, err := f.schedules.List(ctx, ScheduleListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Torno 01", views[0].MachineName)
	assert.False(t, views[0].Late)

	later := start.Add(72 * time.Hour)
	views, err = f.schedules.List(ctx, ScheduleListFilter{From: &later})
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestPatchScheduleManagerOnly(t *testing.T) {
	f := newFixtures(t)
	gestor := f.user(t, "Gestor", "gestor@fabrica.com", identity.RoleManager)
	manutentor := f.user(t, "Manutentor", "man@fabrica.com", identity.RoleMaintainer)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()
	start, end := window()

	sc, err := f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: m.ID, Description: "mensal", Start: start, End: end,
	})
	require.NoError(t, err)

	err = f.schedules.Patch(ctx, actorFor(manutentor), sc.ID, PatchScheduleInput{Status: "cancelado"})
	assert.True(t, apperrors.IsType(err, apperrors.TypePermissionDenied))

	err = f.schedules.Patch(ctx, actorFor(gestor), sc.ID, PatchScheduleInput{})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation), "nothing to update")

	err = f.schedules.Patch(ctx, actorFor(gestor), sc.ID, PatchScheduleInput{Status: "qualquer"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeValidation))

	err = f.schedules.Patch(ctx, actorFor(gestor), "nao-existe", PatchScheduleInput{Status: "cancelado"})
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	newEnd := end.Add(4 * time.Hour)
	err = f.schedules.Patch(ctx, actorFor(gestor), sc.ID, PatchScheduleInput{End: &newEnd, Status: "Concluído"})
	require.NoError(t, err)

	var reloaded models.Schedule
	require.NoError(t, f.db.First(&reloaded, "id = ?", sc.ID).Error)
	assert.Equal(t, status.ScheduleCompleted, reloaded.Status)
	assert.NotNil(t, reloaded.CompletedAt)
}

func TestDeleteSchedule(t *testing.T) {
	f := newFixtures(t)
	gestor := f.user(t, "Gestor", "gestor@fabrica.com", identity.RoleManager)
	operador := f.user(t, "Operador", "op@fabrica.com", identity.RoleOperator)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()
	start, end := window()

	sc, err := f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: m.ID, Description: "mensal", Start: start, End: end,
	})
	require.NoError(t, err)

	err = f.schedules.Delete(ctx, actorFor(operador), sc.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypePermissionDenied))

	require.NoError(t, f.schedules.Delete(ctx, actorFor(gestor), sc.ID))

	err = f.schedules.Delete(ctx, actorFor(gestor), sc.ID)
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))
}

func TestStartSchedule(t *testing.T) {
	f := newFixtures(t)
	gestor := f.user(t, "Gestor", "gestor@fabrica.com", identity.RoleManager)
	manutentor := f.user(t, "Manutentor", "man@fabrica.com", identity.RoleMaintainer)
	operador := f.user(t, "Operador", "op@fabrica.com", identity.RoleOperator)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()
	start, end := window()

	sc, err := f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: m.ID, Description: "mensal",
		Items: []byte(`["Check Oil"]`),
		Start: start, End: end,
	})
	require.NoError(t, err)

	_, err = f.schedules.Start(ctx, actorFor(operador), sc.ID, StartScheduleInput{})
	assert.True(t, apperrors.IsType(err, apperrors.TypePermissionDenied))

	_, err = f.schedules.Start(ctx, actorFor(gestor), "nao-existe", StartScheduleInput{})
	assert.True(t, apperrors.IsType(err, apperrors.TypeNotFound))

	ticket, err := f.schedules.Start(ctx, actorFor(gestor), sc.ID, StartScheduleInput{
		MaintainerEmail: manutentor.Email,
	})
	require.NoError(t, err)
	assert.Equal(t, status.TypePreventive, ticket.Type)
	assert.Equal(t, status.InProgress, ticket.Status)
	assert.Contains(t, ticket.Description, "mensal")
	require.NotNil(t, ticket.ScheduleID)
	assert.Equal(t, sc.ID, *ticket.ScheduleID)
	require.NotNil(t, ticket.MaintainerID)
	assert.Equal(t, manutentor.ID, *ticket.MaintainerID)

	var snapshot []checklist.Answer
	require.NoError(t, ticket.Checklist.Decode(&snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, checklist.Answer{Item: "Check Oil", Resposta: checklist.Yes}, snapshot[0])

	var reloaded models.Schedule
	require.NoError(t, f.db.First(&reloaded, "id = ?", sc.ID).Error)
	assert.Equal(t, status.Started, reloaded.Status)
	assert.NotNil(t, reloaded.StartedAt)
}

func TestStartScheduleWithoutMaintainerOpensAberto(t *testing.T) {
	f := newFixtures(t)
	gestor := f.user(t, "Gestor", "gestor@fabrica.com", identity.RoleManager)
	m := f.machine(t, "Torno 01", "T-01")
	ctx := context.Background()
	start, end := window()

	sc, err := f.schedules.Create(ctx, CreateScheduleInput{
		MachineID: m.ID, Description: "mensal", Start: start, End: end,
	})
	require.NoError(t, err)

	ticket, err := f.schedules.Start(ctx, actorFor(gestor), sc.ID, StartScheduleInput{})
	require.NoError(t, err)
	assert.Equal(t, status.Open, ticket.Status)
	assert.Nil(t, ticket.MaintainerID)
}

func TestScheduleLate(t *testing.T) {
	end := time.Now()
	after := end.Add(time.Hour)
	before := end.Add(-time.Hour)

	sc := models.Schedule{Status: status.ScheduleCompleted, EndTS: end, CompletedAt: &after}
	assert.True(t, sc.Late())

	sc.CompletedAt = &before
	assert.False(t, sc.Late())

	sc.CompletedAt = nil
	assert.False(t, sc.Late(), "no completion timestamp means not applicable")

	sc = models.Schedule{Status: status.Started, EndTS: end, CompletedAt: &after}
	assert.False(t, sc.Late())
}
