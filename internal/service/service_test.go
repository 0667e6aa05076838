package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"manutec/internal/identity"
	"manutec/internal/models"
	"manutec/internal/notify"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Machine{}, &models.Ticket{},
		&models.TicketNote{}, &models.Schedule{}, &models.ChecklistSubmission{},
	))
	return db
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

type fixtures struct {
	db        *gorm.DB
	tickets   *Tickets
	machines  *Machines
	schedules *Schedules
	subs      *Submissions
	users     *Users
}

func newFixtures(t *testing.T) *fixtures {
	t.Helper()
	db := newTestDB(t)
	lg := testLogger()
	resolver := identity.NewResolver(db, identity.NewCache())
	nop := notify.Nop{}
	tickets := NewTickets(db, resolver, nop, lg)
	return &fixtures{
		db:        db,
		tickets:   tickets,
		machines:  NewMachines(db, nop, lg),
		schedules: NewSchedules(db, resolver, nop, lg),
		subs:      NewSubmissions(db, resolver, tickets, nop, lg),
		users:     NewUsers(db, lg),
	}
}

func (f *fixtures) user(t *testing.T, name, email, role string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, Role: role}
	require.NoError(t, f.db.Create(&u).Error)
	return u
}

func (f *fixtures) machine(t *testing.T, name, tag string, checklist ...string) models.Machine {
	t.Helper()
	if checklist == nil {
		checklist = []string{}
	}
	m := models.Machine{Name: name, Tag: tag, DailyChecklist: models.NewJSONB(checklist)}
	require.NoError(t, f.db.Create(&m).Error)
	return m
}

func actorFor(u models.User) identity.Actor {
	return identity.Actor{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
