package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"manutec/internal/auth"
	"manutec/internal/httpserver"
	"manutec/internal/identity"
	"manutec/internal/logger"
	"manutec/internal/models"
	"manutec/internal/notify"
	"manutec/internal/service"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Machine{}, &models.Ticket{},
		&models.TicketNote{}, &models.Schedule{}, &models.ChecklistSubmission{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedDefaultManager(db, lg)

	hub := notify.NewHub(lg)
	resolver := identity.NewResolver(db, identity.NewCache())

	tickets := service.NewTickets(db, resolver, hub, lg)
	svcs := httpserver.Services{
		Tickets:     tickets,
		Machines:    service.NewMachines(db, hub, lg),
		Schedules:   service.NewSchedules(db, resolver, hub, lg),
		Submissions: service.NewSubmissions(db, resolver, tickets, hub, lg),
		Users:       service.NewUsers(db, lg),
	}
	router := httpserver.NewRouter(db, svcs, hub, lg)

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	lg.Infow("listening", "port", port)
	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func seedDefaultManager(db *gorm.DB, lg *zap.SugaredLogger) {
	email := strings.ToLower(os.Getenv("SEED_MANAGER_EMAIL"))
	if email == "" {
		email = "gestor@manutec.local"
	}
	var count int64
	db.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count)
	if count > 0 {
		return
	}
	password := os.Getenv("SEED_MANAGER_PASSWORD")
	if password == "" {
		password = "1234"
	}
	hash, _ := auth.HashPassword(password)
	u := models.User{
		Name:         "Gestor",
		Email:        email,
		Username:     strings.SplitN(email, "@", 2)[0],
		Role:         identity.RoleManager,
		Function:     "Gestao de Manutencao",
		PasswordHash: hash,
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Warnw("seed manager failed", "error", err)
		return
	}
	lg.Infow("seeded default manager", "email", email)
}
