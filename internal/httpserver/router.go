package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"manutec/internal/auth"
	"manutec/internal/httpserver/handlers"
	"manutec/internal/notify"
	"manutec/internal/service"
)

type Services struct {
	Tickets     *service.Tickets
	Machines    *service.Machines
	Schedules   *service.Schedules
	Submissions *service.Submissions
	Users       *service.Users
}

func NewRouter(db *gorm.DB, svcs Services, hub *notify.Hub, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)

	r.Post("/auth/login", handlers.Login(svcs.Users, lg))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Group(func(api chi.Router) {
		api.Use(auth.ActorMiddleware(db))

		api.Get("/me", handlers.Me(lg))
		api.Get("/events", handlers.Events(hub, lg))

		api.Route("/maquinas", func(m chi.Router) {
			m.Post("/", handlers.CreateMachine(svcs.Machines, lg))
			m.Get("/", handlers.ListMachines(svcs.Machines, lg))
			m.Get("/{id}", handlers.GetMachine(svcs.Machines, lg))
			m.Post("/{id}/checklist-add", handlers.AddMachineChecklistItem(svcs.Machines, lg))
			m.Post("/{id}/checklist-remove", handlers.RemoveMachineChecklistItem(svcs.Machines, lg))
		})

		api.Route("/chamados", func(c chi.Router) {
			c.Post("/", handlers.CreateTicket(svcs.Tickets, lg))
			c.Get("/", handlers.ListTickets(svcs.Tickets, lg))
			c.Get("/{id}", handlers.GetTicket(svcs.Tickets, lg))
			c.Patch("/{id}", handlers.PatchTicket(svcs.Tickets, lg))
			c.Post("/{id}/atender", handlers.AttendTicket(svcs.Tickets, lg))
			c.Post("/{id}/concluir", handlers.CompleteTicket(svcs.Tickets, lg))
			c.Post("/{id}/observacoes", handlers.AddTicketNote(svcs.Tickets, lg))
			c.Patch("/{id}/checklist", handlers.ReplaceTicketChecklist(svcs.Tickets, lg))
		})

		api.Route("/agendamentos", func(a chi.Router) {
			a.Post("/", handlers.CreateSchedule(svcs.Schedules, lg))
			a.Get("/", handlers.ListSchedules(svcs.Schedules, lg))
			a.Patch("/{id}", handlers.PatchSchedule(svcs.Schedules, lg))
			a.Delete("/{id}", handlers.DeleteSchedule(svcs.Schedules, lg))
			a.Post("/{id}/iniciar", handlers.StartSchedule(svcs.Schedules, lg))
		})

		api.Post("/checklists", handlers.SubmitChecklist(svcs.Submissions, lg))

		api.Route("/usuarios", func(u chi.Router) {
			u.Get("/", handlers.ListUsers(svcs.Users, lg))
			u.Post("/", handlers.CreateUser(svcs.Users, lg))
			u.Delete("/{id}", handlers.DeleteUser(svcs.Users, lg))
		})
	})

	return r
}
