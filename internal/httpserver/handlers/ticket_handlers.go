package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"manutec/internal/auth"
	"manutec/internal/checklist"
	"manutec/internal/service"
)

func CreateTicket(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateTicketInput
		if !decodeBody(w, r, &in) {
			return
		}
		ticket, err := svc.Create(r.Context(), auth.ActorFrom(r.Context()), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, ticket)
	}
}

func ListTickets(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.List(r.Context(), service.TicketListFilter{
			Status:          q.Get("status"),
			Type:            q.Get("tipo"),
			MachineTag:      q.Get("maquinaTag"),
			MachineID:       q.Get("maquinaId"),
			CreatedByEmail:  q.Get("criadoPorEmail"),
			MaintainerEmail: q.Get("manutentorEmail"),
			From:            queryTime(r, "from"),
			To:              queryTime(r, "to"),
			Page:            queryInt(r, "page"),
			PageSize:        queryInt(r, "pageSize"),
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func GetTicket(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, detail)
	}
}

func AttendTicket(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket, err := svc.Attend(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, ticket)
	}
}

func CompleteTicket(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CompleteTicketInput
		if !decodeBody(w, r, &in) {
			return
		}
		ticket, err := svc.Complete(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, ticket)
	}
}

func PatchTicket(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.PatchStatusInput
		if !decodeBody(w, r, &in) {
			return
		}
		ticket, err := svc.PatchStatus(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, ticket)
	}
}

func AddTicketNote(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Text string `json:"texto"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		note, err := svc.AddNote(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in.Text)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, note)
	}
}

func ReplaceTicketChecklist(svc *service.Tickets, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Checklist []checklist.RawAnswer `json:"checklist"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		generated, err := svc.ReplaceChecklist(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in.Checklist)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "corretivasGeradas": generated})
	}
}
