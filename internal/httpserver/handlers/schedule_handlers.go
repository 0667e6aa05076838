package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"manutec/internal/auth"
	"manutec/internal/service"
)

func CreateSchedule(svc *service.Schedules, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateScheduleInput
		if !decodeBody(w, r, &in) {
			return
		}
		sc, err := svc.Create(r.Context(), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, sc)
	}
}

func ListSchedules(svc *service.Schedules, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.List(r.Context(), service.ScheduleListFilter{
			From:        queryTime(r, "from"),
			To:          queryTime(r, "to"),
			Limit:       queryInt(r, "limit"),
			OrderRecent: r.URL.Query().Get("order") == "recentes",
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, views)
	}
}

func PatchSchedule(svc *service.Schedules, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.PatchScheduleInput
		if !decodeBody(w, r, &in) {
			return
		}
		if err := svc.Patch(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func DeleteSchedule(svc *service.Schedules, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func StartSchedule(svc *service.Schedules, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.StartScheduleInput
		if !decodeBody(w, r, &in) {
			return
		}
		ticket, err := svc.Start(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id"), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, ticket)
	}
}
