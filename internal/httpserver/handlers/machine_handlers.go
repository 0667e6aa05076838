package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"manutec/internal/service"
)

func CreateMachine(svc *service.Machines, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateMachineInput
		if !decodeBody(w, r, &in) {
			return
		}
		m, err := svc.Create(r.Context(), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, m)
	}
}

func ListMachines(svc *service.Machines, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		machines, err := svc.List(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, machines)
	}
}

func GetMachine(svc *service.Machines, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, detail)
	}
}

func AddMachineChecklistItem(svc *service.Machines, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Item string `json:"item"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		items, err := svc.AddChecklistItem(r.Context(), chi.URLParam(r, "id"), in.Item)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"checklistDiario": items})
	}
}

func RemoveMachineChecklistItem(svc *service.Machines, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Item string `json:"item"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		items, err := svc.RemoveChecklistItem(r.Context(), chi.URLParam(r, "id"), in.Item)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"checklistDiario": items})
	}
}
