package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"manutec/internal/service"
)

func SubmitChecklist(svc *service.Submissions, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.SubmitInput
		if !decodeBody(w, r, &in) {
			return
		}
		result, err := svc.Upsert(r.Context(), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, result)
	}
}
