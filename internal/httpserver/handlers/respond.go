package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"manutec/internal/apperrors"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	ae, ok := apperrors.As(err)
	if !ok {
		lg.Errorw("unhandled error", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   apperrors.TypeStoreFailure,
			"message": "erro interno",
		})
		return
	}
	if ae.Type == apperrors.TypeStoreFailure {
		lg.Errorw("store failure", "error", err)
	}
	body := map[string]any{"error": string(ae.Type), "message": ae.Message}
	if ae.Details != "" {
		body["details"] = ae.Details
	}
	respondJSON(w, ae.Code, body)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":   apperrors.TypeValidation,
			"message": "json invalido",
		})
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// queryTime accepts RFC3339 or plain dates ("2006-01-02").
func queryTime(r *http.Request, key string) *time.Time {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
