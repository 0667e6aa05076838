package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"manutec/internal/auth"
	"manutec/internal/service"
)

func ListUsers(svc *service.Users, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.List(r.Context())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, users)
	}
}

func CreateUser(svc *service.Users, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.CreateUserInput
		if !decodeBody(w, r, &in) {
			return
		}
		u, err := svc.Create(r.Context(), in)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusCreated, u)
	}
}

func DeleteUser(svc *service.Users, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), auth.ActorFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func Login(svc *service.Users, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		u, err := svc.Authenticate(r.Context(), in.Email, in.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		token, err := auth.Sign(u.ID, u.Email, u.Role)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"token": token,
			"user": map[string]any{
				"id": u.ID, "nome": u.Name, "email": u.Email, "role": u.Role,
			},
		})
	}
}

func Me(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := auth.ActorFrom(r.Context())
		if !actor.Known() {
			respondJSON(w, http.StatusUnauthorized, map[string]any{
				"error":   "invalid_actor",
				"message": "usuario nao identificado",
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"id": actor.ID, "nome": actor.Name, "email": actor.Email, "role": actor.Role,
		})
	}
}
