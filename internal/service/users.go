package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manutec/internal/apperrors"
	"manutec/internal/auth"
	"manutec/internal/identity"
	"manutec/internal/models"
)

type Users struct {
	db *gorm.DB
	lg *zap.SugaredLogger
}

func NewUsers(db *gorm.DB, lg *zap.SugaredLogger) *Users {
	return &Users{db: db, lg: lg}
}

type CreateUserInput struct {
	Name     string `json:"nome"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Function string `json:"funcao"`
	Password string `json:"password"`
}

func (s *Users) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, apperrors.NewValidation("nome e email sao obrigatorios")
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", email).Count(&count).Error
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	if count > 0 {
		return nil, apperrors.NewConflict("ja existe um usuario com esse email")
	}

	u := models.User{
		Name:     name,
		Email:    email,
		Username: strings.TrimSpace(in.Username),
		Role:     identity.NormalizeRole(in.Role),
		Function: strings.TrimSpace(in.Function),
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, apperrors.NewStoreFailure(err)
		}
		u.PasswordHash = hash
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return &u, nil
}

func (s *Users) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("name ASC").Find(&users).Error
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return users, nil
}

// Delete soft-deletes so historical tickets keep resolving the author.
func (s *Users) Delete(ctx context.Context, actor identity.Actor, id string) error {
	if !actor.IsManager() {
		return apperrors.NewPermissionDenied("somente gestor pode remover usuarios")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).Update("is_deleted", true)
	if res.Error != nil {
		return apperrors.NewStoreFailure(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound("usuario nao encontrado")
	}
	return nil
}

// Authenticate checks the password for login. Deleted users cannot log in.
func (s *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidation("email e password sao obrigatorios")
	}
	var u models.User
	err := s.db.WithContext(ctx).
		First(&u, "LOWER(email) = ? AND is_deleted = ?", email, false).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewInvalidActor("credenciais invalidas")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	if u.PasswordHash == "" || auth.CheckPassword(u.PasswordHash, password) != nil {
		return nil, apperrors.NewInvalidActor("credenciais invalidas")
	}
	return &u, nil
}
