package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manutec/internal/apperrors"
	"manutec/internal/models"
	"manutec/internal/notify"
	"manutec/internal/status"
)

type Machines struct {
	db       *gorm.DB
	notifier notify.Notifier
	lg       *zap.SugaredLogger
}

func NewMachines(db *gorm.DB, notifier notify.Notifier, lg *zap.SugaredLogger) *Machines {
	return &Machines{db: db, notifier: notifier, lg: lg}
}

type CreateMachineInput struct {
	Name     string `json:"nome"`
	Tag      string `json:"tag"`
	Sector   string `json:"setor"`
	Critical bool   `json:"critico"`
}

// Create registers a machine. Name and tag are unique case-insensitively
// across the fleet; the tag defaults to the name.
func (s *Machines) Create(ctx context.Context, in CreateMachineInput) (*models.Machine, error) {
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) < 2 {
		return nil, apperrors.NewValidation("nome da maquina e obrigatorio")
	}
	tag := strings.TrimSpace(in.Tag)
	if tag == "" {
		tag = name
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Machine{}).
		Where("LOWER(name) = ? OR LOWER(tag) = ?", strings.ToLower(name), strings.ToLower(tag)).
		Count(&count).Error
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	if count > 0 {
		return nil, apperrors.NewConflict("ja existe uma maquina com esse nome/tag")
	}

	m := models.Machine{
		Name:           name,
		Tag:            tag,
		Sector:         strings.TrimSpace(in.Sector),
		Critical:       in.Critical,
		DailyChecklist: models.NewJSONB([]string{}),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	s.notifier.Notify("maquinas", "created", m.ID, nil)
	return &m, nil
}

// List returns machines ordered by name, optionally filtered by a substring
// match on name or tag.
func (s *Machines) List(ctx context.Context, q string) ([]models.Machine, error) {
	query := s.db.WithContext(ctx).Model(&models.Machine{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(tag) LIKE ?", like, like)
	}
	var machines []models.Machine
	if err := query.Order("name ASC").Find(&machines).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return machines, nil
}

type MachineDetail struct {
	models.Machine
	ActiveTickets []models.Ticket              `json:"chamadosAtivos"`
	Submissions   []models.ChecklistSubmission `json:"checklistHistorico"`
}

// Get returns the machine with its active tickets and most recent daily
// checklist submissions.
func (s *Machines) Get(ctx context.Context, id string) (*MachineDetail, error) {
	var m models.Machine
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("maquina nao encontrada")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	detail := MachineDetail{Machine: m}
	err = s.db.WithContext(ctx).
		Where("machine_id = ? AND status IN ?", id, []string{status.Open, status.InProgress}).
		Order("created_at DESC").Limit(50).
		Find(&detail.ActiveTickets).Error
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	err = s.db.WithContext(ctx).
		Where("machine_id = ?", id).
		Order("created_at DESC").Limit(50).
		Find(&detail.Submissions).Error
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return &detail, nil
}

// AddChecklistItem appends an item to the daily checklist template unless an
// equal item (case-insensitive) is already present. Idempotent.
func (s *Machines) AddChecklistItem(ctx context.Context, id, item string) ([]string, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, apperrors.NewValidation("item invalido")
	}
	return s.mutateChecklist(ctx, id, func(items []string) []string {
		for _, existing := range items {
			if strings.EqualFold(existing, item) {
				return items
			}
		}
		return append(items, item)
	})
}

// RemoveChecklistItem drops every case-insensitive match of item. Idempotent;
// historical submissions and snapshots are untouched.
func (s *Machines) RemoveChecklistItem(ctx context.Context, id, item string) ([]string, error) {
	item = strings.TrimSpace(item)
	if item == "" {
		return nil, apperrors.NewValidation("item invalido")
	}
	return s.mutateChecklist(ctx, id, func(items []string) []string {
		kept := items[:0]
		for _, existing := range items {
			if !strings.EqualFold(existing, item) {
				kept = append(kept, existing)
			}
		}
		return kept
	})
}

func (s *Machines) mutateChecklist(ctx context.Context, id string, mutate func([]string) []string) ([]string, error) {
	var result []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Machine
		if err := forUpdate(tx).First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("maquina nao encontrada")
			}
			return apperrors.NewStoreFailure(err)
		}
		items := []string{}
		_ = m.DailyChecklist.Decode(&items)
		items = mutate(items)
		if items == nil {
			items = []string{}
		}
		if err := tx.Model(&models.Machine{}).Where("id = ?", id).
			Update("daily_checklist", models.NewJSONB(items)).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}
		result = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify("maquinas", "updated", id, nil)
	return result, nil
}
