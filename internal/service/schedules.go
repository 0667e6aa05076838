package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manutec/internal/apperrors"
	"manutec/internal/checklist"
	"manutec/internal/identity"
	"manutec/internal/models"
	"manutec/internal/notify"
	"manutec/internal/status"
)

type Schedules struct {
	db       *gorm.DB
	ids      *identity.Resolver
	notifier notify.Notifier
	lg       *zap.SugaredLogger
}

func NewSchedules(db *gorm.DB, ids *identity.Resolver, notifier notify.Notifier, lg *zap.SugaredLogger) *Schedules {
	return &Schedules{db: db, ids: ids, notifier: notifier, lg: lg}
}

type CreateScheduleInput struct {
	MachineID   string          `json:"maquinaId"`
	Description string          `json:"descricao"`
	Items       json.RawMessage `json:"itensChecklist"`
	Start       *time.Time      `json:"start"`
	End         *time.Time      `json:"end"`
}

// Create registers a preventive schedule entry. The checklist template is
// normalized into {texto, key} pairs whatever shape the client sent.
func (s *Schedules) Create(ctx context.Context, in CreateScheduleInput) (*models.Schedule, error) {
	if in.MachineID == "" || strings.TrimSpace(in.Description) == "" || in.Start == nil || in.End == nil {
		return nil, apperrors.NewValidation("campos obrigatorios: maquinaId, descricao, start, end")
	}

	var machine models.Machine
	err := s.db.WithContext(ctx).First(&machine, "id = ?", in.MachineID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("maquina nao encontrada")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	items := checklist.ParseTemplate(in.Items)
	sc := models.Schedule{
		MachineID:     in.MachineID,
		Description:   strings.TrimSpace(in.Description),
		Items:         models.NewJSONB(items),
		OriginalStart: in.Start,
		OriginalEnd:   in.End,
		StartTS:       *in.Start,
		EndTS:         *in.End,
		Status:        status.Scheduled,
	}
	if err := s.db.WithContext(ctx).Create(&sc).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	s.notifier.Notify("agendamentos", "created", sc.ID, nil)
	return &sc, nil
}

type ScheduleListFilter struct {
	From        *time.Time
	To          *time.Time
	Limit       int
	OrderRecent bool
}

type ScheduleView struct {
	models.Schedule
	MachineName string `json:"maquina_nome"`
	Late        bool   `json:"atrasado"`
}

func (s *Schedules) List(ctx context.Context, f ScheduleListFilter) ([]ScheduleView, error) {
	q := s.db.WithContext(ctx).Model(&models.Schedule{})
	if f.From != nil {
		q = q.Where("start_ts >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("end_ts <= ?", *f.To)
	}
	if f.OrderRecent {
		q = q.Order("created_at DESC")
	} else {
		q = q.Order("start_ts ASC")
	}
	if f.Limit > 0 && f.Limit <= 500 {
		q = q.Limit(f.Limit)
	}

	var schedules []models.Schedule
	if err := q.Find(&schedules).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	names := map[string]string{}
	views := make([]ScheduleView, 0, len(schedules))
	for _, sc := range schedules {
		name, ok := names[sc.MachineID]
		if !ok {
			var m models.Machine
			if err := s.db.WithContext(ctx).First(&m, "id = ?", sc.MachineID).Error; err == nil {
				name = m.Name
			}
			names[sc.MachineID] = name
		}
		views = append(views, ScheduleView{Schedule: sc, MachineName: name, Late: sc.Late()})
	}
	return views, nil
}

type PatchScheduleInput struct {
	Start  *time.Time `json:"start"`
	End    *time.Time `json:"end"`
	Status string     `json:"status"`
}

// Patch reschedules or re-statuses an entry. Manager only.
func (s *Schedules) Patch(ctx context.Context, actor identity.Actor, id string, in PatchScheduleInput) error {
	if !actor.IsManager() {
		return apperrors.NewPermissionDenied("somente gestor pode reagendar")
	}

	updates := map[string]any{}
	if in.Start != nil {
		updates["start_ts"] = *in.Start
	}
	if in.End != nil {
		updates["end_ts"] = *in.End
	}
	if in.Status != "" {
		norm, ok := status.NormalizeSchedule(in.Status)
		if !ok {
			return apperrors.NewValidation("status invalido")
		}
		updates["status"] = norm
		if norm == status.ScheduleCompleted {
			updates["completed_at"] = time.Now()
		}
	}
	if len(updates) == 0 {
		return apperrors.NewValidation("nada para atualizar")
	}

	res := s.db.WithContext(ctx).Model(&models.Schedule{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return apperrors.NewStoreFailure(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound("agendamento nao encontrado")
	}

	s.notifier.Notify("agendamentos", "updated", id, nil)
	return nil
}

// Delete removes an entry. Manager only.
func (s *Schedules) Delete(ctx context.Context, actor identity.Actor, id string) error {
	if !actor.IsManager() {
		return apperrors.NewPermissionDenied("somente gestor pode deletar")
	}
	res := s.db.WithContext(ctx).Delete(&models.Schedule{}, "id = ?", id)
	if res.Error != nil {
		return apperrors.NewStoreFailure(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNotFound("agendamento nao encontrado")
	}

	s.notifier.Notify("agendamentos", "deleted", id, nil)
	return nil
}

type StartScheduleInput struct {
	CreatedByEmail  string `json:"criadoPorEmail"`
	MaintainerEmail string `json:"manutentorEmail"`
}

// Start converts the schedule into a preventive ticket: the checklist
// template is copied as an assumed-pass snapshot, the ticket links back to
// the schedule and the schedule flips to iniciado, all in one transaction.
func (s *Schedules) Start(ctx context.Context, actor identity.Actor, id string, in StartScheduleInput) (*models.Ticket, error) {
	if !actor.CanMaintain() {
		return nil, apperrors.NewPermissionDenied("apenas manutentor/gestor podem iniciar manutencao")
	}

	createdByEmail := strings.TrimSpace(in.CreatedByEmail)
	if createdByEmail == "" {
		createdByEmail = strings.TrimSpace(actor.Email)
	}
	if createdByEmail == "" {
		return nil, apperrors.NewValidation("informe criadoPorEmail")
	}
	creator, err := s.ids.ResolveStrict(ctx, createdByEmail)
	if err != nil {
		return nil, err
	}

	var maintainerID *string
	if email := strings.TrimSpace(in.MaintainerEmail); email != "" {
		var u models.User
		if err := s.db.WithContext(ctx).First(&u, "LOWER(email) = ?", strings.ToLower(email)).Error; err == nil {
			maintainerID = &u.ID
		}
	}

	var ticket models.Ticket
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sc models.Schedule
		if err := forUpdate(tx).First(&sc, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("agendamento nao encontrado")
			}
			return apperrors.NewStoreFailure(err)
		}

		var machine models.Machine
		if err := tx.First(&machine, "id = ?", sc.MachineID).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}

		snapshot := checklist.BaselineFromTemplate(checklist.ParseTemplate([]byte(sc.Items)))

		initial := status.Open
		if maintainerID != nil {
			initial = status.InProgress
		}
		description := sc.Description
		if description == "" {
			description = machine.Name
		}

		ticket = models.Ticket{
			MachineID:     sc.MachineID,
			Type:          status.TypePreventive,
			Status:        initial,
			Description:   fmt.Sprintf("Preventiva: %s", description),
			CreatedByID:   creator.ID,
			MaintainerID:  maintainerID,
			ResponsibleID: maintainerID,
			Checklist:     models.NewJSONB(snapshot),
			ScheduleID:    &sc.ID,
		}
		if err := tx.Create(&ticket).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}

		now := time.Now()
		res := tx.Model(&models.Schedule{}).Where("id = ?", sc.ID).
			Updates(map[string]any{"status": status.Started, "started_at": now})
		if res.Error != nil {
			return apperrors.NewStoreFailure(res.Error)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify("agendamentos", "started", id, map[string]any{"chamadoId": ticket.ID})
	return &ticket, nil
}
