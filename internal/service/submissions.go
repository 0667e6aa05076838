package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"manutec/internal/apperrors"
	"manutec/internal/checklist"
	"manutec/internal/identity"
	"manutec/internal/models"
	"manutec/internal/notify"
)

type Submissions struct {
	db       *gorm.DB
	ids      *identity.Resolver
	tickets  *Tickets
	notifier notify.Notifier
	lg       *zap.SugaredLogger
}

func NewSubmissions(db *gorm.DB, ids *identity.Resolver, tickets *Tickets, notifier notify.Notifier, lg *zap.SugaredLogger) *Submissions {
	return &Submissions{db: db, ids: ids, tickets: tickets, notifier: notifier, lg: lg}
}

type SubmitInput struct {
	ExternalID         string            `json:"fsId"`
	MachineID          string            `json:"maquinaId"`
	MachineName        string            `json:"maquinaNome"`
	OperatorEmail      string            `json:"operadorEmail"`
	OperatorName       string            `json:"operadorNome"`
	OperatorExternalID string            `json:"operadorId"`
	Shift              string            `json:"turno"`
	Answers            map[string]string `json:"respostas"`
}

type SubmitResult struct {
	Submission *models.ChecklistSubmission `json:"submissao"`
	Escalated  int                         `json:"corretivasGeradas"`
}

// Upsert stores a daily checklist submission and escalates pass->fail
// transitions into corrective tickets. The upsert is idempotent by the
// external correlation id, so client retries never duplicate rows, and the
// corrective dedup guard makes the escalation side safe to replay too.
func (s *Submissions) Upsert(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if len(in.Answers) == 0 {
		return nil, apperrors.NewValidation("respostas obrigatorias")
	}

	machine, err := s.resolveMachine(ctx, in.MachineID, in.MachineName)
	if err != nil {
		return nil, err
	}

	operatorID, err := s.ids.Resolve(ctx, identity.Ref{
		Email:      in.OperatorEmail,
		ExternalID: in.OperatorExternalID,
		Name:       in.OperatorName,
	})
	if err != nil {
		return nil, err
	}

	answers := make(map[string]string, len(in.Answers))
	for rawKey, rawAnswer := range in.Answers {
		key := checklist.Slug(rawKey)
		if key == "" {
			key = strings.TrimSpace(rawKey)
		}
		if key == "" {
			continue
		}
		answers[key] = checklist.NormalizeResposta(rawAnswer)
	}

	prior := map[string]string{}
	var latest models.ChecklistSubmission
	err = s.db.WithContext(ctx).Where("machine_id = ?", machine.ID).
		Order("created_at DESC").First(&latest).Error
	if err == nil {
		_ = latest.Answers.Decode(&prior)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewStoreFailure(err)
	}

	sub, err := s.store(ctx, in, machine, operatorID, answers)
	if err != nil {
		return nil, err
	}

	escalated, err := s.escalate(ctx, machine, answers, prior, operatorID)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify("checklists", "created", sub.ID, nil)
	return &SubmitResult{Submission: sub, Escalated: escalated}, nil
}

func (s *Submissions) resolveMachine(ctx context.Context, id, name string) (*models.Machine, error) {
	q := s.db.WithContext(ctx)
	var m models.Machine
	var err error
	switch {
	case id != "":
		err = q.First(&m, "id = ?", id).Error
	case strings.TrimSpace(name) != "":
		err = q.First(&m, "LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).Error
	default:
		return nil, apperrors.NewValidation("informe maquinaId ou maquinaNome")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("maquina nao encontrada")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return &m, nil
}

func (s *Submissions) store(ctx context.Context, in SubmitInput, machine *models.Machine, operatorID string, answers map[string]string) (*models.ChecklistSubmission, error) {
	fill := func(sub *models.ChecklistSubmission) {
		sub.MachineID = &machine.ID
		sub.MachineName = machine.Name
		sub.OperatorID = &operatorID
		sub.OperatorName = strings.TrimSpace(in.OperatorName)
		sub.OperatorEmail = strings.ToLower(strings.TrimSpace(in.OperatorEmail))
		sub.Shift = strings.TrimSpace(in.Shift)
		sub.Answers = models.NewJSONB(answers)
	}

	externalID := strings.TrimSpace(in.ExternalID)
	if externalID != "" {
		var existing models.ChecklistSubmission
		err := s.db.WithContext(ctx).First(&existing, "external_id = ?", externalID).Error
		if err == nil {
			fill(&existing)
			if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
				return nil, apperrors.NewStoreFailure(err)
			}
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewStoreFailure(err)
		}
	}

	sub := models.ChecklistSubmission{}
	if externalID != "" {
		sub.ExternalID = &externalID
	}
	fill(&sub)
	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return &sub, nil
}

// escalate opens a corrective ticket for every item whose answer moved from
// pass (or absent) to fail since the machine's previous submission.
func (s *Submissions) escalate(ctx context.Context, machine *models.Machine, answers, prior map[string]string, operatorID string) (int, error) {
	var template []string
	_ = machine.DailyChecklist.Decode(&template)
	textByKey := make(map[string]string, len(template))
	for i, text := range template {
		textByKey[checklist.KeyFor(text, i)] = text
	}

	count := 0
	for key, answer := range answers {
		if answer != checklist.No || prior[key] == checklist.No {
			continue
		}
		text, ok := textByKey[key]
		if !ok {
			text = key
		}
		created, err := s.tickets.EscalateFailedItem(ctx, machine.ID, text, key, &operatorID)
		if err != nil {
			return count, err
		}
		if created {
			count++
		}
	}
	return count, nil
}
