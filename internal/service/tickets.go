package service

import (
	"context"
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

type Tickets struct {
	db       *gorm.DB
	ids      *identity.Resolver
	notifier notify.Notifier
	lg       *zap.SugaredLogger
}

func NewTickets(db *gorm.DB, ids *identity.Resolver, notifier notify.Notifier, lg *zap.SugaredLogger) *Tickets {
	return &Tickets{db: db, ids: ids, notifier: notifier, lg: lg}
}

type CreateTicketInput struct {
	MachineID       string `json:"maquinaId"`
	MachineTag      string `json:"maquinaTag"`
	MachineName     string `json:"maquinaNome"`
	Description     string `json:"descricao"`
	Type            string `json:"tipo"`
	Status          string `json:"status"`
	CreatedByEmail  string `json:"criadoPorEmail"`
	MaintainerEmail string `json:"manutentorEmail"`
	ScheduleID      string `json:"agendamentoId"`
	ChecklistItems  []string `json:"checklistItems"`
}

// Create opens a new chamado. Operators may only open 'Aberto' tickets with
// no assignee; maintainers and managers may also open directly 'Em Andamento'
// with a maintainer assigned. Creating from a schedule flips it to iniciado.
func (s *Tickets) Create(ctx context.Context, actor identity.Actor, in CreateTicketInput) (*models.Ticket, error) {
	statusNorm := status.Open
	if strings.TrimSpace(in.Status) != "" {
		var ok bool
		if statusNorm, ok = status.NormalizeTicket(in.Status); !ok {
			return nil, apperrors.NewValidation("status invalido")
		}
	}
	if !status.IsActive(statusNorm) {
		return nil, apperrors.NewValidation("status invalido para criacao")
	}
	ticketType := status.NormalizeType(in.Type)

	description := strings.TrimSpace(in.Description)
	if len([]rune(description)) < 5 {
		return nil, apperrors.NewValidation("descricao obrigatoria (>= 5 caracteres)")
	}
	if strings.TrimSpace(in.CreatedByEmail) == "" {
		return nil, apperrors.NewValidation("criadoPorEmail obrigatorio")
	}

	role := actor.Role
	if role == "" {
		// Unauthenticated dev traffic behaves as gestor, as the legacy API did.
		role = identity.RoleManager
	}
	if role == identity.RoleOperator {
		if statusNorm != status.Open {
			return nil, apperrors.NewPermissionDenied("operador so pode criar chamados em 'Aberto'")
		}
		if strings.TrimSpace(in.MaintainerEmail) != "" {
			return nil, apperrors.NewPermissionDenied("operador nao pode atribuir manutentor ao criar")
		}
	}

	creator, err := s.ids.ResolveStrict(ctx, in.CreatedByEmail)
	if err != nil {
		return nil, err
	}

	var maintainerID *string
	if statusNorm == status.InProgress {
		if strings.TrimSpace(in.MaintainerEmail) == "" {
			return nil, apperrors.NewValidation("manutentorEmail obrigatorio quando status = 'Em Andamento'")
		}
		maintainer, err := s.ids.ResolveStrict(ctx, in.MaintainerEmail)
		if err != nil {
			return nil, err
		}
		maintainerID = &maintainer.ID
	}

	var schedule *models.Schedule
	machineID := ""
	snapshot := []checklist.Answer{}

	if in.ScheduleID != "" {
		var sc models.Schedule
		err := s.db.WithContext(ctx).First(&sc, "id = ?", in.ScheduleID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewValidation("agendamentoId invalido")
		}
		if err != nil {
			return nil, apperrors.NewStoreFailure(err)
		}
		schedule = &sc
		machineID = sc.MachineID
		snapshot = checklist.BaselineFromTemplate(checklist.ParseTemplate([]byte(sc.Items)))
	}

	if len(in.ChecklistItems) > 0 {
		snapshot = snapshot[:0]
		for _, item := range in.ChecklistItems {
			if text := strings.TrimSpace(item); text != "" {
				snapshot = append(snapshot, checklist.Answer{Item: text, Resposta: checklist.Yes})
			}
		}
	}

	if machineID == "" {
		if in.MachineID == "" && in.MachineTag == "" && in.MachineName == "" {
			return nil, apperrors.NewValidation("informe maquinaId, maquinaTag ou maquinaNome (ou agendamentoId)")
		}
		machine, err := s.findMachine(ctx, in.MachineID, in.MachineTag, in.MachineName)
		if err != nil {
			return nil, err
		}
		machineID = machine.ID
	}

	ticket := models.Ticket{
		MachineID:     machineID,
		Type:          ticketType,
		Status:        statusNorm,
		Description:   description,
		CreatedByID:   creator.ID,
		MaintainerID:  maintainerID,
		ResponsibleID: maintainerID,
		Checklist:     models.NewJSONB(snapshot),
	}
	if schedule != nil {
		ticket.ScheduleID = &schedule.ID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}
		if schedule != nil {
			now := time.Now()
			res := tx.Model(&models.Schedule{}).Where("id = ?", schedule.ID).
				Updates(map[string]any{"status": status.Started, "started_at": now})
			if res.Error != nil {
				return apperrors.NewStoreFailure(res.Error)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify("chamados", "created", ticket.ID, nil)
	return &ticket, nil
}

// findMachine resolves a machine by id, tag or name. Exactly one has to match.
func (s *Tickets) findMachine(ctx context.Context, id, tag, name string) (*models.Machine, error) {
	q := s.db.WithContext(ctx).Model(&models.Machine{})
	switch {
	case id != "":
		q = q.Where("id = ?", id)
	case tag != "":
		q = q.Where("tag = ?", tag)
	default:
		q = q.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	}
	var m models.Machine
	err := q.First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("maquina nao encontrada (tag/nome)")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	return &m, nil
}

// Attend moves an Aberto ticket to Em Andamento and records the attendee.
// The current status is re-read under a row lock so two concurrent attends
// cannot both win: the loser observes state_conflict.
func (s *Tickets) Attend(ctx context.Context, actor identity.Actor, ticketID string) (*models.Ticket, error) {
	if !actor.CanMaintain() {
		return nil, apperrors.NewPermissionDenied("apenas manutentor/gestor podem atender")
	}
	if !actor.Known() {
		return nil, apperrors.NewInvalidActor("usuario nao cadastrado")
	}

	var ticket models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("chamado nao encontrado")
			}
			return apperrors.NewStoreFailure(err)
		}
		cur, _ := status.NormalizeTicket(ticket.Status)
		if cur != status.Open {
			return apperrors.NewStateConflict("chamado nao esta aberto", ticket.Status)
		}

		now := time.Now()
		ticket.Status = status.InProgress
		if ticket.MaintainerID == nil {
			ticket.MaintainerID = &actor.ID
		}
		ticket.ResponsibleID = &actor.ID
		ticket.AttendedByID = &actor.ID
		ticket.AttendedByEmail = strings.TrimSpace(actor.Email)
		ticket.AttendedByName = strings.TrimSpace(actor.Name)
		ticket.AttendedAt = &now
		if err := tx.Save(&ticket).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify("chamados", "updated", ticket.ID, nil)
	return &ticket, nil
}

type CompleteTicketInput struct {
	Cause      string              `json:"causa"`
	Resolution string              `json:"solucao"`
	Checklist  []checklist.RawAnswer `json:"checklist"`
}

// Complete closes an Em Andamento ticket. Corrective completion requires
// cause and resolution; preventive completion requires a non-empty checklist.
// Only the ticket's current maintainer, responsible or attendee may complete,
// except managers, who bypass ownership.
func (s *Tickets) Complete(ctx context.Context, actor identity.Actor, ticketID string, in CompleteTicketInput) (*models.Ticket, error) {
	if !actor.CanMaintain() {
		return nil, apperrors.NewPermissionDenied("apenas manutentor/gestor podem concluir")
	}
	if !actor.Known() {
		return nil, apperrors.NewInvalidActor("usuario nao cadastrado")
	}

	var ticket models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("chamado nao encontrado")
			}
			return apperrors.NewStoreFailure(err)
		}
		cur, _ := status.NormalizeTicket(ticket.Status)
		if cur != status.InProgress {
			return apperrors.NewStateConflict("chamado nao esta em andamento", ticket.Status)
		}

		if !actor.IsManager() && !s.isAssociated(&ticket, actor.ID) {
			return apperrors.NewPermissionDenied("somente o responsavel pelo chamado (ou gestor) pode concluir")
		}

		cause := strings.TrimSpace(in.Cause)
		resolution := strings.TrimSpace(in.Resolution)
		answers := checklist.NormalizeAnswers(in.Checklist)

		if ticket.Type == status.TypeCorrective {
			if cause == "" {
				return apperrors.NewValidation("causa obrigatoria")
			}
			if resolution == "" {
				return apperrors.NewValidation("solucao obrigatoria")
			}
		} else {
			if len(answers) == 0 {
				return apperrors.NewValidation("checklist obrigatorio")
			}
		}

		now := time.Now()
		ticket.Status = status.Completed
		ticket.CompletedAt = &now
		ticket.CompletedByID = &actor.ID
		ticket.CompletedByEmail = strings.TrimSpace(actor.Email)
		ticket.CompletedByName = strings.TrimSpace(actor.Name)
		if cause != "" {
			ticket.Cause = cause
		}
		if resolution != "" {
			ticket.Resolution = resolution
		}
		if len(answers) > 0 {
			ticket.Checklist = models.NewJSONB(answers)
		}
		if err := tx.Save(&ticket).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}

		if ticket.ScheduleID != nil {
			res := tx.Model(&models.Schedule{}).Where("id = ?", *ticket.ScheduleID).
				Updates(map[string]any{"status": status.ScheduleCompleted, "completed_at": now})
			if res.Error != nil {
				return apperrors.NewStoreFailure(res.Error)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify("chamados", "updated", ticket.ID, nil)
	return &ticket, nil
}

// isAssociated reports whether userID is the maintainer, current responsible
// or attendee of the ticket.
func (s *Tickets) isAssociated(t *models.Ticket, userID string) bool {
	for _, id := range []*string{t.MaintainerID, t.ResponsibleID, t.AttendedByID} {
		if id != nil && *id == userID {
			return true
		}
	}
	return false
}

type PatchStatusInput struct {
	Status          string `json:"status"`
	MaintainerEmail string `json:"manutentorEmail"`
}

// PatchStatus is the generic transition operation, including manager-only
// reopen. Completed and Cancelled admit no transition except reopen.
func (s *Tickets) PatchStatus(ctx context.Context, actor identity.Actor, ticketID string, in PatchStatusInput) (*models.Ticket, error) {
	target, ok := status.NormalizeTicket(in.Status)
	if !ok {
		return nil, apperrors.NewValidation("status invalido")
	}

	role := actor.Role
	if role == "" {
		role = identity.RoleManager
	}
	switch target {
	case status.InProgress:
		if role != identity.RoleMaintainer && role != identity.RoleManager {
			return nil, apperrors.NewPermissionDenied("apenas manutentor/gestor podem mover para 'Em Andamento'")
		}
		if strings.TrimSpace(in.MaintainerEmail) == "" {
			return nil, apperrors.NewValidation("manutentorEmail obrigatorio quando status = 'Em Andamento'")
		}
	case status.Completed:
		if role != identity.RoleMaintainer && role != identity.RoleManager {
			return nil, apperrors.NewPermissionDenied("apenas manutentor/gestor podem concluir")
		}
	case status.Open:
		if role != identity.RoleManager {
			return nil, apperrors.NewPermissionDenied("apenas gestor pode reabrir para 'Aberto'")
		}
	}

	var maintainerID *string
	if target == status.InProgress {
		maintainer, err := s.ids.ResolveStrict(ctx, in.MaintainerEmail)
		if err != nil {
			return nil, err
		}
		maintainerID = &maintainer.ID
	}

	var ticket models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&ticket, "id = ?", ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewNotFound("chamado nao encontrado")
			}
			return apperrors.NewStoreFailure(err)
		}
		cur, _ := status.NormalizeTicket(ticket.Status)
		if err := validateTransition(cur, target); err != nil {
			return err
		}

		now := time.Now()
		ticket.Status = target
		switch target {
		case status.InProgress:
			ticket.MaintainerID = maintainerID
			ticket.ResponsibleID = maintainerID
		case status.Open:
			ticket.MaintainerID = nil
			ticket.ResponsibleID = nil
			ticket.CompletedAt = nil
			ticket.CompletedByID = nil
			ticket.CompletedByEmail = ""
			ticket.CompletedByName = ""
		case status.Completed:
			ticket.CompletedAt = &now
			if actor.Known() {
				ticket.CompletedByID = &actor.ID
			}
			ticket.CompletedByEmail = strings.TrimSpace(actor.Email)
			ticket.CompletedByName = strings.TrimSpace(actor.Name)
		}
		if err := tx.Save(&ticket).Error; err != nil {
			return apperrors.NewStoreFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify("chamados", "updated", ticket.ID, nil)
	return &ticket, nil
}

// validateTransition enforces the lifecycle edges. Reopening to Aberto is the
// only way out of a terminal status.
func validateTransition(current, target string) error {
	if current == target {
		return apperrors.NewStateConflict("chamado ja esta neste status", current)
	}
	switch target {
	case status.Open:
		return nil
	case status.InProgress:
		if current != status.Open {
			return apperrors.NewStateConflict("chamado nao esta aberto", current)
		}
	case status.Completed:
		if current != status.InProgress {
			return apperrors.NewStateConflict("chamado nao esta em andamento", current)
		}
	case status.Cancelled:
		if !status.IsActive(current) {
			return apperrors.NewStateConflict("chamado ja foi encerrado", current)
		}
	}
	return nil
}

// AddNote appends a free-text observation. Author identity is whatever the
// request carried; the display name falls back to the email.
func (s *Tickets) AddNote(ctx context.Context, actor identity.Actor, ticketID, text string) (*models.TicketNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidation("texto obrigatorio")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).Count(&count).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFound("chamado nao encontrado")
	}

	note := models.TicketNote{
		TicketID:   ticketID,
		AuthorName: actor.DisplayName(),
		Text:       text,
	}
	if actor.Known() {
		note.AuthorID = &actor.ID
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	s.notifier.Notify("chamados", "observacao-criada", ticketID, note)
	return &note, nil
}

// ReplaceChecklist swaps a preventive ticket's checklist snapshot and opens
// one corrective ticket per item that flipped sim -> nao, joined by the
// stable item key so wording or ordering drift does not fake transitions.
// An already-active corrective for the same item text on the same machine
// suppresses the new one. Returns the number of correctives opened.
func (s *Tickets) ReplaceChecklist(ctx context.Context, actor identity.Actor, ticketID string, raw []checklist.RawAnswer) (int, error) {
	newAnswers := checklist.NormalizeAnswers(raw)

	var ticket models.Ticket
	err := s.db.WithContext(ctx).First(&ticket, "id = ?", ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.NewNotFound("chamado nao encontrado")
	}
	if err != nil {
		return 0, apperrors.NewStoreFailure(err)
	}
	if ticket.Type != status.TypePreventive {
		return 0, apperrors.NewValidation("checklist so e editavel em chamados 'preventiva'")
	}

	var oldAnswers []checklist.Answer
	_ = ticket.Checklist.Decode(&oldAnswers)
	oldMap := checklist.AnswerMap(oldAnswers)

	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).
		Update("checklist", models.NewJSONB(newAnswers)).Error; err != nil {
		return 0, apperrors.NewStoreFailure(err)
	}

	var createdByID *string
	if email := strings.TrimSpace(actor.Email); email != "" {
		var u models.User
		if err := s.db.WithContext(ctx).First(&u, "LOWER(email) = ?", strings.ToLower(email)).Error; err == nil {
			createdByID = &u.ID
		}
	} else if actor.Known() {
		createdByID = &actor.ID
	}

	generated := 0
	for _, a := range newAnswers {
		key := checklist.Slug(a.Item)
		was, seen := oldMap[key]
		if !seen {
			was = checklist.Yes
		}
		if was == checklist.No || a.Resposta != checklist.No {
			continue
		}
		created, err := s.EscalateFailedItem(ctx, ticket.MachineID, a.Item, key, createdByID)
		if err != nil {
			return generated, err
		}
		if created {
			generated++
		}
	}

	s.notifier.Notify("chamados", "updated", ticketID, nil)
	return generated, nil
}

// EscalateFailedItem opens a corrective ticket for a failed checklist item
// unless an active corrective for that item already exists on the machine.
// The dedup check is read-then-insert; the narrow race is acceptable.
func (s *Tickets) EscalateFailedItem(ctx context.Context, machineID, itemText, itemKey string, createdByID *string) (bool, error) {
	itemText = strings.TrimSpace(itemText)
	if itemText == "" {
		return false, nil
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("machine_id = ? AND type = ? AND status IN ? AND item = ?",
			machineID, status.TypeCorrective, []string{status.Open, status.InProgress}, itemText).
		Count(&count).Error
	if err != nil {
		return false, apperrors.NewStoreFailure(err)
	}
	if count > 0 {
		return false, nil
	}

	creator := ""
	if createdByID != nil {
		creator = *createdByID
	}
	t := models.Ticket{
		MachineID:        machineID,
		Type:             status.TypeCorrective,
		Status:           status.Open,
		Description:      fmt.Sprintf("Preventiva: item %q marcado como NAO.", itemText),
		Item:             itemText,
		ChecklistItemKey: itemKey,
		CreatedByID:      creator,
		ResponsibleID:    createdByID,
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return false, apperrors.NewStoreFailure(err)
	}
	s.notifier.Notify("chamados", "created", t.ID, nil)
	return true, nil
}
