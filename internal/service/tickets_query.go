package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"manutec/internal/apperrors"
	"manutec/internal/checklist"
	"manutec/internal/models"
	"manutec/internal/status"
)

type TicketListFilter struct {
	Status          string
	Type            string
	MachineTag      string
	MachineID       string
	CreatedByEmail  string
	MaintainerEmail string
	From            *time.Time
	To              *time.Time
	Page            int
	PageSize        int
}

type TicketSummary struct {
	ID               string `json:"id"`
	Machine          string `json:"maquina"`
	Type             string `json:"tipo"`
	Status           string `json:"status"`
	Cause            string `json:"causa,omitempty"`
	Description      string `json:"descricao"`
	Item             string `json:"item,omitempty"`
	ChecklistItemKey string `json:"checklistItemKey,omitempty"`
	CreatedBy        string `json:"criado_por"`
	Maintainer       string `json:"manutentor,omitempty"`
	CreatedAt        string `json:"criado_em"`
	CompletedAt      string `json:"concluido_em,omitempty"`
}

type TicketList struct {
	Items    []TicketSummary `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
	Total    int64           `json:"total"`
	HasNext  bool            `json:"hasNext"`
}

type ticketRow struct {
	ID               string
	Machine          string
	Type             string
	Status           string
	Cause            string
	Description      string
	Item             string
	ChecklistItemKey string
	CreatedBy        string
	Maintainer       string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// List returns a filtered, paginated ticket page. When filtering by the
// completed status, the date window and ordering key on the completion time
// instead of the creation time.
func (s *Tickets) List(ctx context.Context, f TicketListFilter) (*TicketList, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	completed := false
	q := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Joins("JOIN machines m ON m.id = tickets.machine_id").
		Joins("JOIN users u ON u.id = tickets.created_by_id").
		Joins("LEFT JOIN users um ON um.id = tickets.maintainer_id")

	if f.Status != "" {
		norm, ok := status.NormalizeTicket(f.Status)
		if !ok {
			return nil, apperrors.NewValidation("status invalido")
		}
		completed = norm == status.Completed
		q = q.Where("LOWER(tickets.status) = ?", strings.ToLower(norm))
	}
	if f.Type != "" {
		q = q.Where("LOWER(tickets.type) = ?", strings.ToLower(f.Type))
	}
	if f.MachineTag != "" {
		q = q.Where("m.tag = ?", f.MachineTag)
	}
	if f.MachineID != "" {
		q = q.Where("tickets.machine_id = ?", f.MachineID)
	}
	if f.CreatedByEmail != "" {
		q = q.Where("LOWER(u.email) = ?", strings.ToLower(f.CreatedByEmail))
	}
	if f.MaintainerEmail != "" {
		email := strings.ToLower(f.MaintainerEmail)
		q = q.Where("LOWER(um.email) = ? OR LOWER(COALESCE(tickets.assigned_to_email, '')) = ?", email, email)
	}

	dateCol := "tickets.created_at"
	if completed {
		dateCol = "tickets.completed_at"
	}
	if f.From != nil {
		q = q.Where(dateCol+" >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where(dateCol+" <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	var rows []ticketRow
	err := q.Select(`tickets.id, m.name AS machine, tickets.type, tickets.status,
		tickets.cause, tickets.description, tickets.item, tickets.checklist_item_key,
		u.name AS created_by, COALESCE(um.name, '') AS maintainer,
		tickets.created_at, tickets.completed_at`).
		Order(dateCol + " DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	items := make([]TicketSummary, 0, len(rows))
	for _, r := range rows {
		item := TicketSummary{
			ID:               r.ID,
			Machine:          r.Machine,
			Type:             r.Type,
			Status:           r.Status,
			Cause:            r.Cause,
			Description:      r.Description,
			Item:             r.Item,
			ChecklistItemKey: r.ChecklistItemKey,
			CreatedBy:        r.CreatedBy,
			Maintainer:       r.Maintainer,
			CreatedAt:        r.CreatedAt.Format(timeLayout),
		}
		if r.CompletedAt != nil {
			item.CompletedAt = r.CompletedAt.Format(timeLayout)
		}
		items = append(items, item)
	}

	offset := (page - 1) * pageSize
	return &TicketList{
		Items:    items,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  int64(offset+len(items)) < total,
	}, nil
}

type NoteView struct {
	Author    string `json:"autor"`
	Text      string `json:"texto"`
	CreatedAt string `json:"criado_em"`
}

type TicketDetail struct {
	models.Ticket
	Machine          string             `json:"maquina"`
	StatusKey        string             `json:"status_key"`
	CreatedByName    string             `json:"criado_por"`
	CreatedByEmail   string             `json:"criado_por_email,omitempty"`
	Maintainer       string             `json:"manutentor,omitempty"`
	MaintainerEmail  string             `json:"manutentor_email,omitempty"`
	ResponsibleName  string             `json:"responsavel_atual_nome,omitempty"`
	ResponsibleEmail string             `json:"responsavel_atual_email,omitempty"`
	ChecklistItems   []checklist.Answer `json:"checklist_itens"`
	Notes            []NoteView         `json:"observacoes"`
}

func statusKey(s string) string {
	switch norm, _ := status.NormalizeTicket(s); norm {
	case status.InProgress:
		return "em_andamento"
	case status.Completed:
		return "concluido"
	case status.Cancelled:
		return "cancelado"
	default:
		return "aberto"
	}
}

// Get assembles the full detail view: machine, resolved people, checklist
// snapshot and notes in chronological order.
func (s *Tickets) Get(ctx context.Context, ticketID string) (*TicketDetail, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).First(&ticket, "id = ?", ticketID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("chamado nao encontrado")
	}
	if err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}

	detail := TicketDetail{Ticket: ticket, StatusKey: statusKey(ticket.Status)}

	var machine models.Machine
	if err := s.db.WithContext(ctx).First(&machine, "id = ?", ticket.MachineID).Error; err == nil {
		detail.Machine = machine.Name
	}

	if u := s.userByID(ctx, &ticket.CreatedByID); u != nil {
		detail.CreatedByName = u.Name
		detail.CreatedByEmail = u.Email
	}
	if u := s.userByID(ctx, ticket.AttendedByID); u != nil {
		detail.Maintainer = u.Name
		detail.MaintainerEmail = u.Email
	}
	if detail.Maintainer == "" && ticket.AttendedByName != "" {
		detail.Maintainer = ticket.AttendedByName
		detail.MaintainerEmail = ticket.AttendedByEmail
	}
	if u := s.userByID(ctx, ticket.Responsible()); u != nil {
		detail.ResponsibleName = u.Name
		detail.ResponsibleEmail = u.Email
	}

	_ = ticket.Checklist.Decode(&detail.ChecklistItems)
	if detail.ChecklistItems == nil {
		detail.ChecklistItems = []checklist.Answer{}
	}

	var notes []models.TicketNote
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", ticketID).Order("created_at ASC").Find(&notes).Error; err != nil {
		return nil, apperrors.NewStoreFailure(err)
	}
	detail.Notes = make([]NoteView, 0, len(notes))
	for _, n := range notes {
		author := n.AuthorName
		if author == "" {
			if u := s.userByID(ctx, n.AuthorID); u != nil {
				author = u.Name
			}
		}
		if author == "" {
			author = "Sistema"
		}
		detail.Notes = append(detail.Notes, NoteView{
			Author:    author,
			Text:      n.Text,
			CreatedAt: n.CreatedAt.Format(timeLayout),
		})
	}
	return &detail, nil
}

func (s *Tickets) userByID(ctx context.Context, id *string) *models.User {
	if id == nil || *id == "" {
		return nil
	}
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", *id).Error; err != nil {
		return nil
	}
	return &u
}
