package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"nome"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"index" json:"usuario"`
	Role         string    `gorm:"not null;default:operador" json:"role"`
	Function     string    `json:"funcao"`
	PasswordHash string    `json:"-"`
	IsDeleted    bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Machine struct {
	ID             string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;not null" json:"nome"`
	Tag            string    `gorm:"index" json:"tag"`
	Sector         string    `json:"setor"`
	Critical       bool      `gorm:"not null;default:false" json:"critico"`
	DailyChecklist JSONB     `gorm:"type:jsonb;default:'[]'" json:"checklist_diario"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (m *Machine) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Ticket is a maintenance chamado, corrective or preventive.
type Ticket struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID *string `gorm:"uniqueIndex" json:"external_id,omitempty"`
	MachineID  string  `gorm:"type:uuid;index;not null" json:"maquina_id"`

	Type        string `gorm:"not null;default:corretiva" json:"tipo"`
	Status      string `gorm:"not null;default:Aberto" json:"status"`
	Description string `json:"descricao"`

	// Set on tickets auto-opened from a failed checklist item.
	Item             string `json:"item,omitempty"`
	ChecklistItemKey string `gorm:"index" json:"checklist_item_key,omitempty"`

	Cause      string `json:"causa,omitempty"`
	Resolution string `json:"solucao,omitempty"`

	CreatedByID  string  `gorm:"type:uuid;index" json:"criado_por_id"`
	MaintainerID *string `gorm:"type:uuid;index" json:"manutentor_id,omitempty"`

	// ResponsibleID is the authoritative "current responsible party" column.
	// AssignedTo* are legacy import columns, kept read-only.
	ResponsibleID   *string `gorm:"type:uuid;index" json:"responsavel_atual_id,omitempty"`
	AssignedToID    *string `gorm:"type:uuid" json:"atribuido_para_id,omitempty"`
	AssignedToName  string  `json:"atribuido_para_nome,omitempty"`
	AssignedToEmail string  `json:"atribuido_para_email,omitempty"`

	AttendedByID    *string    `gorm:"type:uuid" json:"atendido_por_id,omitempty"`
	AttendedByName  string     `json:"atendido_por_nome,omitempty"`
	AttendedByEmail string     `json:"atendido_por_email,omitempty"`
	AttendedAt      *time.Time `json:"atendido_em,omitempty"`

	CompletedByID    *string    `gorm:"type:uuid" json:"concluido_por_id,omitempty"`
	CompletedByName  string     `json:"concluido_por_nome,omitempty"`
	CompletedByEmail string     `json:"concluido_por_email,omitempty"`
	CompletedAt      *time.Time `json:"concluido_em,omitempty"`

	Checklist  JSONB   `gorm:"type:jsonb;default:'[]'" json:"checklist"`
	ScheduleID *string `gorm:"type:uuid;index" json:"agendamento_id,omitempty"`

	CreatedAt time.Time `json:"criado_em"`
	UpdatedAt time.Time `json:"atualizado_em"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Responsible resolves the current responsible party by priority:
// explicit responsible > whoever attended > legacy import assignment.
func (t *Ticket) Responsible() *string {
	if t.ResponsibleID != nil {
		return t.ResponsibleID
	}
	if t.AttendedByID != nil {
		return t.AttendedByID
	}
	return t.AssignedToID
}

type TicketNote struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	TicketID   string    `gorm:"type:uuid;index;not null" json:"chamado_id"`
	AuthorID   *string   `gorm:"type:uuid" json:"autor_id,omitempty"`
	AuthorName string    `json:"autor_nome,omitempty"`
	Text       string    `gorm:"not null" json:"texto"`
	CreatedAt  time.Time `json:"criado_em"`
}

func (n *TicketNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Schedule is an agendamento preventivo: a planned maintenance window with a
// checklist template of {texto, key} items.
type Schedule struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	MachineID   string `gorm:"type:uuid;index;not null" json:"maquina_id"`
	Description string `gorm:"not null" json:"descricao"`
	Items       JSONB  `gorm:"type:jsonb;default:'[]'" json:"itens_checklist"`

	OriginalStart *time.Time `json:"original_start,omitempty"`
	OriginalEnd   *time.Time `json:"original_end,omitempty"`
	StartTS       time.Time  `gorm:"index;not null" json:"start_ts"`
	EndTS         time.Time  `gorm:"not null" json:"end_ts"`

	Status      string     `gorm:"not null;default:agendado" json:"status"`
	StartedAt   *time.Time `json:"iniciado_em,omitempty"`
	CompletedAt *time.Time `json:"concluido_em,omitempty"`

	CreatedAt time.Time `json:"criado_em"`
	UpdatedAt time.Time `json:"atualizado_em"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Late reports whether the schedule was completed past its planned end.
// Without a completion timestamp the notion does not apply and it returns false.
func (s *Schedule) Late() bool {
	return s.Status == "concluido" && s.CompletedAt != nil && s.CompletedAt.After(s.EndTS)
}

// ChecklistSubmission is an append-only daily checklist record. ExternalID is
// the import correlation id; re-submitting the same id updates in place.
type ChecklistSubmission struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID    *string   `gorm:"uniqueIndex" json:"external_id,omitempty"`
	MachineID     *string   `gorm:"type:uuid;index" json:"maquina_id,omitempty"`
	MachineName   string    `json:"maquina_nome,omitempty"`
	OperatorID    *string   `gorm:"type:uuid" json:"operador_id,omitempty"`
	OperatorName  string    `json:"operador_nome,omitempty"`
	OperatorEmail string    `json:"operador_email,omitempty"`
	Shift         string    `json:"turno,omitempty"`
	Answers       JSONB     `gorm:"type:jsonb;not null;default:'{}'" json:"respostas"`
	CreatedAt     time.Time `json:"criado_em"`
}

func (c *ChecklistSubmission) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
