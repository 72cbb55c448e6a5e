package model

import "time"

type Professor struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CPF        string    `json:"cpf"`
	Department string    `json:"department"`
	External   bool      `json:"external"` // not part of the program
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type DefenseKind string

const (
	DefenseTCC       DefenseKind = "tcc"
	DefenseMestrado  DefenseKind = "mestrado"
	DefenseDoutorado DefenseKind = "doutorado"
)

type DefenseModality string

const (
	ModalityPresencial DefenseModality = "presencial"
	ModalityRemota     DefenseModality = "remota"
)

type DefenseStatus string

const (
	DefenseSolicitada DefenseStatus = "solicitada"
	DefenseConfirmada DefenseStatus = "confirmada"
	DefenseCancelada  DefenseStatus = "cancelada"
)

// Defense is a request to schedule a thesis defense with its banca.
type Defense struct {
	ID           int64           `json:"id"`
	StudentName  string          `json:"student_name"`
	StudentCPF   string          `json:"student_cpf"`
	Registration string          `json:"registration"` // student enrollment number
	Program      string          `json:"program"`
	Kind         DefenseKind     `json:"kind"`
	Title        string          `json:"title"`
	AdvisorID    int64           `json:"advisor_id"`
	MemberIDs    []int64         `json:"member_ids"`
	StartsAt     time.Time       `json:"starts_at"`
	Duration     int             `json:"duration"` // minutes
	Modality     DefenseModality `json:"modality"`
	Room         string          `json:"room"`
	Status       DefenseStatus   `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// EndsAt returns the scheduled end
func (d *Defense) EndsAt() time.Time {
	return d.StartsAt.Add(time.Duration(d.Duration) * time.Minute)
}

// BoardIDs returns advisor followed by members
func (d *Defense) BoardIDs() []int64 {
	ids := make([]int64, 0, len(d.MemberIDs)+1)
	ids = append(ids, d.AdvisorID)
	return append(ids, d.MemberIDs...)
}

// IsActive checks the defense still occupies its slot
func (d *Defense) IsActive() bool {
	return d.Status != DefenseCancelada
}
