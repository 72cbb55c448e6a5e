package state

import (
	"errors"
	"time"

	"github.com/Freeeeeet/bizsuite/internal/model"
	"github.com/shopspring/decimal"
)

// Step is where a chat is in the /novo dialog
type Step string

const (
	StepNone        Step = ""
	StepKind        Step = "kind"
	StepAmount      Step = "amount"
	StepDescription Step = "description"
)

var (
	// ErrNoDraft is returned when the chat has no live draft
	ErrNoDraft = errors.New("no transaction draft")
	// ErrWrongStep is returned when an answer arrives for a step the draft is not at
	ErrWrongStep = errors.New("draft is at another step")
)

// Draft is the transaction being collected by /novo
type Draft struct {
	Step      Step
	Kind      model.Kind
	Amount    decimal.Decimal
	StartedAt time.Time
	UpdatedAt time.Time
}

// ready reports whether only the description is missing
func (d *Draft) ready() bool {
	return d.Step == StepDescription && d.Kind.Valid() && d.Amount.IsPositive()
}
