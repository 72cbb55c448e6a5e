package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeBackupCreated    = "backup.created"
	TypeReportGenerated  = "report.generated"
	TypeComandaClosed    = "comanda.closed"
	TypeDefenseScheduled = "defense.scheduled"
)

// Event is the envelope published on the exchange
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher sends domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Encode wraps payload into an Event and marshals it
func Encode(eventType string, payload any, now time.Time) ([]byte, error) {
	body, err := json.Marshal(Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: now.UTC(),
		Payload:    payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return body, nil
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
