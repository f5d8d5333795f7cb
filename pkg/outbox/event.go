package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
)

const envelopeVersion = 1

// Actor is the user and code path that caused an event.
type Actor struct {
	UserID uuid.UUID `json:"userId"`
	Source string    `json:"source,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload. Data holds the
// event-specific body from pkg/outbox/payloads.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DomainEvent is what services hand to Emit. AggregateType may be left empty
// and is then taken from the event type.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *Actor
	Data          any
	OccurredAt    time.Time
}

func (e DomainEvent) toRow(now time.Time) (models.OutboxEvent, PayloadEnvelope, error) {
	aggregate, ok := e.EventType.Aggregate()
	if !ok {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("outbox: unknown event type %q", e.EventType)
	}
	if e.AggregateType != "" && e.AggregateType != aggregate {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("outbox: %s belongs to %s, not %s", e.EventType, aggregate, e.AggregateType)
	}
	if e.AggregateID == uuid.Nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("outbox: %s without aggregate id", e.EventType)
	}

	data, err := json.Marshal(e.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("outbox: encode %s data: %w", e.EventType, err)
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}
	env := PayloadEnvelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurred.UTC(),
		Actor:      e.Actor,
		Data:       data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	return models.OutboxEvent{
		EventType:     e.EventType,
		AggregateType: aggregate,
		AggregateID:   e.AggregateID,
		Payload:       raw,
	}, env, nil
}
