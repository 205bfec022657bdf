package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/nativebridge/internal/shared/domain"
	"github.com/google/uuid"
)

// Envelope is the wire form of a forwarded event.
type Envelope struct {
	EventID     uuid.UUID       `json:"event_id"`
	Subject     string          `json:"subject,omitempty"`
	SubjectType string          `json:"subject_type"`
	RoutingKey  string          `json:"routing_key"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
	Metadata    EventMetadata   `json:"metadata,omitempty"`
}

// EventMetadata contains optional metadata about the event.
type EventMetadata struct {
	CorrelationID string `json:"correlation_id,omitempty"`
	Source        string `json:"source,omitempty"`
}

// NewEnvelope wraps event with payload serialized as JSON.
func NewEnvelope(event domain.DomainEvent, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	md := event.Metadata()
	return &Envelope{
		EventID:     event.EventID(),
		Subject:     event.Subject(),
		SubjectType: event.SubjectType(),
		RoutingKey:  event.RoutingKey(),
		OccurredAt:  event.OccurredAt(),
		Payload:     raw,
		Metadata: EventMetadata{
			CorrelationID: md.CorrelationID,
			Source:        md.Source,
		},
	}, nil
}

// Marshal encodes the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope decodes an envelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	return &e, nil
}
