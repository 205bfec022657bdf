package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something the bridge observed and fans out to subscribers.
type DomainEvent interface {
	EventID() uuid.UUID
	Subject() string
	SubjectType() string
	RoutingKey() string
	OccurredAt() time.Time
	Metadata() EventMetadata
}

// EventMetadata carries correlation data for forwarded events.
type EventMetadata struct {
	CorrelationID string
	Source        string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	eventID     uuid.UUID
	subject     string
	subjectType string
	routingKey  string
	occurredAt  time.Time
	metadata    EventMetadata
}

// NewBaseEvent creates a new base event. The subject may be empty for events
// that are not about a specific record, such as an aborted purchase flow.
func NewBaseEvent(subject, subjectType, routingKey string) BaseEvent {
	return BaseEvent{
		eventID:     uuid.New(),
		subject:     subject,
		subjectType: subjectType,
		routingKey:  routingKey,
		occurredAt:  time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID      { return e.eventID }
func (e BaseEvent) Subject() string         { return e.subject }
func (e BaseEvent) SubjectType() string     { return e.subjectType }
func (e BaseEvent) RoutingKey() string      { return e.routingKey }
func (e BaseEvent) OccurredAt() time.Time   { return e.occurredAt }
func (e BaseEvent) Metadata() EventMetadata { return e.metadata }

// SetMetadata sets the event metadata.
func (e *BaseEvent) SetMetadata(metadata EventMetadata) {
	e.metadata = metadata
}
