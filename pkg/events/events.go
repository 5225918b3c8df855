// Package events defines the messages carried on the qmsflow event bus.
package events

import (
	"time"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the bus topic every qmsflow event is published to.
const Topic = "qmsflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// DomainEventType carries a module event from the record-owning application
	// into the rules engine.
	DomainEventType EventType = "domain.event"

	// NotificationEventType carries a user-facing notice toward delivery channels.
	NotificationEventType EventType = "notification"

	// Workflow execution outcomes.
	WorkflowExecutionCompletedEventType EventType = "workflow.execution.completed"
	WorkflowExecutionFailedEventType    EventType = "workflow.execution.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent creates a BaseEvent with a fresh id and the current time.
func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// DomainEvent is a (module, event, data) triple raised by a QMS module.
type DomainEvent struct {
	BaseEvent

	Module string         `json:"module"`
	Event  string         `json:"event"`
	Data   map[string]any `json:"data,omitempty"`
}

func (e DomainEvent) GetType() EventType {
	return DomainEventType
}

// NewDomainEvent builds a DomainEvent ready to publish.
func NewDomainEvent(module, event string, data map[string]any) DomainEvent {
	return DomainEvent{
		BaseEvent: NewBaseEvent(DomainEventType),
		Module:    module,
		Event:     event,
		Data:      data,
	}
}

type NotificationEvent struct {
	BaseEvent

	Notification models.Notification `json:"notification"`
}

func (e NotificationEvent) GetType() EventType {
	return NotificationEventType
}

type WorkflowExecutionCompleted struct {
	BaseEvent

	Execution models.WorkflowExecution `json:"execution"`
}

func (e WorkflowExecutionCompleted) GetType() EventType {
	return WorkflowExecutionCompletedEventType
}

type WorkflowExecutionFailed struct {
	BaseEvent

	Execution models.WorkflowExecution `json:"execution"`
}

func (e WorkflowExecutionFailed) GetType() EventType {
	return WorkflowExecutionFailedEventType
}
