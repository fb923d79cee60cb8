// Package events defines the conversion lifecycle events published on the event bus.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every conversion lifecycle event.
const Topic = "flowbridge.conversions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ConversionCompletedEvent EventType = "conversion.completed"
	ConversionFailedEvent    EventType = "conversion.failed"
	ConversionDeletedEvent   EventType = "conversion.deleted"
	ConversionsPurgedEvent   EventType = "conversions.purged"
)

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	ConversionID string         `json:"conversion_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a fresh id and the current time.
func NewBaseEvent(eventType EventType, conversionID string) BaseEvent {
	return BaseEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		ConversionID: conversionID,
	}
}

type ConversionCompleted struct {
	BaseEvent

	WorkflowID    string `json:"workflow_id"`
	WorkflowName  string `json:"workflow_name"`
	SourceName    string `json:"source_name,omitempty"`
	NodeCount     int    `json:"node_count"`
	UnmappedCount int    `json:"unmapped_count"`
	WarningCount  int    `json:"warning_count"`
	Archived      bool   `json:"archived"`
}

func (e ConversionCompleted) GetType() EventType {
	return ConversionCompletedEvent
}

type ConversionFailed struct {
	BaseEvent

	SourceName string `json:"source_name,omitempty"`
	Error      string `json:"error"`
	InputError bool   `json:"input_error"`
}

func (e ConversionFailed) GetType() EventType {
	return ConversionFailedEvent
}

type ConversionDeleted struct {
	BaseEvent
}

func (e ConversionDeleted) GetType() EventType {
	return ConversionDeletedEvent
}

type ConversionsPurged struct {
	BaseEvent

	Count  int       `json:"count"`
	Cutoff time.Time `json:"cutoff"`
}

func (e ConversionsPurged) GetType() EventType {
	return ConversionsPurgedEvent
}
