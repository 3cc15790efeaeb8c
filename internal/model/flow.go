package model

import (
	"time"
)

// EventStatus is the outcome of a single protocol operation
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusError   EventStatus = "error"
	EventStatusWarning EventStatus = "warning"
	EventStatusAnomaly EventStatus = "anomaly"
)

// FlowEvent represents one observed OCPP operation, already decoded by the producer
type FlowEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Action    string      `json:"action"`
	Status    EventStatus `json:"status"`
	Duration  *int64      `json:"duration,omitempty"` // milliseconds
	Size      *int64      `json:"size,omitempty"`     // bytes
	Message   string      `json:"message,omitempty"`
	// RawData is producer-defined and never interpreted here
	RawData interface{} `json:"rawData,omitempty"`

	IsAnomaly     bool        `json:"isAnomaly,omitempty"`
	AnomalyReason string      `json:"anomalyReason,omitempty"`
	AnomalyEvents []FlowEvent `json:"anomalyEvents,omitempty"`
}

// IsFlaggedAnomaly reports whether the detector already marked this event
func (e FlowEvent) IsFlaggedAnomaly() bool {
	return e.IsAnomaly || e.Status == EventStatusAnomaly
}

// DurationMillis returns the duration or 0 when the producer did not report one
func (e FlowEvent) DurationMillis() int64 {
	if e.Duration == nil {
		return 0
	}
	return *e.Duration
}

// Snapshot returns the minimal copy kept inside an incident pattern
func (e FlowEvent) Snapshot() EventSnapshot {
	s := EventSnapshot{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Action:    e.Action,
		Status:    string(e.Status),
	}
	if e.Duration != nil {
		d := *e.Duration
		s.Duration = &d
	}
	return s
}

// GroupedEvent is a display unit over events of the same action. Never persisted.
type GroupedEvent struct {
	ID             string      `json:"id"`
	Action         string      `json:"action"`
	Status         EventStatus `json:"status"`
	Events         []FlowEvent `json:"events"`
	FirstTimestamp time.Time   `json:"firstTimestamp"`
	LastTimestamp  time.Time   `json:"lastTimestamp"`
	TotalCount     int         `json:"totalCount"`
	IsAnomaly      bool        `json:"isAnomaly,omitempty"`
	AnomalyReason  string      `json:"anomalyReason,omitempty"`
}
