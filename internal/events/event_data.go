// Package events defines the messages pushed to live subscribers: stage progress for one
// analysis run, the terminal result of that run, and out-of-band status broadcasts.
package events

import (
	"time"
)

// EventType identifies the kind of message carried on a subscriber channel
type EventType string

const (
	// ProgressUpdate is a stage progress notification for one analysis run
	ProgressUpdate EventType = "progress"
	// StatusUpdate is an out-of-band server status push sent to every subscriber
	StatusUpdate EventType = "status"
)

// Task types reported in progress events and terminal messages
const (
	TaskAnalysis  = "Analysis"
	TaskSummarize = "Summarize"
	TaskError     = "Error"
)

// Terminal message actions
const (
	ActionAnalysisComplete = "analysis_complete"
	ActionSummaryComplete  = "summary_complete"
	ActionError            = "error"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// ProgressEvent reports how far one analysis run has advanced. Progress is in [0, 1].
type ProgressEvent struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
	Progress float64   `json:"progress"`
	TaskType string    `json:"taskType"`
}

// NewProgressEvent builds a progress event, clamping progress into [0, 1]
func NewProgressEvent(message string, progress float64, taskType string) ProgressEvent {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	return ProgressEvent{
		Type:     ProgressUpdate,
		Message:  message,
		Progress: progress,
		TaskType: taskType,
	}
}

// EventType returns the event type for ProgressEvent
func (e ProgressEvent) EventType() EventType {
	return ProgressUpdate
}

// ResultMessage is the single terminal message of a channel request
type ResultMessage struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Result any    `json:"result"`
}

// NewErrorMessage wraps an error text into the terminal error message
func NewErrorMessage(message string) ResultMessage {
	return ResultMessage{
		Action: ActionError,
		Type:   TaskError,
		Result: map[string]string{"error": message},
	}
}

// NewUnknownActionMessage is sent when a channel request names an unsupported action
func NewUnknownActionMessage() ResultMessage {
	return ResultMessage{
		Action: ActionError,
		Type:   TaskError,
		Result: map[string]string{"message": "Unknown action"},
	}
}

// StatusData contains data for StatusUpdate broadcasts
type StatusData struct {
	Type          EventType `json:"type"`
	Status        string    `json:"status"`
	Subscribers   int       `json:"subscribers"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Timestamp     string    `json:"timestamp"`
}

// NewStatusData builds a status broadcast payload stamped with the given time
func NewStatusData(status string, subscribers int, uptime time.Duration, now time.Time) StatusData {
	return StatusData{
		Type:          StatusUpdate,
		Status:        status,
		Subscribers:   subscribers,
		UptimeSeconds: int64(uptime / time.Second),
		Timestamp:     now.UTC().Format(time.RFC3339),
	}
}

// EventType returns the event type for StatusData
func (d StatusData) EventType() EventType {
	return StatusUpdate
}
