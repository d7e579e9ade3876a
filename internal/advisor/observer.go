package advisor

import (
	"log/slog"
	"time"
)

// EventType represents the lifecycle phases of one analysis
type EventType string

const (
	EventAnalyzeStart EventType = "analyze_start"
	EventPlanStart    EventType = "plan_start"
	EventPlanEnd      EventType = "plan_end"
	EventReportStart  EventType = "report_start"
	EventReportEnd    EventType = "report_end"
	EventAnalyzeEnd   EventType = "analyze_end"
)

// Event represents a lifecycle event in one analysis
type Event struct {
	Type       EventType   // Type of event
	AnalysisID string      // Analysis ID for tracing
	Timestamp  time.Time   // When the event occurred
	Data       interface{} // Phase-specific data (e.g., table count, finding count)
}

// Observer interface for event subscribers
// Observers receive events at major analysis phases
type Observer interface {
	OnEvent(event Event)
}

// LoggingObserver is a simple observer that logs all events using structured logging
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements the Observer interface
// It logs each event with structured fields for easy filtering and analysis
func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Info("analysis_lifecycle",
		"event", event.Type,
		"analysis_id", event.AnalysisID,
		"timestamp", event.Timestamp,
		"data", event.Data,
	)
}
