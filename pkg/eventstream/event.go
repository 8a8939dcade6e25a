// Package eventstream defines transport-neutral events emitted after a
// campaign export has been analyzed.
package eventstream

import (
	"time"

	"github.com/papercomputeco/adpulse/pkg/metrics"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeReportGenerated is emitted after an export has been analyzed.
	EventTypeReportGenerated = "adpulse.report.generated"
)

// Insight statuses carried on report events.
const (
	InsightStatusOK       = "ok"
	InsightStatusDegraded = "degraded"
	InsightStatusSkipped  = "skipped"
)

// ReportGeneratedEvent describes one analysis. It carries the KPIs and
// counts only; uploaded rows are never published.
type ReportGeneratedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	Report        ReportMeta      `json:"report"`
	KPIs          *metrics.Report `json:"kpis"`
	Insight       InsightMeta     `json:"insight"`
}

// EventSource identifies where the export came from.
type EventSource struct {
	// Entry is the surface that received the export: "upload", "mcp",
	// "analyze" or "watch".
	Entry    string `json:"entry"`
	Filename string `json:"filename,omitempty"`
}

// ReportMeta captures analysis lifecycle metadata.
type ReportMeta struct {
	ReportID    string    `json:"report_id"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// InsightMeta records how the insight branch ended.
type InsightMeta struct {
	Model  string `json:"model,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Chars  int    `json:"chars"`
}
