package report

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/eventstream"
	"github.com/papercomputeco/adpulse/pkg/metrics"
)

// FailedInsights replaces the insight text whenever generation fails.
const FailedInsights = "Failed to generate insights."

// InsightResult is the outcome of the insight branch. It is always present
// on a Result: a failure degrades it rather than failing the analysis.
type InsightResult struct {
	// Text is the generated summary. Empty when Err is set or Skipped.
	Text string

	// Err is the StreamError, TimeoutError or ParseError that degraded the
	// branch, if any.
	Err error

	// Skipped is set when insight generation was not requested.
	Skipped bool
}

// Degraded reports whether generation was attempted and failed.
func (r InsightResult) Degraded() bool {
	return r.Err != nil
}

// Status is the short form used on report events.
func (r InsightResult) Status() string {
	switch {
	case r.Skipped:
		return eventstream.InsightStatusSkipped
	case r.Degraded():
		return eventstream.InsightStatusDegraded
	default:
		return eventstream.InsightStatusOK
	}
}

// String returns the text shown to users: the summary, or FailedInsights
// when degraded.
func (r InsightResult) String() string {
	if r.Degraded() {
		return FailedInsights
	}
	return r.Text
}

// MarshalJSON encodes the user-facing string, or null when skipped.
func (r InsightResult) MarshalJSON() ([]byte, error) {
	if r.Skipped {
		return []byte("null"), nil
	}
	return json.Marshal(r.String())
}

// Result is the merged outcome of one analysis. Its JSON form is the upload
// response body.
type Result struct {
	ID       uuid.UUID          `json:"-"`
	Data     []*campaign.Record `json:"data"`
	KPIs     *metrics.Report    `json:"kpis"`
	Insights InsightResult      `json:"insights"`
}
