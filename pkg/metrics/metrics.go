// Package metrics reduces campaign records into summary KPIs.
package metrics

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/papercomputeco/adpulse/pkg/campaign"
)

// Report holds the KPIs for one export. All fields derive from the same
// record snapshot.
type Report struct {
	TotalConversions         int64
	TotalAmountSpent         decimal.Decimal
	AverageCostPerConversion Ratio
}

// MarshalJSON emits numbers rather than the quoted strings decimal
// produces by default.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalConversions         int64       `json:"totalConversions"`
		TotalAmountSpent         json.Number `json:"totalAmountSpent"`
		AverageCostPerConversion Ratio       `json:"averageCostPerConversion"`
	}{
		TotalConversions:         r.TotalConversions,
		TotalAmountSpent:         json.Number(r.TotalAmountSpent.String()),
		AverageCostPerConversion: r.AverageCostPerConversion,
	})
}

// Aggregator accumulates records one at a time. The zero value is ready to use.
type Aggregator struct {
	conversions int64
	spent       decimal.Decimal
	records     int
}

// Add folds rec into the running totals. On error the totals are unchanged.
func (a *Aggregator) Add(rec *campaign.Record) error {
	conversions, err := parseConversions(rec)
	if err != nil {
		return err
	}
	spent, err := parseAmountSpent(rec)
	if err != nil {
		return err
	}

	sum := a.conversions + conversions
	if (conversions > 0 && sum < a.conversions) || (conversions < 0 && sum > a.conversions) {
		raw, _ := rec.Get(campaign.ColumnConversions)
		return &ValidationError{Row: rec.Row, Line: rec.Line, Field: campaign.ColumnConversions, Value: raw, Err: ErrOverflow}
	}

	a.conversions = sum
	a.spent = a.spent.Add(spent)
	a.records++
	return nil
}

// Records returns how many records have been added.
func (a *Aggregator) Records() int {
	return a.records
}

// Report returns the KPIs for everything added so far.
func (a *Aggregator) Report() *Report {
	report := &Report{
		TotalConversions:         a.conversions,
		TotalAmountSpent:         a.spent,
		AverageCostPerConversion: NaN(),
	}
	if a.conversions != 0 {
		report.AverageCostPerConversion = RatioOf(a.spent.Div(decimal.NewFromInt(a.conversions)))
	}
	return report
}

// Aggregate computes the report for records, failing on the first value it
// cannot parse.
func Aggregate(records []*campaign.Record) (*Report, error) {
	var agg Aggregator
	for _, rec := range records {
		if err := agg.Add(rec); err != nil {
			return nil, err
		}
	}
	return agg.Report(), nil
}

func parseConversions(rec *campaign.Record) (int64, error) {
	raw, ok := rec.Get(campaign.ColumnConversions)
	if !ok {
		return 0, &ValidationError{Row: rec.Row, Line: rec.Line, Field: campaign.ColumnConversions, Err: ErrMissingField}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, &ValidationError{Row: rec.Row, Line: rec.Line, Field: campaign.ColumnConversions, Value: raw, Err: ErrNotInteger}
	}
	return n, nil
}

func parseAmountSpent(rec *campaign.Record) (decimal.Decimal, error) {
	raw, ok := rec.Get(campaign.ColumnAmountSpent)
	if !ok {
		return decimal.Zero, &ValidationError{Row: rec.Row, Line: rec.Line, Field: campaign.ColumnAmountSpent, Err: ErrMissingField}
	}

	digits, found := strings.CutPrefix(strings.TrimSpace(raw), "$")
	if !found {
		return decimal.Zero, &ValidationError{Row: rec.Row, Line: rec.Line, Field: campaign.ColumnAmountSpent, Value: raw, Err: ErrMissingCurrency}
	}

	// decimal also accepts exponents, which an amount column never holds.
	d, err := decimal.NewFromString(digits)
	if err != nil || strings.ContainsAny(digits, "eE") {
		return decimal.Zero, &ValidationError{Row: rec.Row, Line: rec.Line, Field: campaign.ColumnAmountSpent, Value: raw, Err: ErrNotDecimal}
	}
	return d, nil
}
