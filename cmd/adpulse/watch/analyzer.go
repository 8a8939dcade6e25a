package watchcmder

import (
	"context"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/report"
	"github.com/papercomputeco/adpulse/pkg/watch"
)

// withoutInsights appends report.WithoutInsights to every analysis.
type withoutInsights struct {
	watch.Analyzer
}

func (a withoutInsights) Analyze(ctx context.Context, records []*campaign.Record, opts ...report.Option) (*report.Result, error) {
	return a.Analyzer.Analyze(ctx, records, append(opts, report.WithoutInsights())...)
}
