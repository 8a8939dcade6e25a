// Package report runs the metrics and insight branches over one record
// snapshot and merges their results.
package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/eventstream"
	"github.com/papercomputeco/adpulse/pkg/eventstream/nop"
	"github.com/papercomputeco/adpulse/pkg/insight"
	"github.com/papercomputeco/adpulse/pkg/logger"
	"github.com/papercomputeco/adpulse/pkg/metrics"
)

// Generator produces insight text for a record snapshot.
// *insight.Requester is the production implementation.
type Generator interface {
	Generate(ctx context.Context, records []*campaign.Record, opts ...insight.DecoderOption) (string, error)
}

// Config configures an Analyzer.
type Config struct {
	Generator Generator

	// Model is recorded on report events.
	Model string

	// Publisher receives a ReportGeneratedEvent after every analysis.
	// Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// EventQueueSize bounds the events waiting for the publisher (defaults
	// to 64). Events beyond it are dropped.
	EventQueueSize uint

	Logger *slog.Logger
}

var defaultEventQueueSize uint = 64

// Analyzer merges metrics and insights for uploaded exports.
type Analyzer struct {
	generator Generator
	model     string
	publisher eventstream.Publisher
	logger    *slog.Logger

	events chan *eventstream.ReportGeneratedEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewAnalyzer creates an Analyzer and starts its event publishing goroutine.
// Call Close to flush queued events.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.EventQueueSize == 0 {
		cfg.EventQueueSize = defaultEventQueueSize
	}

	a := &Analyzer{
		generator: cfg.Generator,
		model:     cfg.Model,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		events:    make(chan *eventstream.ReportGeneratedEvent, cfg.EventQueueSize),
	}
	if a.publisher == nil {
		a.publisher = nop.NewPublisher()
	}
	if a.logger == nil {
		a.logger = logger.Nop()
	}

	a.wg.Add(1)
	go a.publishLoop()

	return a
}

// Close stops accepting events and waits for queued ones to be published.
// Analyze keeps working after Close but its events are dropped.
func (a *Analyzer) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()

	a.wg.Wait()
}

func (a *Analyzer) publishLoop() {
	defer a.wg.Done()

	for event := range a.events {
		if err := a.publisher.PublishReport(context.Background(), event); err != nil {
			a.logger.Error("publishing report event", "report_id", event.Report.ReportID, "error", err)
		}
	}
}

type analyzeOptions struct {
	entry        string
	filename     string
	skipInsights bool
	decoderOpts  []insight.DecoderOption
}

// Option configures a single Analyze call.
type Option func(*analyzeOptions)

// WithSource labels the event with the entry surface and file name.
func WithSource(entry, filename string) Option {
	return func(o *analyzeOptions) {
		o.entry = entry
		o.filename = filename
	}
}

// WithoutInsights skips the generation service entirely.
func WithoutInsights() Option {
	return func(o *analyzeOptions) {
		o.skipInsights = true
	}
}

// WithFragmentHandler observes insight fragments as they stream in.
func WithFragmentHandler(fn func(insight.Fragment)) Option {
	return func(o *analyzeOptions) {
		o.decoderOpts = append(o.decoderOpts, insight.WithFragmentHandler(fn))
	}
}

// Analyze computes metrics and insights concurrently. A metrics failure
// (a *metrics.ValidationError) fails the call and cancels the insight
// request; insight failures only degrade Result.Insights.
func (a *Analyzer) Analyze(ctx context.Context, records []*campaign.Record, opts ...Option) (*Result, error) {
	o := analyzeOptions{entry: "upload"}
	for _, opt := range opts {
		opt(&o)
	}
	if records == nil {
		records = []*campaign.Record{}
	}

	start := time.Now()
	id := uuid.New()
	log := a.logger.With("report_id", id.String())

	var (
		kpis     *metrics.Report
		insights InsightResult
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := metrics.Aggregate(records)
		if err != nil {
			return err
		}
		kpis = r
		return nil
	})

	g.Go(func() error {
		if o.skipInsights || a.generator == nil {
			insights = InsightResult{Skipped: true}
			return nil
		}

		text, err := a.generator.Generate(gctx, records, o.decoderOpts...)
		if err != nil {
			if gctx.Err() != nil && ctx.Err() == nil {
				// The metrics branch failed and cancelled this one.
				log.Debug("insight generation cancelled", "error", err)
			} else {
				log.Warn("insight generation degraded", "error", err)
			}
			insights = InsightResult{Err: err}
			return nil
		}
		insights = InsightResult{Text: text}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Info("analysis rejected", "rows", len(records), "error", err)
		return nil, err
	}

	res := &Result{
		ID:       id,
		Data:     records,
		KPIs:     kpis,
		Insights: insights,
	}

	log.Info("analysis complete",
		"rows", len(records),
		"total_conversions", kpis.TotalConversions,
		"insights", insights.Status(),
		"duration", time.Since(start),
	)

	a.publish(res, o, start)
	return res, nil
}

// publish queues the report event for the publishing goroutine so a slow
// broker never delays the caller's result.
func (a *Analyzer) publish(res *Result, o analyzeOptions, start time.Time) {
	now := time.Now().UTC()

	var columns []string
	if len(res.Data) > 0 {
		columns = res.Data[0].Columns()
	}

	event := &eventstream.ReportGeneratedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeReportGenerated,
		EventID:       uuid.NewString(),
		EmittedAt:     now,
		Source: eventstream.EventSource{
			Entry:    o.entry,
			Filename: o.filename,
		},
		Report: eventstream.ReportMeta{
			ReportID:    res.ID.String(),
			Rows:        len(res.Data),
			Columns:     columns,
			StartedAt:   start.UTC(),
			CompletedAt: now,
			DurationMs:  now.Sub(start).Milliseconds(),
		},
		KPIs: res.KPIs,
		Insight: eventstream.InsightMeta{
			Model:  a.model,
			Status: res.Insights.Status(),
			Chars:  len(res.Insights.Text),
		},
	}
	if res.Insights.Err != nil {
		event.Insight.Error = res.Insights.Err.Error()
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn("report event dropped, analyzer closed", "report_id", event.Report.ReportID)
		return
	}

	select {
	case a.events <- event:
	default:
		a.logger.Error("report event dropped, queue full", "report_id", event.Report.ReportID)
	}
}
