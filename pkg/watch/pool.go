// Package watch analyzes campaign exports as they land in a directory.
//
// A Watcher turns filesystem events into jobs and a Pool analyzes them in the
// background, so a burst of new exports never blocks the event loop.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/logger"
	"github.com/papercomputeco/adpulse/pkg/report"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Analyzer runs the metrics and insight branches over decoded records.
// *report.Analyzer is the production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, records []*campaign.Record, opts ...report.Option) (*report.Result, error)
}

// Job is a single export to analyze.
type Job struct {
	Path string
}

// Outcome is what a worker produced for a Job.
type Outcome struct {
	Path     string
	Result   *report.Result
	Err      error
	Duration time.Duration
}

// Config is the configuration options for the worker pool.
type Config struct {
	Analyzer Analyzer

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// OnOutcome is called from the worker goroutine after every job.
	// It must be safe for concurrent use.
	OnOutcome func(Outcome)

	Logger *slog.Logger
}

// Pool analyzes exports asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("job queued", "path", job.Path)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped", "path", job.Path)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// No Enqueue may run concurrently with or after Close.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) processJob(job Job) {
	start := time.Now()
	res, err := p.analyze(context.Background(), job)
	out := Outcome{
		Path:     job.Path,
		Result:   res,
		Err:      err,
		Duration: time.Since(start),
	}

	if err != nil {
		p.logger.Error("analysis failed",
			"path", job.Path,
			"error", err,
		)
	} else {
		p.logger.Info("report generated",
			"path", job.Path,
			"report_id", res.ID,
			"rows", len(res.Data),
			"total_conversions", res.KPIs.TotalConversions,
			"total_amount_spent", res.KPIs.TotalAmountSpent.String(),
			"average_cost_per_conversion", res.KPIs.AverageCostPerConversion.String(),
			"insights", res.Insights.Status(),
			"duration", out.Duration,
		)
	}

	if p.config.OnOutcome != nil {
		p.config.OnOutcome(out)
	}
}

func (p *Pool) analyze(ctx context.Context, job Job) (*report.Result, error) {
	f, err := os.Open(job.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := campaign.Decode(f, campaign.FormatFor(job.Path))
	if err != nil {
		return nil, err
	}

	return p.config.Analyzer.Analyze(ctx, records, report.WithSource("watch", filepath.Base(job.Path)))
}
