package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/adpulse/pkg/campaign"
	"github.com/papercomputeco/adpulse/pkg/logger"
	"github.com/papercomputeco/adpulse/pkg/utils"
)

const (
	// DefaultTimeout bounds a whole insight stream, from request start to
	// the last byte.
	DefaultTimeout = 60 * time.Second

	generatePath = "/api/generate"

	// maxErrorBody caps how much of a non-2xx body is kept for the error.
	maxErrorBody = 1024
)

// Config configures a Requester.
type Config struct {
	// Target is the base URL of the generation service, e.g. http://localhost:11434.
	Target string

	// Model is the model name sent with every request.
	Model string

	// Timeout is the ceiling for a whole stream. Defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient is used for requests. Defaults to a client without its own
	// timeout; the ceiling is applied through the request context.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Requester opens streaming generate requests.
type Requester struct {
	target  string
	model   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewRequester(cfg Config) *Requester {
	r := &Requester{
		target:  strings.TrimRight(cfg.Target, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.client == nil {
		r.client = &http.Client{}
	}
	if r.logger == nil {
		r.logger = logger.Nop()
	}
	return r
}

// Open builds the prompt for records and opens the response stream.
func (r *Requester) Open(ctx context.Context, records []*campaign.Record) (*Stream, error) {
	prompt, err := BuildPrompt(records)
	if err != nil {
		return nil, err
	}
	return r.OpenPrompt(ctx, prompt)
}

// OpenPrompt posts prompt and returns the streaming body once the service
// answers with a 2xx status. The timeout keeps running while the stream is
// read; Close the stream to release it.
func (r *Requester) OpenPrompt(ctx context.Context, prompt string) (*Stream, error) {
	body, err := json.Marshal(GenerateRequest{Model: r.model, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encoding generate request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.target+generatePath, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, &StreamError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.Debug("opening insight stream",
		"target", r.target,
		"model", r.model,
		"prompt_bytes", len(prompt),
	)

	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		return nil, classify(ctx, r.timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, &StreamError{
			StatusCode: resp.StatusCode,
			Body:       utils.Truncate(strings.TrimSpace(string(snippet)), 200),
		}
	}

	return &Stream{
		body:    resp.Body,
		ctx:     ctx,
		cancel:  cancel,
		timeout: r.timeout,
	}, nil
}

// Generate opens a stream for records and decodes it to completion.
func (r *Requester) Generate(ctx context.Context, records []*campaign.Record, opts ...DecoderOption) (string, error) {
	start := time.Now()

	stream, err := r.Open(ctx, records)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	d := NewDecoder(opts...)
	text, err := d.Drain(stream)
	if err != nil {
		return "", err
	}

	attrs := []any{"duration", time.Since(start), "fragments", d.Fragments()}
	if last := d.Last(); last != nil {
		attrs = append(attrs, "done", last.Done, "eval_count", last.EvalCount)
	}
	r.logger.Debug("insight stream complete", attrs...)

	return text, nil
}

// Stream is an open response body. Read returns io.EOF at the end of the
// stream; any other error is a *StreamError or *TimeoutError.
type Stream struct {
	body    io.ReadCloser
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.body.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, classify(s.ctx, s.timeout, err)
	}
	return n, err
}

// Close releases the body and the timeout.
func (s *Stream) Close() error {
	err := s.body.Close()
	s.cancel()
	return err
}

// classify maps a transport error to TimeoutError when the ceiling elapsed
// and StreamError otherwise.
func classify(ctx context.Context, timeout time.Duration, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Timeout: timeout, Err: err}
	}
	return &StreamError{Err: err}
}
