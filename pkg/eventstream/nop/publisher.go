package nop

import (
	"context"

	"github.com/papercomputeco/adpulse/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishReport validates input and otherwise does nothing.
func (p *Publisher) PublishReport(_ context.Context, event *eventstream.ReportGeneratedEvent) error {
	if event == nil {
		return eventstream.ErrNilReportEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
