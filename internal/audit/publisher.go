package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"registrar/pkg/requestcontext"
)

// Sink delivers a batch of events to their destination.
type Sink interface {
	Publish(ctx context.Context, events []Event) error
}

// Publisher accepts events without blocking the caller. A Worker drains the
// buffer into the sink in the background.
type Publisher struct {
	buffer *RingBuffer
	notify chan struct{}
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

func WithBufferSize(n int) PublisherOption {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		notify: make(chan struct{}, 1),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = NewRingBuffer(0)
	}
	return p
}

// Emit stamps the event with an id, time and request id, then buffers it.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	p.buffer.Enqueue(event)

	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending is the number of events not yet handed to the sink.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}
