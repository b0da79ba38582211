package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
	shutdownFlushTimeout = 5 * time.Second
)

// Worker drains a Publisher's buffer into a Sink. A failed batch is put back
// and retried on the next tick.
type Worker struct {
	publisher *Publisher
	sink      Sink
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

type WorkerOption func(*Worker)

func WithFlushInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(publisher *Publisher, sink Sink, opts ...WorkerOption) *Worker {
	w := &Worker{
		publisher: publisher,
		sink:      sink,
		logger:    slog.New(slog.DiscardHandler),
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run flushes until ctx is cancelled, then makes one last bounded flush.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			w.Flush(flushCtx)
			cancel()
			return nil
		case <-w.publisher.notify:
			w.Flush(ctx)
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush publishes buffered events batch by batch and stops at the first failure.
func (w *Worker) Flush(ctx context.Context) {
	for {
		batch := w.publisher.buffer.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return
		}
		if err := w.sink.Publish(ctx, batch); err != nil {
			w.publisher.buffer.Requeue(batch)
			w.logger.WarnContext(ctx, "audit publish failed",
				"error", err,
				"pending", w.publisher.buffer.Len(),
				"dropped", w.publisher.buffer.Dropped(),
			)
			return
		}
	}
}
