package service

import (
	"context"
	"errors"
	"sync"

	"registrar/internal/registration/models"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// inMemoryStoreTx serializes units of work with a process-local lock. It backs
// the in-memory store, which has no transactions of its own.
type inMemoryStoreTx struct {
	mu sync.Mutex
}

func newInMemoryStoreTx() *inMemoryStoreTx {
	return &inMemoryStoreTx{}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

// runInTx retries fn once when the store reports a write conflict.
func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.tx.RunInTx(ctx, fn)
	if errors.Is(err, sentinel.ErrConflict) {
		s.logger.WarnContext(ctx, "retrying transaction after write conflict",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementTxRetries()
		}
		err = s.tx.RunInTx(ctx, fn)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(models.ErrConcurrencyConflict, dErrors.CodeConflict, models.ErrConcurrencyConflict.Error())
	}
	return err
}
