package service

import (
	"context"

	"registrar/internal/audit"
	"registrar/pkg/requestcontext"
)

// emit hands an event to the publisher. Delivery is best effort; a failure is
// logged and never fails the operation that already committed.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"type", string(event.Type),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}
