package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events to the structured log. It is the sink used when no
// broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, events []Event) error {
	for _, e := range events {
		s.logger.InfoContext(ctx, "audit event",
			"event_id", e.ID,
			"type", string(e.Type),
			"student_id", e.StudentID,
			"course_id", e.CourseID,
			"reason", e.Reason,
			"request_id", e.RequestID,
		)
	}
	return nil
}
