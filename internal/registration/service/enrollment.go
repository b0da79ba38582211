package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"registrar/internal/audit"
	"registrar/internal/registration/models"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/requestcontext"
)

// Enroll links a student to a course. Lookups, rule checks and the write share
// one transaction, so two callers can never both see the last free seat.
//
// The first failing check decides the error: missing student, missing course,
// course capacity, student capacity, registration window, duplicate.
func (s *Service) Enroll(ctx context.Context, studentID models.StudentID, courseID models.CourseID) (*models.Enrollment, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "registration.Enroll", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("course.id", int64(courseID)),
	))
	defer span.End()

	asOf := requestcontext.Now(ctx)
	enrollment := models.Enrollment{StudentID: studentID, CourseID: courseID, EnrolledAt: asOf}

	err := s.runInTx(ctx, func(txCtx context.Context) error {
		student, err := s.store.FindStudent(txCtx, studentID)
		if err != nil {
			return wrapStoreErr(err, models.ErrStudentNotFound, "failed to load student")
		}
		course, err := s.store.FindCourse(txCtx, courseID)
		if err != nil {
			return wrapStoreErr(err, models.ErrCourseNotFound, "failed to load course")
		}
		if err := s.policy.Check(student, course, asOf); err != nil {
			return policyErr(err)
		}
		if err := s.store.SaveEnrollment(txCtx, enrollment); err != nil {
			return wrapStoreErr(err, nil, "failed to save enrollment")
		}
		return nil
	})

	if err != nil {
		reason := s.reasonOf(err)
		if s.metrics != nil {
			s.metrics.RecordEnrollment(reason, start)
		}
		span.SetStatus(codes.Error, reason)
		if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
			span.RecordError(err)
			s.logger.ErrorContext(ctx, "enrollment failed",
				"student_id", int64(studentID),
				"course_id", int64(courseID),
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return nil, err
		}
		s.logger.InfoContext(ctx, "enrollment rejected",
			"student_id", int64(studentID),
			"course_id", int64(courseID),
			"rule", reason,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.emit(ctx, audit.Event{
			Type:      audit.EventEnrollmentRejected,
			StudentID: int64(studentID),
			CourseID:  int64(courseID),
			Reason:    reason,
		})
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordEnrollment("success", start)
	}
	s.logger.InfoContext(ctx, "student enrolled",
		"student_id", int64(studentID),
		"course_id", int64(courseID),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Type: audit.EventStudentEnrolled, StudentID: int64(studentID), CourseID: int64(courseID)})
	return &enrollment, nil
}

// Unenroll removes an existing association. No enrollment rules apply.
func (s *Service) Unenroll(ctx context.Context, studentID models.StudentID, courseID models.CourseID) error {
	ctx, span := s.tracer.Start(ctx, "registration.Unenroll", trace.WithAttributes(
		attribute.Int64("student.id", int64(studentID)),
		attribute.Int64("course.id", int64(courseID)),
	))
	defer span.End()

	err := s.runInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.FindStudent(txCtx, studentID); err != nil {
			return wrapStoreErr(err, models.ErrStudentNotFound, "failed to load student")
		}
		if _, err := s.store.FindCourse(txCtx, courseID); err != nil {
			return wrapStoreErr(err, models.ErrCourseNotFound, "failed to load course")
		}
		if err := s.store.DeleteEnrollment(txCtx, studentID, courseID); err != nil {
			return wrapStoreErr(err, models.ErrEnrollmentNotFound, "failed to delete enrollment")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, s.reasonOf(err))
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementUnenrollments()
	}
	s.logger.InfoContext(ctx, "student unenrolled",
		"student_id", int64(studentID),
		"course_id", int64(courseID),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Type: audit.EventStudentUnenrolled, StudentID: int64(studentID), CourseID: int64(courseID)})
	return nil
}
