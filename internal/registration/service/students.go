package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"registrar/internal/audit"
	"registrar/internal/registration/models"
	"registrar/pkg/requestcontext"
)

func (s *Service) CreateStudent(ctx context.Context, req *models.StudentRequest) (*models.Student, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	student, err := models.NewStudent(req.Name, req.Surname)
	if err != nil {
		return nil, toValidation(err)
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateStudent(txCtx, student); err != nil {
			return wrapStoreErr(err, nil, "failed to create student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementStudentsCreated()
	}
	s.emit(ctx, audit.Event{Type: audit.EventStudentCreated, StudentID: int64(student.ID)})
	return student, nil
}

func (s *Service) GetStudent(ctx context.Context, id models.StudentID) (*models.Student, error) {
	student, err := s.store.FindStudent(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, models.ErrStudentNotFound, "failed to load student")
	}
	return student, nil
}

// UpdateStudent renames a student. Enrollments are left as they are.
func (s *Service) UpdateStudent(ctx context.Context, id models.StudentID, req *models.StudentRequest) (*models.Student, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Student
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		student, err := s.store.FindStudent(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, models.ErrStudentNotFound, "failed to load student")
		}
		if err := student.Rename(req.Name, req.Surname); err != nil {
			return toValidation(err)
		}
		if err := s.store.UpdateStudent(txCtx, student); err != nil {
			return wrapStoreErr(err, models.ErrStudentNotFound, "failed to update student")
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Type: audit.EventStudentUpdated, StudentID: int64(id)})
	return updated, nil
}

// DeleteStudent detaches the student from every course, then removes it.
func (s *Service) DeleteStudent(ctx context.Context, id models.StudentID) error {
	ctx, span := s.tracer.Start(ctx, "registration.DeleteStudent",
		trace.WithAttributes(attribute.Int64("student.id", int64(id))))
	defer span.End()

	var detached int
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		student, err := s.store.FindStudent(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, models.ErrStudentNotFound, "failed to load student")
		}
		if err := s.store.DeleteStudent(txCtx, id); err != nil {
			return wrapStoreErr(err, models.ErrStudentNotFound, "failed to delete student")
		}
		detached = student.CourseCount()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if s.metrics != nil && detached > 0 {
		s.metrics.IncrementCascadeDelete("student")
	}
	s.logger.InfoContext(ctx, "student deleted",
		"student_id", int64(id),
		"detached_courses", detached,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Type: audit.EventStudentDeleted, StudentID: int64(id)})
	return nil
}

func (s *Service) ListStudents(ctx context.Context, filter models.StudentFilter) (*models.Page[*models.Student], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.Page.Normalize()

	students, total, err := s.store.ListStudents(ctx, filter)
	if err != nil {
		return nil, wrapStoreErr(err, nil, "failed to list students")
	}
	return models.NewPage(students, total, filter.Page), nil
}
