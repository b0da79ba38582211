package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"registrar/internal/audit"
	"registrar/internal/registration/models"
	"registrar/pkg/requestcontext"
)

func (s *Service) CreateCourse(ctx context.Context, req *models.CourseRequest) (*models.Course, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, end, err := req.Dates()
	if err != nil {
		return nil, err
	}
	course, err := models.NewCourse(req.Name, req.Description, start, end)
	if err != nil {
		return nil, toValidation(err)
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.CreateCourse(txCtx, course); err != nil {
			return wrapStoreErr(err, nil, "failed to create course")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCoursesCreated()
	}
	s.emit(ctx, audit.Event{Type: audit.EventCourseCreated, CourseID: int64(course.ID)})
	return course, nil
}

func (s *Service) GetCourse(ctx context.Context, id models.CourseID) (*models.Course, error) {
	course, err := s.store.FindCourse(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err, models.ErrCourseNotFound, "failed to load course")
	}
	return course, nil
}

// UpdateCourse replaces name, description and schedule. The roster is kept even
// when the new end date closes registration.
func (s *Service) UpdateCourse(ctx context.Context, id models.CourseID, req *models.CourseRequest) (*models.Course, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, end, err := req.Dates()
	if err != nil {
		return nil, err
	}

	var updated *models.Course
	err = s.runInTx(ctx, func(txCtx context.Context) error {
		course, err := s.store.FindCourse(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, models.ErrCourseNotFound, "failed to load course")
		}
		if err := course.Update(req.Name, req.Description, start, end); err != nil {
			return toValidation(err)
		}
		if err := s.store.UpdateCourse(txCtx, course); err != nil {
			return wrapStoreErr(err, models.ErrCourseNotFound, "failed to update course")
		}
		updated = course
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Type: audit.EventCourseUpdated, CourseID: int64(id)})
	return updated, nil
}

// DeleteCourse removes the course from every student's set, then deletes it.
func (s *Service) DeleteCourse(ctx context.Context, id models.CourseID) error {
	ctx, span := s.tracer.Start(ctx, "registration.DeleteCourse",
		trace.WithAttributes(attribute.Int64("course.id", int64(id))))
	defer span.End()

	var detached int
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		course, err := s.store.FindCourse(txCtx, id)
		if err != nil {
			return wrapStoreErr(err, models.ErrCourseNotFound, "failed to load course")
		}
		if err := s.store.DeleteCourse(txCtx, id); err != nil {
			return wrapStoreErr(err, models.ErrCourseNotFound, "failed to delete course")
		}
		detached = course.StudentCount()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if s.metrics != nil && detached > 0 {
		s.metrics.IncrementCascadeDelete("course")
	}
	s.logger.InfoContext(ctx, "course deleted",
		"course_id", int64(id),
		"detached_students", detached,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Type: audit.EventCourseDeleted, CourseID: int64(id)})
	return nil
}

func (s *Service) ListCourses(ctx context.Context, filter models.CourseFilter) (*models.Page[*models.Course], error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	filter.Page.Normalize()

	courses, total, err := s.store.ListCourses(ctx, filter)
	if err != nil {
		return nil, wrapStoreErr(err, nil, "failed to list courses")
	}
	return models.NewPage(courses, total, filter.Page), nil
}
