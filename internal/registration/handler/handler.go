// Package handler exposes the registration service over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"registrar/internal/registration/models"
	dErrors "registrar/pkg/domain-errors"
	"registrar/pkg/platform/httputil"
	"registrar/pkg/requestcontext"
)

// Service is the registration surface the handlers depend on.
type Service interface {
	CreateStudent(ctx context.Context, req *models.StudentRequest) (*models.Student, error)
	GetStudent(ctx context.Context, id models.StudentID) (*models.Student, error)
	UpdateStudent(ctx context.Context, id models.StudentID, req *models.StudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id models.StudentID) error
	ListStudents(ctx context.Context, filter models.StudentFilter) (*models.Page[*models.Student], error)

	CreateCourse(ctx context.Context, req *models.CourseRequest) (*models.Course, error)
	GetCourse(ctx context.Context, id models.CourseID) (*models.Course, error)
	UpdateCourse(ctx context.Context, id models.CourseID, req *models.CourseRequest) (*models.Course, error)
	DeleteCourse(ctx context.Context, id models.CourseID) error
	ListCourses(ctx context.Context, filter models.CourseFilter) (*models.Page[*models.Course], error)

	Enroll(ctx context.Context, studentID models.StudentID, courseID models.CourseID) (*models.Enrollment, error)
	Unenroll(ctx context.Context, studentID models.StudentID, courseID models.CourseID) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the student, course and enrollment routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/students", func(r chi.Router) {
		r.Post("/", h.handleCreateStudent)
		r.Get("/", h.handleListStudents)
		r.Get("/{id}", h.handleGetStudent)
		r.Put("/{id}", h.handleUpdateStudent)
		r.Delete("/{id}", h.handleDeleteStudent)
	})
	r.Route("/courses", func(r chi.Router) {
		r.Post("/", h.handleCreateCourse)
		r.Get("/", h.handleListCourses)
		r.Get("/{id}", h.handleGetCourse)
		r.Put("/{id}", h.handleUpdateCourse)
		r.Delete("/{id}", h.handleDeleteCourse)
	})
	r.Post("/enrollments", h.handleEnroll)
	r.Delete("/enrollments", h.handleUnenroll)
}

// writeError logs by severity and writes the mapped error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeTimeout, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	default:
		h.logger.DebugContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func pathStudentID(r *http.Request) (models.StudentID, error) {
	return models.ParseStudentID(chi.URLParam(r, "id"))
}

func pathCourseID(r *http.Request) (models.CourseID, error) {
	return models.ParseCourseID(chi.URLParam(r, "id"))
}

// parsePage reads page and size; absent values fall back to defaults during normalization.
func parsePage(r *http.Request) (models.PageRequest, error) {
	var p models.PageRequest
	var err error
	if p.Page, err = queryInt(r, "page"); err != nil {
		return p, err
	}
	if p.Size, err = queryInt(r, "size"); err != nil {
		return p, err
	}
	return p, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, name+" must be a boolean")
	}
	return b, nil
}
