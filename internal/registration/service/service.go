// Package service orchestrates student, course and enrollment operations.
// Every mutation runs inside StoreTx so rule checks and writes are atomic.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"registrar/internal/audit"
	"registrar/internal/registration/metrics"
	"registrar/internal/registration/models"
	"registrar/internal/registration/policy"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

type StudentStore interface {
	CreateStudent(ctx context.Context, student *models.Student) error
	UpdateStudent(ctx context.Context, student *models.Student) error
	FindStudent(ctx context.Context, id models.StudentID) (*models.Student, error)
	DeleteStudent(ctx context.Context, id models.StudentID) error
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]*models.Student, int, error)
}

type CourseStore interface {
	CreateCourse(ctx context.Context, course *models.Course) error
	UpdateCourse(ctx context.Context, course *models.Course) error
	FindCourse(ctx context.Context, id models.CourseID) (*models.Course, error)
	DeleteCourse(ctx context.Context, id models.CourseID) error
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, int, error)
}

// EnrollmentStore writes both sides of the student/course association at once.
type EnrollmentStore interface {
	SaveEnrollment(ctx context.Context, enrollment models.Enrollment) error
	DeleteEnrollment(ctx context.Context, studentID models.StudentID, courseID models.CourseID) error
}

type Store interface {
	StudentStore
	CourseStore
	EnrollmentStore
}

// StoreTx runs fn as one unit of work. Store calls made with the ctx passed
// to fn take part in the same transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the registration application service.
type Service struct {
	store   Store
	tx      StoreTx
	policy  *policy.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

// WithTx replaces the default process-local lock with a store transaction.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(store Store, rules *policy.Policy, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registration store is required")
	}
	if rules == nil {
		return nil, errors.New("enrollment policy is required")
	}
	s := &Service{
		store:  store,
		policy: rules,
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer("registrar/internal/registration/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = newInMemoryStoreTx()
	}
	return s, nil
}

// Thresholds exposes the configured capacity limits.
func (s *Service) Thresholds() policy.Thresholds {
	return s.policy.Thresholds()
}

func (s *Service) reasonOf(err error) string {
	var rule *models.RuleError
	if errors.As(err, &rule) {
		return rule.Reason()
	}
	return "error"
}
