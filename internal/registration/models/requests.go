package models

import (
	"math"
	"strings"
	"time"

	dErrors "registrar/pkg/domain-errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// StudentRequest is the body of create and update student calls.
type StudentRequest struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

func (r *StudentRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Surname = strings.TrimSpace(r.Surname)
}

func (r *StudentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Surname == "" {
		return dErrors.New(dErrors.CodeValidation, "surname is required")
	}
	return nil
}

// CourseRequest is the body of create and update course calls. Dates use DateLayout.
type CourseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (r *CourseRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.StartDate = strings.TrimSpace(r.StartDate)
	r.EndDate = strings.TrimSpace(r.EndDate)
}

func (r *CourseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Description == "" {
		return dErrors.New(dErrors.CodeValidation, "description is required")
	}
	if r.StartDate == "" || r.EndDate == "" {
		return dErrors.New(dErrors.CodeValidation, "start_date and end_date are required")
	}
	return nil
}

// Dates parses the request's start and end dates.
func (r *CourseRequest) Dates() (start, end time.Time, err error) {
	if start, err = ParseDate(r.StartDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = ParseDate(r.EndDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// EnrollmentRequest is the body of enroll and unenroll calls.
type EnrollmentRequest struct {
	StudentID StudentID `json:"student_id"`
	CourseID  CourseID  `json:"course_id"`
}

func (r *EnrollmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.StudentID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "student_id is required")
	}
	if r.CourseID.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "course_id is required")
	}
	return nil
}

// PageRequest selects one page of an id-ordered listing. Page is zero based.
type PageRequest struct {
	Page int
	Size int
}

// Normalize applies the default size and clamps out-of-range values.
func (p *PageRequest) Normalize() {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	// Offset must stay representable.
	if maxPage := math.MaxInt / p.Size; p.Page > maxPage {
		p.Page = maxPage
	}
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// StudentFilter narrows ListStudents. CourseID and WithoutCourses are exclusive.
type StudentFilter struct {
	CourseID       CourseID
	WithoutCourses bool
	Page           PageRequest
}

func (f *StudentFilter) Validate() error {
	if !f.CourseID.IsZero() && f.WithoutCourses {
		return dErrors.New(dErrors.CodeBadRequest, "course_id and without_courses cannot be combined")
	}
	return nil
}

// CourseFilter narrows ListCourses. StudentID and WithoutStudents are exclusive.
type CourseFilter struct {
	StudentID       StudentID
	WithoutStudents bool
	Page            PageRequest
}

func (f *CourseFilter) Validate() error {
	if !f.StudentID.IsZero() && f.WithoutStudents {
		return dErrors.New(dErrors.CodeBadRequest, "student_id and without_students cannot be combined")
	}
	return nil
}

// Page is one slice of a listing plus the totals needed to walk the rest.
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	Size       int
	TotalPages int
}

// NewPage assembles a page. req must already be normalized.
func NewPage[T any](items []T, total int, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		Size:       req.Size,
		TotalPages: pages,
	}
}
