// Package policy holds the enrollment rules. Every rule is a pure read over
// the loaded student and course; none of them touch storage.
package policy

import (
	"time"

	"registrar/internal/registration/models"
)

// Policy evaluates enrollment rules against configured thresholds.
type Policy struct {
	thresholds Thresholds
}

// New builds a Policy. Non-positive thresholds are rejected.
func New(t Thresholds) (*Policy, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Policy{thresholds: t}, nil
}

func (p *Policy) Thresholds() Thresholds {
	return p.thresholds
}

// CourseHasCapacity reports whether the course can take one more student.
func (p *Policy) CourseHasCapacity(c *models.Course) bool {
	return c.StudentCount() < p.thresholds.CourseMaxStudents
}

// StudentHasCapacity reports whether the student can take one more course.
func (p *Policy) StudentHasCapacity(s *models.Student) bool {
	return s.CourseCount() < p.thresholds.StudentMaxCourses
}

// CourseIsOpen reports whether enrollment is still accepted on asOf.
// The end date is exclusive: a course ending today is closed.
func CourseIsOpen(c *models.Course, asOf time.Time) bool {
	return models.DateOf(c.EndDate).After(models.DateOf(asOf))
}

// IsAlreadyEnrolled reports whether the student already holds the course.
func IsAlreadyEnrolled(s *models.Student, c *models.Course) bool {
	return s.IsEnrolledIn(c.ID)
}

// Check runs the rules in their fixed order and returns the first violation:
// course capacity, student capacity, registration window, duplicate.
func (p *Policy) Check(s *models.Student, c *models.Course, asOf time.Time) error {
	switch {
	case !p.CourseHasCapacity(c):
		return models.ErrCourseCapacityExceeded
	case !p.StudentHasCapacity(s):
		return models.ErrStudentCapacityExceeded
	case !CourseIsOpen(c, asOf):
		return models.ErrRegistrationClosed
	case IsAlreadyEnrolled(s, c):
		return models.ErrAlreadyEnrolled
	}
	return nil
}
