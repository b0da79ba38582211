package models

import (
	"slices"
	"strings"

	dErrors "registrar/pkg/domain-errors"
)

const maxNameLength = 128

// Student is a person who may be enrolled in courses.
// CourseIDs behaves as a set: no duplicates, order of enrollment preserved.
type Student struct {
	ID        StudentID
	Name      string
	Surname   string
	CourseIDs []CourseID
}

// NewStudent builds a student with no enrollments.
func NewStudent(name, surname string) (*Student, error) {
	s := &Student{}
	if err := s.Rename(name, surname); err != nil {
		return nil, err
	}
	return s, nil
}

// Rename replaces the student's names after trimming and validating them.
func (s *Student) Rename(name, surname string) error {
	name = strings.TrimSpace(name)
	surname = strings.TrimSpace(surname)
	if err := validateName("name", name); err != nil {
		return err
	}
	if err := validateName("surname", surname); err != nil {
		return err
	}
	s.Name = name
	s.Surname = surname
	return nil
}

// IsEnrolledIn reports whether the student holds courseID.
func (s *Student) IsEnrolledIn(courseID CourseID) bool {
	return slices.Contains(s.CourseIDs, courseID)
}

// CourseCount is the number of distinct courses the student is enrolled in.
func (s *Student) CourseCount() int {
	return len(s.CourseIDs)
}

// Clone returns a deep copy so stores never hand out shared slices.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	c.CourseIDs = slices.Clone(s.CourseIDs)
	return &c
}

func validateName(field, value string) error {
	if value == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, field+" is required")
	}
	if len([]rune(value)) > maxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, field+" must be at most 128 characters")
	}
	return nil
}
