package models

import (
	"slices"
	"strings"
	"time"

	dErrors "registrar/pkg/domain-errors"
)

const maxDescriptionLength = 2048

// Course is an offering students enroll in. StartDate and EndDate are calendar
// dates at midnight UTC. StudentIDs behaves as a set in enrollment order.
type Course struct {
	ID          CourseID
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	StudentIDs  []StudentID
}

// NewCourse builds a course with no enrollments.
func NewCourse(name, description string, start, end time.Time) (*Course, error) {
	c := &Course{}
	if err := c.Update(name, description, start, end); err != nil {
		return nil, err
	}
	return c, nil
}

// Update replaces the descriptive fields and schedule of the course.
// A course may not start after it ends.
func (c *Course) Update(name, description string, start, end time.Time) error {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if err := validateName("name", name); err != nil {
		return err
	}
	if len([]rune(description)) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "description must be at most 2048 characters")
	}
	start, end = DateOf(start), DateOf(end)
	if start.After(end) {
		return dErrors.New(dErrors.CodeInvariantViolation, "start date is after end date")
	}
	c.Name = name
	c.Description = description
	c.StartDate = start
	c.EndDate = end
	return nil
}

// HasStudent reports whether studentID is enrolled.
func (c *Course) HasStudent(studentID StudentID) bool {
	return slices.Contains(c.StudentIDs, studentID)
}

// StudentCount is the number of distinct students enrolled.
func (c *Course) StudentCount() int {
	return len(c.StudentIDs)
}

// Clone returns a deep copy.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	cp := *c
	cp.StudentIDs = slices.Clone(c.StudentIDs)
	return &cp
}
