package models

import (
	"slices"
	"time"
)

// Enrollment is the association between one student and one course.
type Enrollment struct {
	StudentID  StudentID
	CourseID   CourseID
	EnrolledAt time.Time
}

// Attach records the association on both sides. Calling it for a pair that is
// already associated changes nothing.
func Attach(s *Student, c *Course) {
	if !s.IsEnrolledIn(c.ID) {
		s.CourseIDs = append(s.CourseIDs, c.ID)
	}
	if !c.HasStudent(s.ID) {
		c.StudentIDs = append(c.StudentIDs, s.ID)
	}
}

// Detach removes the association from both sides and reports whether either
// side held it.
func Detach(s *Student, c *Course) bool {
	before := len(s.CourseIDs) + len(c.StudentIDs)
	s.CourseIDs = slices.DeleteFunc(s.CourseIDs, func(id CourseID) bool { return id == c.ID })
	c.StudentIDs = slices.DeleteFunc(c.StudentIDs, func(id StudentID) bool { return id == s.ID })
	return len(s.CourseIDs)+len(c.StudentIDs) != before
}
