package policy

import (
	"fmt"
)

const (
	DefaultCourseMaxStudents = 50
	DefaultStudentMaxCourses = 5
)

// Thresholds are the capacity limits enforced at enrollment time.
type Thresholds struct {
	CourseMaxStudents int
	StudentMaxCourses int
}

// DefaultThresholds returns the limits used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CourseMaxStudents: DefaultCourseMaxStudents,
		StudentMaxCourses: DefaultStudentMaxCourses,
	}
}

func (t Thresholds) Validate() error {
	if t.CourseMaxStudents <= 0 {
		return fmt.Errorf("course student threshold must be positive, got %d", t.CourseMaxStudents)
	}
	if t.StudentMaxCourses <= 0 {
		return fmt.Errorf("student course threshold must be positive, got %d", t.StudentMaxCourses)
	}
	return nil
}
