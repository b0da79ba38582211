package models

import (
	"strconv"

	dErrors "registrar/pkg/domain-errors"
)

// StudentID is the store-assigned identifier of a student.
type StudentID int64

// CourseID is the store-assigned identifier of a course.
type CourseID int64

func (id StudentID) IsZero() bool { return id <= 0 }
func (id CourseID) IsZero() bool  { return id <= 0 }

func (id StudentID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id CourseID) String() string  { return strconv.FormatInt(int64(id), 10) }

// ParseStudentID parses a path or query parameter into a StudentID.
func ParseStudentID(raw string) (StudentID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid student id")
	}
	return StudentID(v), nil
}

// ParseCourseID parses a path or query parameter into a CourseID.
func ParseCourseID(raw string) (CourseID, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid course id")
	}
	return CourseID(v), nil
}
