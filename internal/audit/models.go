package audit

import "time"

// EventType names a registration fact worth publishing downstream.
type EventType string

const (
	EventStudentCreated     EventType = "student.created"
	EventStudentUpdated     EventType = "student.updated"
	EventStudentDeleted     EventType = "student.deleted"
	EventCourseCreated      EventType = "course.created"
	EventCourseUpdated      EventType = "course.updated"
	EventCourseDeleted      EventType = "course.deleted"
	EventStudentEnrolled    EventType = "enrollment.created"
	EventStudentUnenrolled  EventType = "enrollment.deleted"
	EventEnrollmentRejected EventType = "enrollment.rejected"
)

// Event is emitted by the registration service after a state change commits,
// or when an enrollment is rejected. Keep it transport-agnostic so sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	StudentID int64     `json:"student_id,omitempty"`
	CourseID  int64     `json:"course_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key groups events about one student onto one partition.
func (e Event) Key() string {
	if e.StudentID != 0 {
		return "student-" + itoa(e.StudentID)
	}
	return "course-" + itoa(e.CourseID)
}
