package models

// RuleError is a registration outcome that names the rule that produced it.
// Reason is stable and safe to return to API clients.
type RuleError struct {
	reason string
	msg    string
}

func (e *RuleError) Error() string  { return e.msg }
func (e *RuleError) Reason() string { return e.reason }

func newRuleError(reason, msg string) *RuleError {
	return &RuleError{reason: reason, msg: msg}
}

var (
	ErrStudentNotFound         = newRuleError("student_not_found", "student not found")
	ErrCourseNotFound          = newRuleError("course_not_found", "course not found")
	ErrCourseCapacityExceeded  = newRuleError("course_capacity_exceeded", "course is at capacity")
	ErrStudentCapacityExceeded = newRuleError("student_capacity_exceeded", "student has reached the course limit")
	ErrRegistrationClosed      = newRuleError("registration_closed", "registration for this course is closed")
	ErrAlreadyEnrolled         = newRuleError("already_enrolled", "student is already enrolled in this course")
	ErrEnrollmentNotFound      = newRuleError("enrollment_not_found", "enrollment not found")
	ErrConcurrencyConflict     = newRuleError("concurrency_conflict", "the request conflicted with a concurrent update, retry")
)
