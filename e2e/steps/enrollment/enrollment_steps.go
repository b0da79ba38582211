package enrollment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	DELETE(path string, body interface{}) error
	GET(path string) error
	GetResponseField(field string) (interface{}, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Remember(alias string, id int64)
	Recall(alias string) (int64, error)
}

// RegisterSteps registers student, course and enrollment steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &enrollmentSteps{tc: tc}

	// Setup
	ctx.Step(`^a student "([^"]*)"$`, steps.aStudent)
	ctx.Step(`^a course "([^"]*)" running from "([^"]*)" to "([^"]*)"$`, steps.aCourse)
	ctx.Step(`^an open course "([^"]*)"$`, steps.anOpenCourse)
	ctx.Step(`^"([^"]*)" is enrolled in (\d+) other open courses$`, steps.enrolledInOtherCourses)

	// Actions
	ctx.Step(`^I enroll "([^"]*)" in "([^"]*)"$`, steps.enroll)
	ctx.Step(`^I unenroll "([^"]*)" from "([^"]*)"$`, steps.unenroll)
	ctx.Step(`^I delete the student "([^"]*)"$`, steps.deleteStudent)

	// Assertions
	ctx.Step(`^course "([^"]*)" should list (\d+) students?$`, steps.courseShouldListStudents)
	ctx.Step(`^student "([^"]*)" should list (\d+) courses?$`, steps.studentShouldListCourses)
}

type enrollmentSteps struct {
	tc TestContext
}

func (s *enrollmentSteps) aStudent(ctx context.Context, alias string) error {
	if err := s.tc.POST("/students", map[string]string{"name": alias, "surname": "E2E"}); err != nil {
		return err
	}
	return s.rememberCreated(alias)
}

func (s *enrollmentSteps) aCourse(ctx context.Context, alias, start, end string) error {
	body := map[string]string{
		"name":        alias,
		"description": "created by feature tests",
		"start_date":  start,
		"end_date":    end,
	}
	if err := s.tc.POST("/courses", body); err != nil {
		return err
	}
	return s.rememberCreated(alias)
}

func (s *enrollmentSteps) anOpenCourse(ctx context.Context, alias string) error {
	return s.aCourse(ctx, alias, "2099-01-01", "2099-12-31")
}

func (s *enrollmentSteps) enrolledInOtherCourses(ctx context.Context, student string, n int) error {
	for i := 0; i < n; i++ {
		alias := student + "-filler-" + strconv.Itoa(i)
		if err := s.anOpenCourse(ctx, alias); err != nil {
			return err
		}
		if err := s.enroll(ctx, student, alias); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() != 200 {
			return fmt.Errorf("filler enrollment %d failed: %s", i, s.tc.GetLastResponseBody())
		}
	}
	return nil
}

func (s *enrollmentSteps) enroll(ctx context.Context, student, course string) error {
	body, err := s.enrollmentBody(student, course)
	if err != nil {
		return err
	}
	return s.tc.POST("/enrollments", body)
}

func (s *enrollmentSteps) unenroll(ctx context.Context, student, course string) error {
	body, err := s.enrollmentBody(student, course)
	if err != nil {
		return err
	}
	return s.tc.DELETE("/enrollments", body)
}

func (s *enrollmentSteps) deleteStudent(ctx context.Context, alias string) error {
	id, err := s.tc.Recall(alias)
	if err != nil {
		return err
	}
	return s.tc.DELETE(fmt.Sprintf("/students/%d", id), nil)
}

func (s *enrollmentSteps) courseShouldListStudents(ctx context.Context, alias string, n int) error {
	return s.countMembers("/courses/%d", alias, "student_ids", n)
}

func (s *enrollmentSteps) studentShouldListCourses(ctx context.Context, alias string, n int) error {
	return s.countMembers("/students/%d", alias, "course_ids", n)
}

func (s *enrollmentSteps) countMembers(pathFmt, alias, field string, expected int) error {
	id, err := s.tc.Recall(alias)
	if err != nil {
		return err
	}
	if err := s.tc.GET(fmt.Sprintf(pathFmt, id)); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("fetching %s returned %d", alias, s.tc.GetLastResponseStatus())
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return err
	}
	var ids []int64
	if err := json.Unmarshal(body[field], &ids); err != nil {
		return fmt.Errorf("decode %s: %w", field, err)
	}
	if len(ids) != expected {
		return fmt.Errorf("expected %d entries in %s of %s, got %v", expected, field, alias, ids)
	}
	return nil
}

func (s *enrollmentSteps) enrollmentBody(student, course string) (map[string]int64, error) {
	studentID, err := s.tc.Recall(student)
	if err != nil {
		return nil, err
	}
	courseID, err := s.tc.Recall(course)
	if err != nil {
		return nil, err
	}
	return map[string]int64{"student_id": studentID, "course_id": courseID}, nil
}

// rememberCreated stores the id of a 201 response under alias.
func (s *enrollmentSteps) rememberCreated(alias string) error {
	if s.tc.GetLastResponseStatus() != 201 {
		return fmt.Errorf("creating %q returned %d: %s", alias, s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
	v, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	id, ok := v.(float64)
	if !ok {
		return fmt.Errorf("id of %q is not a number: %v", alias, v)
	}
	s.tc.Remember(alias, int64(id))
	return nil
}
