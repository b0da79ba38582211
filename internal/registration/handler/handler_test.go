package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"registrar/internal/registration/models"
	"registrar/internal/registration/policy"
	"registrar/internal/registration/service"
	"registrar/internal/registration/store"
	"registrar/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	now    time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.now = time.Date(2024, time.September, 15, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rules, err := policy.New(policy.Thresholds{CourseMaxStudents: 1, StudentMaxCourses: 2})
	s.Require().NoError(err)
	svc, err := service.New(store.NewInMemoryStore(), rules, service.WithLogger(logger))
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.WithRequestTime(req, s.now))
}

func (s *HandlerSuite) createStudent(name string) models.StudentResponse {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/students", map[string]string{"name": name, "surname": "Doe"}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return *testutil.UnmarshalResponse[models.StudentResponse](s.T(), rr)
}

func (s *HandlerSuite) createCourse(name, end string) models.CourseResponse {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/courses", map[string]string{
		"name": name, "description": name + " basics", "start_date": "2024-09-01", "end_date": end,
	}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	return *testutil.UnmarshalResponse[models.CourseResponse](s.T(), rr)
}

func (s *HandlerSuite) enroll(studentID models.StudentID, courseID models.CourseID) *httptest.ResponseRecorder {
	return s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/enrollments", map[string]any{
		"student_id": studentID, "course_id": courseID,
	}))
}

func (s *HandlerSuite) TestStudentCRUD() {
	created := s.createStudent("Ada")
	s.Equal("Ada", created.Name)
	s.Empty(created.CourseIDs)
	s.NotNil(created.CourseIDs)

	path := fmt.Sprintf("/students/%d", created.ID)
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
	s.Equal(http.StatusOK, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodPut, path, map[string]string{"name": "Grace", "surname": "Hopper"}))
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Equal("Grace", testutil.UnmarshalResponse[models.StudentResponse](s.T(), rr).Name)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodDelete, path, nil))
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, path, nil))
	body := testutil.RequireError(s.T(), rr, http.StatusNotFound, "not_found")
	s.Equal("student_not_found", body.Reason)
}

func (s *HandlerSuite) TestBadInput() {
	s.Run("non numeric id", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/students/abc", nil))
		testutil.RequireError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("unknown field", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/students", `{"name":"A","surname":"B","age":3}`))
		testutil.RequireError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing surname", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/students", `{"name":"A"}`))
		testutil.RequireError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("course dates out of order", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/courses", map[string]string{
			"name": "Math", "description": "Algebra", "start_date": "2024-12-01", "end_date": "2024-09-01",
		}))
		body := testutil.RequireError(s.T(), rr, http.StatusBadRequest, "validation_error")
		s.Equal("start date is after end date", body.ErrorDescription)
	})

	s.Run("enrollment without course", func() {
		rr := s.do(testutil.NewRequestWithBody(s.T(), http.MethodPost, "/enrollments", `{"student_id":1}`))
		testutil.RequireError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("bad paging", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/students?page=-1", nil))
		testutil.RequireError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestEnrollment() {
	ada := s.createStudent("Ada")
	bob := s.createStudent("Bob")
	math := s.createCourse("Math", "2024-12-20")

	rr := s.enroll(ada.ID, math.ID)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[models.EnrollmentResponse](s.T(), rr)
	s.Equal("student enrolled", resp.Message)
	s.Equal(ada.ID, resp.StudentID)
	s.True(resp.EnrolledAt.Equal(s.now))

	s.Run("repeat on a full course reports capacity first", func() {
		body := testutil.RequireError(s.T(), s.enroll(ada.ID, math.ID), http.StatusConflict, "policy_violation")
		s.Equal("course_capacity_exceeded", body.Reason)
	})

	s.Run("course full", func() {
		body := testutil.RequireError(s.T(), s.enroll(bob.ID, math.ID), http.StatusConflict, "policy_violation")
		s.Equal("course_capacity_exceeded", body.Reason)
	})

	s.Run("closed course", func() {
		closed := s.createCourse("Summer", "2024-08-31")
		body := testutil.RequireError(s.T(), s.enroll(bob.ID, closed.ID), http.StatusConflict, "policy_violation")
		s.Equal("registration_closed", body.Reason)
	})

	s.Run("unknown student", func() {
		body := testutil.RequireError(s.T(), s.enroll(999, math.ID), http.StatusNotFound, "not_found")
		s.Equal("student_not_found", body.Reason)
	})

	s.Run("roster", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, fmt.Sprintf("/students?course_id=%d", math.ID), nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		page := testutil.UnmarshalResponse[models.PageResponse[models.StudentResponse]](s.T(), rr)
		s.Equal(1, page.Total)
		s.Equal(ada.ID, page.Items[0].ID)

		rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, fmt.Sprintf("/courses?student_id=%d", ada.ID), nil))
		s.Require().Equal(http.StatusOK, rr.Code)
		courses := testutil.UnmarshalResponse[models.PageResponse[models.CourseResponse]](s.T(), rr)
		s.Equal(1, courses.Total)
		s.Equal("2024-12-20", courses.Items[0].EndDate)
	})

	s.Run("unenroll", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/enrollments", map[string]any{"student_id": ada.ID, "course_id": math.ID})
		s.Equal(http.StatusNoContent, s.do(req).Code)

		req = testutil.NewJSONRequest(s.T(), http.MethodDelete, "/enrollments", map[string]any{"student_id": ada.ID, "course_id": math.ID})
		body := testutil.RequireError(s.T(), s.do(req), http.StatusNotFound, "not_found")
		s.Equal("enrollment_not_found", body.Reason)

		s.Equal(http.StatusOK, s.enroll(bob.ID, math.ID).Code, "freed seat is available again")
	})
}

func (s *HandlerSuite) TestListFilters() {
	s.createStudent("Ada")
	s.createCourse("Math", "2024-12-20")

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/students?without_courses=true&size=1", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	page := testutil.UnmarshalResponse[models.PageResponse[models.StudentResponse]](s.T(), rr)
	s.Equal(1, page.Size)
	s.Equal(1, page.TotalPages)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/students?page=922337203685477580&size=20", nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Empty(testutil.UnmarshalResponse[models.PageResponse[models.StudentResponse]](s.T(), rr).Items)

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/courses?student_id=1&without_students=true", nil))
	testutil.RequireError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = s.do(testutil.NewJSONRequest(s.T(), http.MethodGet, "/courses?without_students=maybe", nil))
	testutil.RequireError(s.T(), rr, http.StatusBadRequest, "bad_request")
}
