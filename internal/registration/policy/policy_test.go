package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"registrar/internal/registration/models"
)

type PolicySuite struct {
	suite.Suite
	policy *Policy
	today  time.Time
}

func TestPolicySuite(t *testing.T) {
	suite.Run(t, new(PolicySuite))
}

func (s *PolicySuite) SetupTest() {
	p, err := New(Thresholds{CourseMaxStudents: 2, StudentMaxCourses: 1})
	s.Require().NoError(err)
	s.policy = p
	s.today = time.Date(2024, time.May, 10, 14, 30, 0, 0, time.UTC)
}

func (s *PolicySuite) openCourse(students ...models.StudentID) *models.Course {
	return &models.Course{ID: 10, EndDate: s.today.AddDate(0, 0, 1), StudentIDs: students}
}

func (s *PolicySuite) TestCourseHasCapacity() {
	s.True(s.policy.CourseHasCapacity(s.openCourse()))
	s.True(s.policy.CourseHasCapacity(s.openCourse(1)))
	s.False(s.policy.CourseHasCapacity(s.openCourse(1, 2)))
}

func (s *PolicySuite) TestStudentHasCapacity() {
	s.True(s.policy.StudentHasCapacity(&models.Student{ID: 1}))
	s.False(s.policy.StudentHasCapacity(&models.Student{ID: 1, CourseIDs: []models.CourseID{3}}))
}

func (s *PolicySuite) TestCourseIsOpen() {
	s.Run("ends tomorrow", func() {
		s.True(CourseIsOpen(&models.Course{EndDate: models.DateOf(s.today).AddDate(0, 0, 1)}, s.today))
	})
	s.Run("ends today", func() {
		s.False(CourseIsOpen(&models.Course{EndDate: models.DateOf(s.today)}, s.today))
	})
	s.Run("ended yesterday", func() {
		s.False(CourseIsOpen(&models.Course{EndDate: models.DateOf(s.today).AddDate(0, 0, -1)}, s.today))
	})
	s.Run("time of day ignored", func() {
		late := time.Date(2024, time.May, 10, 23, 59, 59, 0, time.UTC)
		s.True(CourseIsOpen(&models.Course{EndDate: time.Date(2024, time.May, 11, 0, 0, 0, 0, time.UTC)}, late))
	})
}

func (s *PolicySuite) TestIsAlreadyEnrolled() {
	student := &models.Student{ID: 1, CourseIDs: []models.CourseID{10}}
	s.True(IsAlreadyEnrolled(student, s.openCourse(1)))
	s.False(IsAlreadyEnrolled(&models.Student{ID: 2}, s.openCourse(1)))
}

// Rules are evaluated in a fixed order and the first failure wins.
func (s *PolicySuite) TestCheckOrder() {
	s.Run("course capacity reported before everything else", func() {
		full := &models.Course{ID: 10, EndDate: models.DateOf(s.today), StudentIDs: []models.StudentID{1, 2}}
		busy := &models.Student{ID: 1, CourseIDs: []models.CourseID{10}}
		s.Require().ErrorIs(s.policy.Check(busy, full, s.today), models.ErrCourseCapacityExceeded)
	})

	s.Run("student capacity before window", func() {
		closed := &models.Course{ID: 10, EndDate: models.DateOf(s.today)}
		busy := &models.Student{ID: 1, CourseIDs: []models.CourseID{11}}
		s.Require().ErrorIs(s.policy.Check(busy, closed, s.today), models.ErrStudentCapacityExceeded)
	})

	s.Run("window before duplicate", func() {
		p, err := New(Thresholds{CourseMaxStudents: 5, StudentMaxCourses: 5})
		s.Require().NoError(err)
		closed := &models.Course{ID: 10, EndDate: models.DateOf(s.today), StudentIDs: []models.StudentID{1}}
		enrolled := &models.Student{ID: 1, CourseIDs: []models.CourseID{10}}
		s.Require().ErrorIs(p.Check(enrolled, closed, s.today), models.ErrRegistrationClosed)
	})

	s.Run("duplicate", func() {
		p, err := New(Thresholds{CourseMaxStudents: 5, StudentMaxCourses: 5})
		s.Require().NoError(err)
		enrolled := &models.Student{ID: 1, CourseIDs: []models.CourseID{10}}
		s.Require().ErrorIs(p.Check(enrolled, s.openCourse(1), s.today), models.ErrAlreadyEnrolled)
	})

	s.Run("all rules pass", func() {
		s.NoError(s.policy.Check(&models.Student{ID: 3}, s.openCourse(), s.today))
	})
}

func TestNewRejectsNonPositiveThresholds(t *testing.T) {
	_, err := New(Thresholds{CourseMaxStudents: 0, StudentMaxCourses: 5})
	require.Error(t, err)

	_, err = New(Thresholds{CourseMaxStudents: 5, StudentMaxCourses: -1})
	require.Error(t, err)

	p, err := New(DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, 50, p.Thresholds().CourseMaxStudents)
}
