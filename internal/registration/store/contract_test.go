package store_test

import (
	"context"
	"math"
	"time"

	"github.com/stretchr/testify/suite"

	"registrar/internal/registration/models"
	"registrar/internal/registration/service"
	"registrar/pkg/platform/sentinel"
)

// contractSuite holds the behaviour every registration store must share.
// Backends embed it and provide newStore.
type contractSuite struct {
	suite.Suite
	ctx      context.Context
	store    service.Store
	newStore func() service.Store
}

func (s *contractSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
}

func (s *contractSuite) createStudent(name string) *models.Student {
	student, err := models.NewStudent(name, "Tester")
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateStudent(s.ctx, student))
	return student
}

func (s *contractSuite) createCourse(name string) *models.Course {
	start := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	course, err := models.NewCourse(name, name+" description", start, start.AddDate(0, 3, 0))
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreateCourse(s.ctx, course))
	return course
}

func (s *contractSuite) enroll(studentID models.StudentID, courseID models.CourseID) {
	s.Require().NoError(s.store.SaveEnrollment(s.ctx, models.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Now(),
	}))
}

func page(size int) models.PageRequest {
	return models.PageRequest{Page: 0, Size: size}
}

func (s *contractSuite) TestStudentLifecycle() {
	created := s.createStudent("Ada")
	s.NotZero(created.ID)

	s.Run("find returns stored fields", func() {
		found, err := s.store.FindStudent(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal("Ada", found.Name)
		s.Equal("Tester", found.Surname)
		s.Empty(found.CourseIDs)
	})

	s.Run("update renames", func() {
		found, err := s.store.FindStudent(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Require().NoError(found.Rename("Grace", "Hopper"))
		s.Require().NoError(s.store.UpdateStudent(s.ctx, found))

		reloaded, err := s.store.FindStudent(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal("Grace", reloaded.Name)
	})

	s.Run("missing student", func() {
		_, err := s.store.FindStudent(s.ctx, created.ID+1000)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		err = s.store.UpdateStudent(s.ctx, &models.Student{ID: created.ID + 1000, Name: "x", Surname: "y"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		s.Require().ErrorIs(s.store.DeleteStudent(s.ctx, created.ID+1000), sentinel.ErrNotFound)
	})
}

func (s *contractSuite) TestCourseLifecycle() {
	created := s.createCourse("Algebra")

	found, err := s.store.FindCourse(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Algebra", found.Name)
	s.Equal(created.StartDate, found.StartDate)
	s.Equal(created.EndDate, found.EndDate)

	newEnd := found.EndDate.AddDate(0, 1, 0)
	s.Require().NoError(found.Update("Algebra II", "harder", found.StartDate, newEnd))
	s.Require().NoError(s.store.UpdateCourse(s.ctx, found))

	reloaded, err := s.store.FindCourse(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Algebra II", reloaded.Name)
	s.Equal(newEnd, reloaded.EndDate)

	_, err = s.store.FindCourse(s.ctx, created.ID+1000)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// Both sides of the association must always agree.
func (s *contractSuite) TestEnrollmentIsSymmetric() {
	ada := s.createStudent("Ada")
	algebra := s.createCourse("Algebra")
	physics := s.createCourse("Physics")

	s.enroll(ada.ID, algebra.ID)
	s.enroll(ada.ID, physics.ID)
	s.enroll(ada.ID, algebra.ID)

	student, err := s.store.FindStudent(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]models.CourseID{algebra.ID, physics.ID}, student.CourseIDs)

	course, err := s.store.FindCourse(s.ctx, algebra.ID)
	s.Require().NoError(err)
	s.Equal([]models.StudentID{ada.ID}, course.StudentIDs)

	s.Require().NoError(s.store.DeleteEnrollment(s.ctx, ada.ID, algebra.ID))
	s.Require().ErrorIs(s.store.DeleteEnrollment(s.ctx, ada.ID, algebra.ID), sentinel.ErrNotFound)

	student, err = s.store.FindStudent(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.Equal([]models.CourseID{physics.ID}, student.CourseIDs)
	course, err = s.store.FindCourse(s.ctx, algebra.ID)
	s.Require().NoError(err)
	s.Empty(course.StudentIDs)
}

func (s *contractSuite) TestSaveEnrollmentRequiresBothSides() {
	ada := s.createStudent("Ada")
	err := s.store.SaveEnrollment(s.ctx, models.Enrollment{StudentID: ada.ID, CourseID: 999, EnrolledAt: time.Now()})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestDeleteCascades() {
	ada := s.createStudent("Ada")
	alan := s.createStudent("Alan")
	algebra := s.createCourse("Algebra")
	physics := s.createCourse("Physics")
	s.enroll(ada.ID, algebra.ID)
	s.enroll(alan.ID, algebra.ID)
	s.enroll(ada.ID, physics.ID)

	s.Run("deleting a course detaches every student", func() {
		s.Require().NoError(s.store.DeleteCourse(s.ctx, algebra.ID))

		_, err := s.store.FindCourse(s.ctx, algebra.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		a, err := s.store.FindStudent(s.ctx, ada.ID)
		s.Require().NoError(err)
		s.Equal([]models.CourseID{physics.ID}, a.CourseIDs)
		b, err := s.store.FindStudent(s.ctx, alan.ID)
		s.Require().NoError(err)
		s.Empty(b.CourseIDs)
	})

	s.Run("deleting a student detaches every course", func() {
		s.Require().NoError(s.store.DeleteStudent(s.ctx, ada.ID))

		c, err := s.store.FindCourse(s.ctx, physics.ID)
		s.Require().NoError(err)
		s.Empty(c.StudentIDs)
	})
}

func (s *contractSuite) TestListStudents() {
	ada := s.createStudent("Ada")
	alan := s.createStudent("Alan")
	grace := s.createStudent("Grace")
	algebra := s.createCourse("Algebra")
	s.enroll(ada.ID, algebra.ID)
	s.enroll(grace.ID, algebra.ID)

	s.Run("all ordered by id", func() {
		got, total, err := s.store.ListStudents(s.ctx, models.StudentFilter{Page: page(10)})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(got, 3)
		s.Equal([]models.StudentID{ada.ID, alan.ID, grace.ID}, []models.StudentID{got[0].ID, got[1].ID, got[2].ID})
		s.Equal([]models.CourseID{algebra.ID}, got[0].CourseIDs)
	})

	s.Run("enrolled in course", func() {
		got, total, err := s.store.ListStudents(s.ctx, models.StudentFilter{CourseID: algebra.ID, Page: page(10)})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Equal(ada.ID, got[0].ID)
		s.Equal(grace.ID, got[1].ID)
	})

	s.Run("without courses", func() {
		got, total, err := s.store.ListStudents(s.ctx, models.StudentFilter{WithoutCourses: true, Page: page(10)})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal(alan.ID, got[0].ID)
	})

	s.Run("second page", func() {
		got, total, err := s.store.ListStudents(s.ctx, models.StudentFilter{Page: models.PageRequest{Page: 1, Size: 2}})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Require().Len(got, 1)
		s.Equal(grace.ID, got[0].ID)
	})

	s.Run("page past the end", func() {
		got, total, err := s.store.ListStudents(s.ctx, models.StudentFilter{Page: models.PageRequest{Page: 5, Size: 2}})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(got)
	})

	s.Run("largest page number", func() {
		req := models.PageRequest{Page: math.MaxInt, Size: 20}
		req.Normalize()
		got, total, err := s.store.ListStudents(s.ctx, models.StudentFilter{Page: req})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Empty(got)
	})
}

func (s *contractSuite) TestListCourses() {
	ada := s.createStudent("Ada")
	algebra := s.createCourse("Algebra")
	physics := s.createCourse("Physics")
	s.enroll(ada.ID, physics.ID)

	got, total, err := s.store.ListCourses(s.ctx, models.CourseFilter{StudentID: ada.ID, Page: page(10)})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(physics.ID, got[0].ID)
	s.Equal([]models.StudentID{ada.ID}, got[0].StudentIDs)

	got, total, err = s.store.ListCourses(s.ctx, models.CourseFilter{WithoutStudents: true, Page: page(10)})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Equal(algebra.ID, got[0].ID)
}
