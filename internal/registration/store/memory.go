package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"registrar/internal/registration/models"
	"registrar/pkg/platform/sentinel"
)

// InMemoryStore keeps students, courses and both sides of every enrollment in
// maps. It hands out clones so callers never alias stored sets.
type InMemoryStore struct {
	mu            sync.RWMutex
	students      map[models.StudentID]*models.Student
	courses       map[models.CourseID]*models.Course
	nextStudentID models.StudentID
	nextCourseID  models.CourseID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		students: make(map[models.StudentID]*models.Student),
		courses:  make(map[models.CourseID]*models.Course),
	}
}

func (s *InMemoryStore) CreateStudent(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextStudentID++
	student.ID = s.nextStudentID
	student.CourseIDs = nil
	s.students[student.ID] = student.Clone()
	return nil
}

func (s *InMemoryStore) UpdateStudent(_ context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.students[student.ID]
	if !ok {
		return fmt.Errorf("student %d: %w", student.ID, sentinel.ErrNotFound)
	}
	existing.Name = student.Name
	existing.Surname = student.Surname
	return nil
}

func (s *InMemoryStore) FindStudent(_ context.Context, id models.StudentID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, ok := s.students[id]
	if !ok {
		return nil, fmt.Errorf("student %d: %w", id, sentinel.ErrNotFound)
	}
	return student.Clone(), nil
}

// DeleteStudent detaches the student from every course before removing it.
func (s *InMemoryStore) DeleteStudent(_ context.Context, id models.StudentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, ok := s.students[id]
	if !ok {
		return fmt.Errorf("student %d: %w", id, sentinel.ErrNotFound)
	}
	for _, courseID := range slices.Clone(student.CourseIDs) {
		if course, ok := s.courses[courseID]; ok {
			models.Detach(student, course)
		}
	}
	delete(s.students, id)
	return nil
}

func (s *InMemoryStore) ListStudents(_ context.Context, filter models.StudentFilter) ([]*models.Student, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Student, 0, len(s.students))
	for _, student := range s.students {
		if !filter.CourseID.IsZero() && !student.IsEnrolledIn(filter.CourseID) {
			continue
		}
		if filter.WithoutCourses && student.CourseCount() > 0 {
			continue
		}
		matched = append(matched, student)
	}
	slices.SortFunc(matched, func(a, b *models.Student) int { return cmp.Compare(a.ID, b.ID) })

	page := pageOf(matched, filter.Page)
	out := make([]*models.Student, 0, len(page))
	for _, student := range page {
		out = append(out, student.Clone())
	}
	return out, len(matched), nil
}

func (s *InMemoryStore) CreateCourse(_ context.Context, course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextCourseID++
	course.ID = s.nextCourseID
	course.StudentIDs = nil
	s.courses[course.ID] = course.Clone()
	return nil
}

func (s *InMemoryStore) UpdateCourse(_ context.Context, course *models.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.courses[course.ID]
	if !ok {
		return fmt.Errorf("course %d: %w", course.ID, sentinel.ErrNotFound)
	}
	existing.Name = course.Name
	existing.Description = course.Description
	existing.StartDate = course.StartDate
	existing.EndDate = course.EndDate
	return nil
}

func (s *InMemoryStore) FindCourse(_ context.Context, id models.CourseID) (*models.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	course, ok := s.courses[id]
	if !ok {
		return nil, fmt.Errorf("course %d: %w", id, sentinel.ErrNotFound)
	}
	return course.Clone(), nil
}

// DeleteCourse removes the course from every student's set before removing it.
func (s *InMemoryStore) DeleteCourse(_ context.Context, id models.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, ok := s.courses[id]
	if !ok {
		return fmt.Errorf("course %d: %w", id, sentinel.ErrNotFound)
	}
	for _, studentID := range slices.Clone(course.StudentIDs) {
		if student, ok := s.students[studentID]; ok {
			models.Detach(student, course)
		}
	}
	delete(s.courses, id)
	return nil
}

func (s *InMemoryStore) ListCourses(_ context.Context, filter models.CourseFilter) ([]*models.Course, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Course, 0, len(s.courses))
	for _, course := range s.courses {
		if !filter.StudentID.IsZero() && !course.HasStudent(filter.StudentID) {
			continue
		}
		if filter.WithoutStudents && course.StudentCount() > 0 {
			continue
		}
		matched = append(matched, course)
	}
	slices.SortFunc(matched, func(a, b *models.Course) int { return cmp.Compare(a.ID, b.ID) })

	page := pageOf(matched, filter.Page)
	out := make([]*models.Course, 0, len(page))
	for _, course := range page {
		out = append(out, course.Clone())
	}
	return out, len(matched), nil
}

// SaveEnrollment records the pair on both sides. Saving an existing pair is a no-op.
func (s *InMemoryStore) SaveEnrollment(_ context.Context, e models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, course, err := s.pair(e.StudentID, e.CourseID)
	if err != nil {
		return err
	}
	models.Attach(student, course)
	return nil
}

func (s *InMemoryStore) DeleteEnrollment(_ context.Context, studentID models.StudentID, courseID models.CourseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, course, err := s.pair(studentID, courseID)
	if err != nil {
		return err
	}
	if !models.Detach(student, course) {
		return fmt.Errorf("enrollment %d/%d: %w", studentID, courseID, sentinel.ErrNotFound)
	}
	return nil
}

// pair must be called while holding s.mu.
func (s *InMemoryStore) pair(studentID models.StudentID, courseID models.CourseID) (*models.Student, *models.Course, error) {
	student, ok := s.students[studentID]
	if !ok {
		return nil, nil, fmt.Errorf("student %d: %w", studentID, sentinel.ErrNotFound)
	}
	course, ok := s.courses[courseID]
	if !ok {
		return nil, nil, fmt.Errorf("course %d: %w", courseID, sentinel.ErrNotFound)
	}
	return student, course, nil
}

func pageOf[T any](items []T, req models.PageRequest) []T {
	offset := req.Offset()
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := min(offset+req.Size, len(items))
	return items[offset:end]
}
