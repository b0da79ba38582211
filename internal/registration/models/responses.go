package models

import "time"

type StudentResponse struct {
	ID        StudentID  `json:"id"`
	Name      string     `json:"name"`
	Surname   string     `json:"surname"`
	CourseIDs []CourseID `json:"course_ids"`
}

type CourseResponse struct {
	ID          CourseID    `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	StudentIDs  []StudentID `json:"student_ids"`
}

type EnrollmentResponse struct {
	Message    string    `json:"message"`
	StudentID  StudentID `json:"student_id"`
	CourseID   CourseID  `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type PageResponse[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"total_pages"`
}

func ToStudentResponse(s *Student) StudentResponse {
	ids := s.CourseIDs
	if ids == nil {
		ids = []CourseID{}
	}
	return StudentResponse{ID: s.ID, Name: s.Name, Surname: s.Surname, CourseIDs: ids}
}

func ToCourseResponse(c *Course) CourseResponse {
	ids := c.StudentIDs
	if ids == nil {
		ids = []StudentID{}
	}
	return CourseResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		StartDate:   FormatDate(c.StartDate),
		EndDate:     FormatDate(c.EndDate),
		StudentIDs:  ids,
	}
}

// ToPageResponse converts each item of p with fn.
func ToPageResponse[T, R any](p *Page[T], fn func(T) R) PageResponse[R] {
	items := make([]R, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, fn(item))
	}
	return PageResponse[R]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		Size:       p.Size,
		TotalPages: p.TotalPages,
	}
}
