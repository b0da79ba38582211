package handler

import (
	"net/http"
	"strings"

	"registrar/internal/registration/models"
	"registrar/pkg/platform/httputil"
)

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.StudentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "create student", err)
		return
	}
	student, err := h.service.CreateStudent(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, "create student", err)
		return
	}
	w.Header().Set("Location", "/students/"+student.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, models.ToStudentResponse(student))
}

func (h *Handler) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathStudentID(r)
	if err != nil {
		h.writeError(w, r, "get student", err)
		return
	}
	student, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get student", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToStudentResponse(student))
}

func (h *Handler) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathStudentID(r)
	if err != nil {
		h.writeError(w, r, "update student", err)
		return
	}
	var req models.StudentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "update student", err)
		return
	}
	student, err := h.service.UpdateStudent(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, r, "update student", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToStudentResponse(student))
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := pathStudentID(r)
	if err != nil {
		h.writeError(w, r, "delete student", err)
		return
	}
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.writeError(w, r, "delete student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListStudents serves GET /students?course_id=&without_courses=&page=&size=.
func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	var filter models.StudentFilter
	var err error
	if raw := strings.TrimSpace(r.URL.Query().Get("course_id")); raw != "" {
		if filter.CourseID, err = models.ParseCourseID(raw); err != nil {
			h.writeError(w, r, "list students", err)
			return
		}
	}
	if filter.WithoutCourses, err = queryBool(r, "without_courses"); err != nil {
		h.writeError(w, r, "list students", err)
		return
	}
	if filter.Page, err = parsePage(r); err != nil {
		h.writeError(w, r, "list students", err)
		return
	}

	page, err := h.service.ListStudents(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "list students", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToPageResponse(page, models.ToStudentResponse))
}
