package handler

import (
	"net/http"
	"strings"

	"registrar/internal/registration/models"
	"registrar/pkg/platform/httputil"
)

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CourseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "create course", err)
		return
	}
	course, err := h.service.CreateCourse(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, "create course", err)
		return
	}
	w.Header().Set("Location", "/courses/"+course.ID.String())
	httputil.WriteJSON(w, http.StatusCreated, models.ToCourseResponse(course))
}

func (h *Handler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathCourseID(r)
	if err != nil {
		h.writeError(w, r, "get course", err)
		return
	}
	course, err := h.service.GetCourse(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get course", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToCourseResponse(course))
}

func (h *Handler) handleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathCourseID(r)
	if err != nil {
		h.writeError(w, r, "update course", err)
		return
	}
	var req models.CourseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "update course", err)
		return
	}
	course, err := h.service.UpdateCourse(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, r, "update course", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToCourseResponse(course))
}

func (h *Handler) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, err := pathCourseID(r)
	if err != nil {
		h.writeError(w, r, "delete course", err)
		return
	}
	if err := h.service.DeleteCourse(r.Context(), id); err != nil {
		h.writeError(w, r, "delete course", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListCourses serves GET /courses?student_id=&without_students=&page=&size=.
func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	var filter models.CourseFilter
	var err error
	if raw := strings.TrimSpace(r.URL.Query().Get("student_id")); raw != "" {
		if filter.StudentID, err = models.ParseStudentID(raw); err != nil {
			h.writeError(w, r, "list courses", err)
			return
		}
	}
	if filter.WithoutStudents, err = queryBool(r, "without_students"); err != nil {
		h.writeError(w, r, "list courses", err)
		return
	}
	if filter.Page, err = parsePage(r); err != nil {
		h.writeError(w, r, "list courses", err)
		return
	}

	page, err := h.service.ListCourses(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, "list courses", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToPageResponse(page, models.ToCourseResponse))
}
