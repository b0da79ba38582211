package handler

import (
	"net/http"

	"registrar/internal/registration/models"
	"registrar/pkg/platform/httputil"
)

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "enroll", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, "enroll", err)
		return
	}

	enrollment, err := h.service.Enroll(r.Context(), req.StudentID, req.CourseID)
	if err != nil {
		h.writeError(w, r, "enroll", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.EnrollmentResponse{
		Message:    "student enrolled",
		StudentID:  enrollment.StudentID,
		CourseID:   enrollment.CourseID,
		EnrolledAt: enrollment.EnrolledAt,
	})
}

func (h *Handler) handleUnenroll(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, r, "unenroll", err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, "unenroll", err)
		return
	}

	if err := h.service.Unenroll(r.Context(), req.StudentID, req.CourseID); err != nil {
		h.writeError(w, r, "unenroll", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
