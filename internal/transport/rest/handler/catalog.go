package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"classpulse/internal/service"
)

// CatalogHandler handles instructor / course / tag CRUD endpoints
type CatalogHandler struct {
	catalogSvc *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogSvc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogSvc: catalogSvc}
}

// CreateInstructorRequest is the request body for creating an instructor
type CreateInstructorRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// CreateInstructor handles POST /v1/instructors
func (h *CatalogHandler) CreateInstructor(w http.ResponseWriter, r *http.Request) {
	var req CreateInstructorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	instructor, err := h.catalogSvc.CreateInstructor(r.Context(), req.FirstName, req.LastName, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, instructor)
}

// ListInstructors handles GET /v1/instructors?prefix=<p>
func (h *CatalogHandler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	instructors, err := h.catalogSvc.ListInstructors(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, instructors)
}

// CreateCourseRequest is the request body for creating a course
type CreateCourseRequest struct {
	InstructorID string `json:"instructorId"`
	Department   string `json:"department"`
	Number       string `json:"number"`
	Title        string `json:"title"`
}

// CreateCourse handles POST /v1/courses
func (h *CatalogHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	course, err := h.catalogSvc.CreateCourse(r.Context(), req.InstructorID, req.Department, req.Number, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, course)
}

// ListCourses handles GET /v1/courses?instructor_id=<id>
func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.catalogSvc.ListCourses(r.Context(), r.URL.Query().Get("instructor_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, courses)
}

// CreateTagRequest is the request body for creating a tag
type CreateTagRequest struct {
	CourseID string `json:"courseId"`
	Name     string `json:"name"`
}

// CreateTag handles POST /v1/tags
func (h *CatalogHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.catalogSvc.CreateTag(r.Context(), req.CourseID, req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

// ListTags handles GET /v1/tags?course_id=<id>
func (h *CatalogHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("course_id")
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "course_id is required")
		return
	}

	tags, err := h.catalogSvc.ListTags(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

// ListEngagements handles GET /v1/courses/{id}/engagements
func (h *CatalogHandler) ListEngagements(w http.ResponseWriter, r *http.Request) {
	courseID := mux.Vars(r)["id"]

	sessions, err := h.catalogSvc.ListEngagements(r.Context(), courseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnknownCourse):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
