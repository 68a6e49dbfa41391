package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"classpulse/internal/live"
	"classpulse/internal/service"
)

// SessionHandler handles live session endpoints
type SessionHandler struct {
	sessionSvc *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionSvc *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// Create handles GET /create_session. Responds with the new 6-character
// session code as a JSON string.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	phrase := r.URL.Query().Get("phrase")
	courseID := r.URL.Query().Get("course_id")
	if courseID == "" {
		writeError(w, http.StatusBadRequest, "course_id is required")
		return
	}

	meta, err := h.sessionSvc.CreateSession(r.Context(), courseID, phrase)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPhrase):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUnknownCourse):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, meta.Code)
}

// Get handles GET /v1/sessions/{code}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	meta, err := h.sessionSvc.GetSession(r.Context(), code)
	if err != nil {
		if errors.Is(err, live.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// End handles POST /v1/sessions/{code}/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	archive, err := h.sessionSvc.EndSession(r.Context(), code)
	if err != nil {
		if errors.Is(err, live.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, archive)
}
