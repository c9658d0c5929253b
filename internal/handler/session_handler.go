package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// TerminateRequest is the body of a supervisor termination.
type TerminateRequest struct {
	Reason string `json:"reason" binding:"required,max=200"`
}

// SessionHandler exposes live session state over REST.
type SessionHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// GetSession godoc
// GET /api/v1/student/sessions/:session_id
// Returns the current view of the caller's own live session.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id := c.Param("session_id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, ok := h.sessions.Get(id)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	if !strings.EqualFold(sess.Student().Email, claims.Email) {
		response.Fail(c, http.StatusForbidden, response.ErrNotSessionOwner)
		return
	}

	response.Success(c, http.StatusOK, sess.View())
}

// TerminateSession godoc
// POST /api/v1/supervisor/sessions/:session_id/terminate
// Ends a live session with the given reason. The result is compiled and persisted.
func (h *SessionHandler) TerminateSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id := c.Param("session_id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req TerminateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, ok := h.sessions.Get(id)
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	if !sess.Terminate(req.Reason) {
		response.Fail(c, http.StatusConflict, response.ErrSessionEnded)
		return
	}

	h.log.Info().
		Str("session_id", id).
		Str("supervisor", claims.Email).
		Str("reason", req.Reason).
		Msg("Session terminated by supervisor")

	response.Success(c, http.StatusOK, gin.H{
		"session_id": id,
		"state":      sess.State(),
		"reason":     sess.Reason(),
	})
}
