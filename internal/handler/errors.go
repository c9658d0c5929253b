package handler

import (
	"errors"
	"net/http"

	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// sessionError maps a session or service error to its HTTP status and API code.
func sessionError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrSessionActive):
		return http.StatusConflict, response.ErrSessionActive
	case errors.Is(err, service.ErrResultNotFound):
		return http.StatusNotFound, response.ErrResultNotFound
	case errors.Is(err, proctor.ErrLoadFailure):
		return http.StatusBadGateway, response.ErrTestLoadFailed
	case errors.Is(err, proctor.ErrSessionEnded):
		return http.StatusConflict, response.ErrSessionEnded
	case errors.Is(err, proctor.ErrNotInProgress), errors.Is(err, proctor.ErrAlreadyActive):
		return http.StatusConflict, response.ErrSessionNotActive
	case errors.Is(err, proctor.ErrTooEarly):
		return http.StatusConflict, response.ErrSubmitTooEarly
	case errors.Is(err, proctor.ErrNotAwaitingOverride):
		return http.StatusConflict, response.ErrNoOverridePending
	case errors.Is(err, proctor.ErrDismissAfterTimeUp):
		return http.StatusConflict, response.ErrOverrideLocked
	case errors.Is(err, proctor.ErrInvalidPasscode):
		return http.StatusForbidden, response.ErrInvalidPasscode
	case errors.Is(err, proctor.ErrEmptyCode):
		return http.StatusBadRequest, response.ErrEmptyCode
	case errors.Is(err, proctor.ErrUnknownQuestion):
		return http.StatusNotFound, response.ErrUnknownQuestion
	case errors.Is(err, proctor.ErrNotCodingQuestion):
		return http.StatusBadRequest, response.ErrNotCodingQuestion
	default:
		return http.StatusBadGateway, response.ErrPlatformUnavailable
	}
}
