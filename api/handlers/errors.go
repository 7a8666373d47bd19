package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytdesk/internal/domain"
)

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// classifyError maps a domain error to an HTTP status and a stable kind
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCredentialsExpired):
		return http.StatusUnauthorized, "credentials_expired"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrSessionActive):
		return http.StatusConflict, "session_active"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response"
	case errors.Is(err, domain.ErrLaunchFailure):
		return http.StatusInternalServerError, "launch_failure"
	default:
		return http.StatusBadGateway, "tool_failure"
	}
}

func respondError(c *gin.Context, err error) {
	status, kind := classifyError(err)
	c.Error(err)
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind})
}
