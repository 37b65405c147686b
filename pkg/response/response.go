package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planmyoutings/backend/internal/apperrors"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err, Code: string(apperrors.KindValidation)})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err, Code: string(apperrors.KindUnauthenticated)})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err, Code: string(apperrors.KindInternal)})
}

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindNotFound:         http.StatusNotFound,
	apperrors.KindDuplicateVote:    http.StatusConflict,
	apperrors.KindAuthorization:    http.StatusForbidden,
	apperrors.KindTransientStorage: http.StatusServiceUnavailable,
	apperrors.KindValidation:       http.StatusBadRequest,
	apperrors.KindConflict:         http.StatusConflict,
	apperrors.KindUnauthenticated:  http.StatusUnauthorized,
	apperrors.KindInternal:         http.StatusInternalServerError,
}

// Error writes err as a structured failure. Errors without a kind become a generic 500 so no
// internal detail reaches the client.
func Error(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		Internal(c, "internal server error")
		return
	}
	status, ok := statusByKind[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, Body{Success: false, Error: appErr.Message, Code: string(appErr.Kind)})
}
