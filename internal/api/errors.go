package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Echelon133/Blobb/internal/social"
	"github.com/Echelon133/Blobb/internal/store"
)

// Error is the wire shape of every failed response. The status code
// travels in the HTTP header, not the body.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// respondError maps engine error kinds onto HTTP statuses. The engine
// wraps the offending id into the message, so it is forwarded as-is.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, social.ErrInvalidPagination),
		errors.Is(err, social.ErrSelfFollow):
		status = http.StatusBadRequest
	case errors.Is(err, social.ErrNotAuthor):
		status = http.StatusForbidden
	case errors.Is(err, social.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, social.ErrUsernameTaken):
		status = http.StatusConflict
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, NewError(status, err.Error()))
}
