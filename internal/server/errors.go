package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

// inputError marks an error caused by the request itself.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func badInput(err error) error {
	return &inputError{err: err}
}

func statusFor(err error) int {
	var (
		in       *inputError
		parseErr *filter.ParseError
		lexErr   *filter.LexError
		invalid  task.ValidationErrors
	)
	switch {
	case errors.As(err, &in), errors.As(err, &parseErr), errors.As(err, &lexErr),
		errors.As(err, &invalid), errors.Is(err, webhook.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrListNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, webhook.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with {"error": message} and the status err maps to.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func writeStatusError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
