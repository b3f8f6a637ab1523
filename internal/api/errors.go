package api

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/samcharles93/tinyq/pkg/tensor"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps an error to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tensor.ErrTypeMismatch),
		errors.Is(err, tensor.ErrShapeMismatch),
		errors.Is(err, tensor.ErrInvalidScale),
		errors.Is(err, tensor.ErrIndexOutOfRange):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, tensor.ErrAllocation):
		return http.StatusRequestEntityTooLarge, "allocation_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
