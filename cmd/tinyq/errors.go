package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/tinyq/pkg/tensor"
)

const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitAllocation   = 3
)

// errInvalidInput marks command-line input that could not be used.
var errInvalidInput = errors.New("invalid input")

func exitCode(err error) int {
	var ec cli.ExitCoder
	switch {
	case err == nil:
		return 0
	case errors.As(err, &ec):
		return ec.ExitCode()
	case errors.Is(err, tensor.ErrAllocation):
		return exitAllocation
	case errors.Is(err, errInvalidInput),
		errors.Is(err, tensor.ErrTypeMismatch),
		errors.Is(err, tensor.ErrShapeMismatch),
		errors.Is(err, tensor.ErrInvalidScale),
		errors.Is(err, tensor.ErrIndexOutOfRange):
		return exitInvalidInput
	default:
		return exitFailure
	}
}

// invalidInput tags err as invalid input while keeping it in the chain.
func invalidInput(err error) error {
	return fmt.Errorf("%w: %w", errInvalidInput, err)
}

// exitError carries an exit status for urfave/cli without dropping the
// underlying error.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return "error: " + e.err.Error() }
func (e *exitError) ExitCode() int { return e.code }
func (e *exitError) Unwrap() error { return e.err }

var _ cli.ExitCoder = (*exitError)(nil)

// exitErr wraps err so urfave/cli exits with the matching status.
func exitErr(err error) error {
	return &exitError{err: err, code: exitCode(err)}
}
