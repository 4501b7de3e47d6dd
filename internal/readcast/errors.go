package readcast

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream service failed")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

// SaveError is a persistence failure. DocumentGenerated tells callers the
// study document itself was produced and only storing it (or an export) failed.
type SaveError struct {
	Stage             string
	DocumentGenerated bool
	Err               error
}

func (e *SaveError) Error() string {
	if e.DocumentGenerated {
		return fmt.Sprintf("document generated but not saved (%s): %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("save failed (%s): %v", e.Stage, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func saveErr(stage string, generated bool, err error) error {
	return &SaveError{Stage: stage, DocumentGenerated: generated, Err: err}
}
