// Package apperr defines the error taxonomy shared by the service layer and
// the HTTP handlers.
package apperr

import "errors"

var (
	// ErrInvalidArgument marks malformed or missing input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound covers both a missing resource and an unauthorized lookup;
	// the two are deliberately indistinguishable so existence never leaks.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks an authenticated caller acting on a resource that
	// is not theirs.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict marks a duplicate resource.
	ErrConflict = errors.New("conflict")
	// ErrInternal wraps unexpected store or transport failures.
	ErrInternal = errors.New("internal error")
)

// Wrap ties a low-level cause to one of the sentinel errors above so callers
// can match with errors.Is while logs keep the cause.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return &wrapped{sentinel: sentinel, cause: cause}
}

type wrapped struct {
	sentinel error
	cause    error
}

func (w *wrapped) Error() string { return w.sentinel.Error() + ": " + w.cause.Error() }

func (w *wrapped) Is(target error) bool { return errors.Is(w.sentinel, target) }

func (w *wrapped) Unwrap() error { return w.cause }
