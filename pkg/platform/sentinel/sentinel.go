// Package sentinel holds infrastructure-level facts that stores report.
// Services translate them into domain errors; handlers never see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound means the row or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent writer won; the operation may be retried.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means the backing system could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
