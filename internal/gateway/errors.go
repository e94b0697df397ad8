package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record is absent from both tiers.
	ErrNotFound = errors.New("not found")
	// ErrShadowSync means the owner copy was saved but the public shadow
	// could not be brought in line with it.
	ErrShadowSync = errors.New("public shadow out of sync")
)

// WriteError reports a remote write that failed after the local snapshot was
// already updated. The change is visible on this device only.
type WriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// IsWriteError reports whether err carries a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
