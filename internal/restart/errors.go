package restart

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means the target is incomplete; nothing was mutated.
	ErrConfiguration = errors.New("invalid restart target")
	// ErrNotFound means the space or application does not exist; nothing was
	// mutated.
	ErrNotFound = errors.New("application not found")
	// ErrStagingFailed means the controller reported the package as FAILED.
	ErrStagingFailed = errors.New("app staging failed")
)

// Error is a fatal restart failure and the phase it happened in.
type Error struct {
	App   string
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.App == "" {
		return fmt.Sprintf("restart failed at %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("restart %q failed at %s: %v", e.App, e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
