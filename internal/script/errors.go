package script

import (
	"errors"
	"fmt"
)

// Errors for script execution.
var (
	// ErrTimeout is returned when a script runs past its deadline.
	ErrTimeout = errors.New("script execution timeout")

	// ErrOutputLimit is returned when a script prints more than allowed.
	ErrOutputLimit = errors.New("script output limit exceeded")
)

// RunError describes a failed script run.
type RunError struct {
	// Name is the chunk name, usually the script path.
	Name string
	// RunID identifies the run in logs.
	RunID string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	return fmt.Sprintf("script %s (run %s): %v", e.Name, e.RunID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}
