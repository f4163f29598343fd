package executor

import (
	"fmt"
	"time"
)

// TimeoutError reports a command that did not complete within its bound.
// The remote process may still be running.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q did not complete within %s", e.Command, e.Timeout)
}

// ConnectionError reports that the remote sandbox became unreachable
// mid-operation.
type ConnectionError struct {
	RemoteID string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("sandbox %s unreachable: %v", e.RemoteID, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
