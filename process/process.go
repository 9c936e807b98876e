// Package process provides interfaces and types for locating a process and
// working with its memory.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessNotFound is returned when no running process matches the requested name or PID.
	ErrProcessNotFound = errors.New("process not found")

	// ErrAmbiguousProcess is returned when more than one running process matches the requested name.
	ErrAmbiguousProcess = errors.New("more than one process matches")

	// ErrAccessDenied is returned when the caller lacks the privilege to open or access the process.
	ErrAccessDenied = errors.New("access denied, try running with elevated privileges")

	// ErrProcessExited is returned when the target disappears while it is open.
	ErrProcessExited = errors.New("process exited")

	// ErrNotWritable is returned when a write targets a region that is not writable
	// and has not been unprotected.
	ErrNotWritable = errors.New("memory region not writable")
)
