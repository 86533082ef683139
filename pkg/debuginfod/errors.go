package debuginfod

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrNotInitialized is returned by lookup calls on a client that has
	// not been started with Begin.
	ErrNotInitialized = errors.New("debuginfod: client not started")

	// ErrClosed is returned by Begin on a client that was already ended.
	// A closed client cannot be reopened; construct a new one.
	ErrClosed = errors.New("debuginfod: client closed")

	// ErrUnsupported is returned when the linked libdebuginfod predates
	// the requested entry point.
	ErrUnsupported = errors.New("debuginfod: not supported by linked libdebuginfod")

	// ErrInvalidSourcePath is returned by FindSource when the source path
	// is empty or not absolute.
	ErrInvalidSourcePath = errors.New("debuginfod: source path must be a non-empty absolute path")
)

// InitializationError reports that debuginfod_begin returned a NULL
// context. The client stays unstarted; Begin may be retried.
type InitializationError struct {
	Errno syscall.Errno
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("debuginfod: creating client context: %s", e.Errno.Error())
}

func (e *InitializationError) Unwrap() error { return e.Errno }

// InvalidBuildIDError reports a build ID that could not be decoded to raw
// bytes. It is raised before any native call is made.
type InvalidBuildIDError struct {
	Input  string
	Reason string
}

func (e *InvalidBuildIDError) Error() string {
	return fmt.Sprintf("debuginfod: invalid build ID %q: %s", e.Input, e.Reason)
}

// InvalidHeaderError reports an HTTP header that is not of the
// "Name: value" form libdebuginfod requires.
type InvalidHeaderError struct {
	Header string
}

func (e *InvalidHeaderError) Error() string {
	return fmt.Sprintf("debuginfod: malformed HTTP header %q, want \"Name: value\"", e.Header)
}

// OperationFailedError reports a negative return from a native find call,
// decoded to the errno the library set. Callers branch on Errno, typically
// through errors.Is(err, syscall.ENOENT) for "not found upstream".
type OperationFailedError struct {
	Op    string
	Errno syscall.Errno
}

func (e *OperationFailedError) Error() string {
	return fmt.Sprintf("debuginfod: %s failed: %s", e.Op, e.Errno.Error())
}

func (e *OperationFailedError) Unwrap() error { return e.Errno }
