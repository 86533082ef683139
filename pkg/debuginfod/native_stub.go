//go:build !linux || !cgo

package debuginfod

import "syscall"

// Without cgo and libdebuginfod there is nothing to bind; Begin fails the
// same way a missing server configuration does.
func newNativeConnection() (connection, error) {
	return nil, &InitializationError{Errno: syscall.ENOSYS}
}
