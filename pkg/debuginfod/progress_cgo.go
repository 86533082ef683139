//go:build linux && cgo

package debuginfod

/*
#include <elfutils/debuginfod.h>
*/
import "C"

// goDebuginfodProgress is the single progress callback handed to the
// native library. It dispatches to the Go function registered for the
// context; a nonzero return tells the library to abort the download.
//
//export goDebuginfodProgress
func goDebuginfodProgress(c *C.debuginfod_client, a C.long, b C.long) C.int {
	progressMu.Lock()
	fn := progressFns[c]
	progressMu.Unlock()
	if fn == nil {
		return 0
	}
	if fn(int64(a), int64(b)) {
		return 1
	}
	return 0
}
