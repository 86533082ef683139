//go:build linux && cgo

package debuginfod

/*
#cgo pkg-config: libdebuginfod
#cgo CFLAGS: -D_GNU_SOURCE
#cgo LDFLAGS: -ldl
#include <stdlib.h>
#include <string.h>
#include <dlfcn.h>
#include <elfutils/debuginfod.h>

extern int goDebuginfodProgress(debuginfod_client *c, long a, long b);

static void install_progressfn(debuginfod_client *c) {
	debuginfod_set_progressfn(c, goDebuginfodProgress);
}

static void clear_progressfn(debuginfod_client *c) {
	debuginfod_set_progressfn(c, NULL);
}

// Entry points that postdate the oldest libdebuginfod we run against are
// resolved at runtime instead of being linked, so one build works with
// any library version.
static void *sym_set_verbose_fd(void) { return dlsym(RTLD_DEFAULT, "debuginfod_set_verbose_fd"); }
static void *sym_add_http_header(void) { return dlsym(RTLD_DEFAULT, "debuginfod_add_http_header"); }
static void *sym_get_url(void) { return dlsym(RTLD_DEFAULT, "debuginfod_get_url"); }

static void call_set_verbose_fd(void *fn, debuginfod_client *c, int fd) {
	((void (*)(debuginfod_client *, int))fn)(c, fd);
}

static int call_add_http_header(void *fn, debuginfod_client *c, const char *h) {
	return ((int (*)(debuginfod_client *, const char *))fn)(c, h);
}

static const char *call_get_url(void *fn, debuginfod_client *c) {
	return ((const char *(*)(debuginfod_client *))fn)(c);
}
*/
import "C"

import (
	"sync"
	"syscall"
	"unsafe"
)

// progressFns maps native contexts to their installed callbacks. The
// trampoline exported to C looks its context up here.
var (
	progressMu  sync.Mutex
	progressFns = map[*C.debuginfod_client]ProgressFn{}
)

type nativeConn struct {
	handle *C.debuginfod_client
}

func newNativeConnection() (connection, error) {
	handle, err := C.debuginfod_begin()
	if handle == nil {
		errno, ok := err.(syscall.Errno)
		if !ok || errno == 0 {
			errno = syscall.ENOMEM
		}
		return nil, &InitializationError{Errno: errno}
	}
	return &nativeConn{handle: handle}, nil
}

// The find calls never see an empty build ID; the client validates before
// dispatching, so indexing buildID[0] below is safe.

func (n *nativeConn) findDebuginfo(buildID []byte) (int, []byte) {
	var cpath *C.char
	ret := C.debuginfod_find_debuginfo(n.handle,
		(*C.uchar)(unsafe.Pointer(&buildID[0])), C.int(len(buildID)), &cpath)
	return int(ret), copyAndFreePath(ret, cpath)
}

func (n *nativeConn) findExecutable(buildID []byte) (int, []byte) {
	var cpath *C.char
	ret := C.debuginfod_find_executable(n.handle,
		(*C.uchar)(unsafe.Pointer(&buildID[0])), C.int(len(buildID)), &cpath)
	return int(ret), copyAndFreePath(ret, cpath)
}

func (n *nativeConn) findSource(buildID []byte, sourcePath string) (int, []byte) {
	csrc := C.CString(sourcePath)
	defer C.free(unsafe.Pointer(csrc))
	var cpath *C.char
	ret := C.debuginfod_find_source(n.handle,
		(*C.uchar)(unsafe.Pointer(&buildID[0])), C.int(len(buildID)), csrc, &cpath)
	return int(ret), copyAndFreePath(ret, cpath)
}

// copyAndFreePath copies the out path written by a find call into Go
// memory and releases the native buffer. libdebuginfod documents free(3)
// as the release function for these strings, which resolves to the same
// allocator as cgo's C.free.
func copyAndFreePath(ret C.int, cpath *C.char) []byte {
	if ret < 0 || cpath == nil {
		return nil
	}
	path := C.GoBytes(unsafe.Pointer(cpath), C.int(C.strlen(cpath)))
	C.free(unsafe.Pointer(cpath))
	return path
}

func (n *nativeConn) setProgressFn(fn ProgressFn) {
	progressMu.Lock()
	if fn == nil {
		delete(progressFns, n.handle)
	} else {
		progressFns[n.handle] = fn
	}
	progressMu.Unlock()
	if fn == nil {
		C.clear_progressfn(n.handle)
	} else {
		C.install_progressfn(n.handle)
	}
}

func (n *nativeConn) setVerboseFd(fd int) error {
	fp := C.sym_set_verbose_fd()
	if fp == nil {
		return ErrUnsupported
	}
	C.call_set_verbose_fd(fp, n.handle, C.int(fd))
	return nil
}

func (n *nativeConn) addHTTPHeader(header string) error {
	fp := C.sym_add_http_header()
	if fp == nil {
		return ErrUnsupported
	}
	ch := C.CString(header)
	defer C.free(unsafe.Pointer(ch))
	if ret := C.call_add_http_header(fp, n.handle, ch); ret < 0 {
		return &OperationFailedError{Op: "add_http_header", Errno: syscall.Errno(-ret)}
	}
	return nil
}

func (n *nativeConn) url() (string, bool) {
	fp := C.sym_get_url()
	if fp == nil {
		return "", false
	}
	cu := C.call_get_url(fp, n.handle)
	if cu == nil {
		return "", true
	}
	// The string stays owned by the library; copy, never free.
	return C.GoString(cu), true
}

func (n *nativeConn) close() {
	progressMu.Lock()
	delete(progressFns, n.handle)
	progressMu.Unlock()
	C.debuginfod_end(n.handle)
	n.handle = nil
}
