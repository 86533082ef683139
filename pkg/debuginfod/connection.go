package debuginfod

// ProgressFn is called periodically while the native library downloads an
// artifact. downloaded/total describe the transfer so far; total is zero
// until the library knows the full size. Returning true aborts the
// download, which surfaces as an OperationFailedError from the find call.
type ProgressFn func(downloaded, total int64) (stop bool)

// connection is the libdebuginfod surface the client drives: one native
// context handle and the entry points bound to it. The cgo implementation
// lives in native_cgo.go; tests substitute a recording stub.
//
// The find methods return the raw native result: a non-negative value is a
// file descriptor owned by the caller, a negative value is -errno. The
// path is already copied out of the native buffer (and the buffer freed),
// or nil when the library reported none. Decoding negative results into
// errors is the client's job, not the connection's.
type connection interface {
	findDebuginfo(buildID []byte) (ret int, path []byte)
	findExecutable(buildID []byte) (ret int, path []byte)
	findSource(buildID []byte, sourcePath string) (ret int, path []byte)

	setProgressFn(fn ProgressFn)
	setVerboseFd(fd int) error
	addHTTPHeader(header string) error
	url() (string, bool)

	close()
}
