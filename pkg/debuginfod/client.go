// Package debuginfod binds the elfutils debuginfod client library
// (libdebuginfod.so). A Client owns one native query context and exposes
// typed wrappers for the context's lookup entry points: debug info,
// executable, and source file retrieval by build ID.
//
// Server selection, caching, and retries all live inside the native
// library and are configured through its own environment variables,
// DEBUGINFOD_URLS first among them. This package only marshals calls
// across the boundary and keeps the context's lifetime straight.
//
// A Client is not safe for concurrent use; calls are serialized
// internally, and while a lookup is blocked on network I/O every other
// call on the same Client waits. Run one Client per goroutine when
// lookups must overlap.
package debuginfod

import (
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

// openConnection creates the native context. Overridden in tests.
var openConnection = newNativeConnection

type state int

const (
	stateUninitialized state = iota
	stateActive
	stateClosed
)

// LookupResult is the outcome of a successful find call.
type LookupResult struct {
	// FD is an open, readable descriptor for the local copy of the
	// artifact. Ownership transfers to the caller, who must close it.
	FD int

	// Path is the artifact's location in the native library's cache, as
	// the library reported it. Empty when the library reported none
	// (older libdebuginfod versions).
	Path []byte
}

// Config carries the optional collaborators of a Client. The zero value
// is usable: no logging, no metrics.
type Config struct {
	Logger     log.Logger
	Registerer prometheus.Registerer
}

// Client is one debuginfod query session. Construction is cheap and
// side-effect-free; the native context is created by Begin and released
// by End. A Client moves strictly from unstarted to active to closed and
// never back.
type Client struct {
	logger  log.Logger
	metrics *metrics
	open    func() (connection, error)

	mu      sync.Mutex
	state   state
	conn    connection
	cleanup runtime.Cleanup
}

// New constructs an unstarted Client.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		logger:  logger,
		metrics: newMetrics(cfg.Registerer),
		open:    openConnection,
	}
}

// Begin creates the native query context. It is a no-op on an active
// client, fails with ErrClosed after End, and fails with
// InitializationError when the native library cannot create a context
// (in which case the client stays unstarted and Begin may be retried).
func (c *Client) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateActive:
		return nil
	case stateClosed:
		return ErrClosed
	}
	conn, err := c.open()
	if err != nil {
		return err
	}
	c.conn = conn
	c.state = stateActive
	// Release the native context if the client is dropped while still
	// active. Explicit End remains the documented path; this only stops
	// leaks on abnormal exits.
	c.cleanup = runtime.AddCleanup(c, func(conn connection) { conn.close() }, conn)
	return nil
}

// End releases the native query context. It is idempotent: calling it on
// an unstarted or already-closed client does nothing.
func (c *Client) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return
	}
	c.cleanup.Stop()
	c.conn.close()
	c.conn = nil
	c.state = stateClosed
}

// Close implements io.Closer over End. It never fails.
func (c *Client) Close() error {
	c.End()
	return nil
}

// Do runs fn against a started client and releases the native context on
// every exit path, including panics inside fn.
func (c *Client) Do(fn func(*Client) error) error {
	if err := c.Begin(); err != nil {
		return err
	}
	defer c.End()
	return fn(c)
}

// FindDebuginfo retrieves the debug information for a build ID. The
// native call blocks for the duration of any network I/O.
func (c *Client) FindDebuginfo(id BuildID) (LookupResult, error) {
	return c.find(opDebuginfo, id, "")
}

// FindExecutable retrieves the executable for a build ID.
func (c *Client) FindExecutable(id BuildID) (LookupResult, error) {
	return c.find(opExecutable, id, "")
}

// FindSource retrieves one source file of the binary with the given build
// ID. sourcePath is the file's absolute path as recorded in the binary's
// DWARF info.
func (c *Client) FindSource(id BuildID, sourcePath string) (LookupResult, error) {
	if sourcePath == "" || sourcePath[0] != '/' {
		return LookupResult{}, ErrInvalidSourcePath
	}
	return c.find(opSource, id, sourcePath)
}

func (c *Client) find(op string, id BuildID, sourcePath string) (LookupResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return LookupResult{}, ErrNotInitialized
	}
	if id.Empty() {
		return LookupResult{}, &InvalidBuildIDError{Input: "", Reason: "empty"}
	}

	start := time.Now()
	var ret int
	var path []byte
	switch op {
	case opDebuginfo:
		ret, path = c.conn.findDebuginfo(id.raw)
	case opExecutable:
		ret, path = c.conn.findExecutable(id.raw)
	case opSource:
		ret, path = c.conn.findSource(id.raw, sourcePath)
	}
	elapsed := time.Since(start)

	if ret < 0 {
		errno := syscall.Errno(-ret)
		c.metrics.observe(op, statusForErrno(errno), elapsed)
		level.Debug(c.logger).Log(
			"msg", "lookup failed",
			"op", op,
			"build_id", id.String(),
			"errno", int(errno),
			"err", errno.Error(),
		)
		return LookupResult{}, &OperationFailedError{Op: op, Errno: errno}
	}

	c.metrics.observe(op, statusSuccess, elapsed)
	level.Debug(c.logger).Log(
		"msg", "lookup succeeded",
		"op", op,
		"build_id", id.String(),
		"fd", ret,
		"path", string(path),
		"duration", elapsed,
	)
	return LookupResult{FD: ret, Path: path}, nil
}

// SetProgressFn installs a download progress callback on the native
// context. Passing nil removes a previously installed callback.
func (c *Client) SetProgressFn(fn ProgressFn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return ErrNotInitialized
	}
	c.conn.setProgressFn(fn)
	return nil
}

// SetVerboseFd routes the native library's verbose protocol output to the
// given file descriptor. Fails with ErrUnsupported when the linked
// libdebuginfod predates the entry point.
func (c *Client) SetVerboseFd(fd int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return ErrNotInitialized
	}
	return c.conn.setVerboseFd(fd)
}

// AddHTTPHeader attaches a "Name: value" header to every outgoing request
// of this context. Fails with ErrUnsupported on old libdebuginfod.
func (c *Client) AddHTTPHeader(header string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return ErrNotInitialized
	}
	if !validHeader(header) {
		return &InvalidHeaderError{Header: header}
	}
	return c.conn.addHTTPHeader(header)
}

// URL reports the URL of the most recent download performed by this
// context, or "" when nothing has been downloaded yet. Fails with
// ErrUnsupported on old libdebuginfod.
func (c *Client) URL() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateActive {
		return "", ErrNotInitialized
	}
	u, ok := c.conn.url()
	if !ok {
		return "", ErrUnsupported
	}
	return u, nil
}

func validHeader(h string) bool {
	for i := 0; i < len(h); i++ {
		if h[i] == ':' {
			return i > 0 && i+1 < len(h)
		}
	}
	return false
}
