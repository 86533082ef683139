package debuginfod

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const testBuildID = "18b9a9a8c523e5cfe5b5d946d605d09242f09798"

// stubConn records every call the client dispatches so tests can assert
// both results and that invalid input never crosses the boundary.
type stubConn struct {
	ret  int
	path []byte

	calls      []string
	buildIDs   [][]byte
	sourcePath string
	headers    []string
	verboseFd  int
	progressFn ProgressFn
	closed     int
}

func (s *stubConn) findDebuginfo(buildID []byte) (int, []byte) {
	s.calls = append(s.calls, opDebuginfo)
	s.buildIDs = append(s.buildIDs, buildID)
	return s.ret, s.path
}

func (s *stubConn) findExecutable(buildID []byte) (int, []byte) {
	s.calls = append(s.calls, opExecutable)
	s.buildIDs = append(s.buildIDs, buildID)
	return s.ret, s.path
}

func (s *stubConn) findSource(buildID []byte, sourcePath string) (int, []byte) {
	s.calls = append(s.calls, opSource)
	s.buildIDs = append(s.buildIDs, buildID)
	s.sourcePath = sourcePath
	return s.ret, s.path
}

func (s *stubConn) setProgressFn(fn ProgressFn) { s.progressFn = fn }

func (s *stubConn) setVerboseFd(fd int) error { s.verboseFd = fd; return nil }
func (s *stubConn) addHTTPHeader(h string) error {
	s.headers = append(s.headers, h)
	return nil
}
func (s *stubConn) url() (string, bool) { return "https://example.org/buildid/x/debuginfo", true }
func (s *stubConn) close()              { s.closed++ }

func newStubClient(conn *stubConn) *Client {
	c := New(Config{Logger: log.NewNopLogger()})
	c.open = func() (connection, error) { return conn, nil }
	return c
}

func mustParse(t *testing.T, s string) BuildID {
	t.Helper()
	id, err := ParseBuildID(s)
	require.NoError(t, err)
	return id
}

func TestEndIsIdempotent(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)

	// Before any Begin.
	c.End()
	c.End()
	require.Equal(t, 0, conn.closed)

	require.NoError(t, c.Begin())
	c.End()
	require.Equal(t, 1, conn.closed)

	// After a prior End.
	c.End()
	require.NoError(t, c.Close())
	require.Equal(t, 1, conn.closed)
}

func TestBeginIsNoopWhenActive(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())
	require.NoError(t, c.Begin())
	c.End()
	require.Equal(t, 1, conn.closed)
}

func TestBeginAfterEndFails(t *testing.T) {
	c := newStubClient(&stubConn{})
	require.NoError(t, c.Begin())
	c.End()
	require.ErrorIs(t, c.Begin(), ErrClosed)
}

func TestBeginFailureLeavesClientUnstarted(t *testing.T) {
	c := New(Config{})
	attempts := 0
	c.open = func() (connection, error) {
		attempts++
		if attempts == 1 {
			return nil, &InitializationError{Errno: syscall.ENOMEM}
		}
		return &stubConn{}, nil
	}

	err := c.Begin()
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	require.Equal(t, syscall.ENOMEM, initErr.Errno)

	// Still unstarted, not closed: a retry may succeed.
	require.NoError(t, c.Begin())
}

func TestDoReleasesContextOnFailure(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)
	failure := errors.New("lookup went sideways")
	err := c.Do(func(*Client) error { return failure })
	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, conn.closed)
}

func TestDoReleasesContextOnPanic(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)
	require.Panics(t, func() {
		_ = c.Do(func(*Client) error { panic("boom") })
	})
	require.Equal(t, 1, conn.closed)
}

func TestFindBeforeBeginNeverReachesNative(t *testing.T) {
	conn := &stubConn{ret: 3}
	c := newStubClient(conn)
	id := mustParse(t, testBuildID)

	_, err := c.FindDebuginfo(id)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = c.FindExecutable(id)
	require.ErrorIs(t, err, ErrNotInitialized)
	_, err = c.FindSource(id, "/usr/src/stress.c")
	require.ErrorIs(t, err, ErrNotInitialized)

	require.Empty(t, conn.calls)
}

func TestFindDebuginfoScenario(t *testing.T) {
	cachePath := "/cache/" + testBuildID + "/debuginfo"
	conn := &stubConn{ret: 3, path: []byte(cachePath)}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())

	res, err := c.FindDebuginfo(mustParse(t, testBuildID))
	require.NoError(t, err)
	require.Equal(t, 3, res.FD)
	require.Equal(t, []byte(cachePath), res.Path)

	// The native layer must see the decoded 20 raw bytes, not hex text.
	require.Len(t, conn.buildIDs, 1)
	require.Len(t, conn.buildIDs[0], 20)
	require.Equal(t, mustParse(t, testBuildID).Bytes(), conn.buildIDs[0])
}

func TestNegativeReturnBecomesOperationFailedError(t *testing.T) {
	for _, tc := range []struct {
		ret   int
		errno syscall.Errno
	}{
		{ret: -2, errno: syscall.ENOENT},
		{ret: -38, errno: syscall.ENOSYS},
		{ret: -110, errno: syscall.ETIMEDOUT},
	} {
		t.Run(tc.errno.Error(), func(t *testing.T) {
			conn := &stubConn{ret: tc.ret}
			c := newStubClient(conn)
			require.NoError(t, c.Begin())

			_, err := c.FindExecutable(mustParse(t, testBuildID))
			var opErr *OperationFailedError
			require.ErrorAs(t, err, &opErr)
			require.Equal(t, tc.errno, opErr.Errno)
			require.ErrorIs(t, err, tc.errno)
		})
	}
}

func TestNullPathYieldsEmptyPath(t *testing.T) {
	conn := &stubConn{ret: 4, path: nil}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())

	res, err := c.FindDebuginfo(mustParse(t, testBuildID))
	require.NoError(t, err)
	require.Equal(t, 4, res.FD)
	require.Empty(t, res.Path)
}

func TestFindSource(t *testing.T) {
	conn := &stubConn{ret: 5, path: []byte("/cache/src")}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())
	id := mustParse(t, testBuildID)

	_, err := c.FindSource(id, "")
	require.ErrorIs(t, err, ErrInvalidSourcePath)
	_, err = c.FindSource(id, "relative/path.c")
	require.ErrorIs(t, err, ErrInvalidSourcePath)
	require.Empty(t, conn.calls)

	res, err := c.FindSource(id, "/usr/src/stress-1.0.7-1/src/stress.c")
	require.NoError(t, err)
	require.Equal(t, 5, res.FD)
	require.Equal(t, "/usr/src/stress-1.0.7-1/src/stress.c", conn.sourcePath)
}

func TestEmptyBuildIDRejected(t *testing.T) {
	conn := &stubConn{ret: 3}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())

	_, err := c.FindDebuginfo(RawBuildID(nil))
	var idErr *InvalidBuildIDError
	require.ErrorAs(t, err, &idErr)
	require.Empty(t, conn.calls)
}

func TestFindAfterEndFails(t *testing.T) {
	conn := &stubConn{ret: 3}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())
	c.End()

	_, err := c.FindDebuginfo(mustParse(t, testBuildID))
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Empty(t, conn.calls)
}

func TestAddHTTPHeader(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)
	require.NoError(t, c.Begin())

	for _, bad := range []string{"", "no colon", ": value", "Name:"} {
		err := c.AddHTTPHeader(bad)
		var hdrErr *InvalidHeaderError
		require.ErrorAs(t, err, &hdrErr, "header %q", bad)
	}
	require.Empty(t, conn.headers)

	require.NoError(t, c.AddHTTPHeader("X-Token: secret"))
	require.Equal(t, []string{"X-Token: secret"}, conn.headers)
}

func TestSetProgressFn(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)

	require.ErrorIs(t, c.SetProgressFn(func(int64, int64) bool { return false }), ErrNotInitialized)

	require.NoError(t, c.Begin())
	require.NoError(t, c.SetProgressFn(func(int64, int64) bool { return true }))
	require.NotNil(t, conn.progressFn)
	require.True(t, conn.progressFn(10, 100))
	require.NoError(t, c.SetProgressFn(nil))
	require.Nil(t, conn.progressFn)
}

func TestSetVerboseFdAndURL(t *testing.T) {
	conn := &stubConn{}
	c := newStubClient(conn)

	require.ErrorIs(t, c.SetVerboseFd(2), ErrNotInitialized)
	_, err := c.URL()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, c.Begin())
	require.NoError(t, c.SetVerboseFd(2))
	require.Equal(t, 2, conn.verboseFd)

	u, err := c.URL()
	require.NoError(t, err)
	require.Equal(t, "https://example.org/buildid/x/debuginfo", u)
}

func TestLookupMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(Config{Registerer: reg})
	conn := &stubConn{ret: -2}
	c.open = func() (connection, error) { return conn, nil }
	require.NoError(t, c.Begin())

	_, err := c.FindDebuginfo(mustParse(t, testBuildID))
	require.Error(t, err)

	// One histogram series for the failed lookup.
	n, err := testutil.GatherAndCount(reg, "debuginfod_lookup_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestOperationFailedErrorText(t *testing.T) {
	err := &OperationFailedError{Op: opDebuginfo, Errno: syscall.ENOENT}
	require.Equal(t,
		fmt.Sprintf("debuginfod: debuginfo failed: %s", syscall.ENOENT.Error()),
		err.Error())
}
