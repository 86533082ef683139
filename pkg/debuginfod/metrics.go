package debuginfod

import (
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opDebuginfo  = "debuginfo"
	opExecutable = "executable"
	opSource     = "source"

	statusSuccess = "success"

	statusErrorPrefix = "error:"

	statusErrorNotFound    = statusErrorPrefix + "not_found"
	statusErrorNoServers   = statusErrorPrefix + "no_servers"
	statusErrorNetwork     = statusErrorPrefix + "network"
	statusErrorInterrupted = statusErrorPrefix + "interrupted"
	statusErrorOther       = statusErrorPrefix + "other"
)

type metrics struct {
	lookupDuration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		lookupDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "debuginfod_lookup_duration_seconds",
			Help:    "Time spent in native debuginfod lookups by operation and status",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"op", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.lookupDuration)
	}
	return m
}

func (m *metrics) observe(op, status string, elapsed time.Duration) {
	m.lookupDuration.WithLabelValues(op, status).Observe(elapsed.Seconds())
}

// statusForErrno buckets the errnos libdebuginfod is known to hand back:
// ENOENT for an artifact no configured server has, ENOSYS when
// DEBUGINFOD_URLS is unset, and transport errnos for network trouble.
func statusForErrno(errno syscall.Errno) string {
	switch errno {
	case syscall.ENOENT:
		return statusErrorNotFound
	case syscall.ENOSYS:
		return statusErrorNoServers
	case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH,
		syscall.ENETUNREACH, syscall.ETIMEDOUT:
		return statusErrorNetwork
	case syscall.EINTR:
		return statusErrorInterrupted
	default:
		return statusErrorOther
	}
}
