// Package poller is the concurrent backend health poller: a
// priority-timed scheduler driving many independent probe timelines, a
// raw-TCP probe protocol, a sliding-bitmap aggregator with exponential
// smoothing, and the insertion/removal lifecycle tying it all to
// request routing. It is a straight port of Varnish's
// cache_backend_poll.c — the thread owns the health information, which
// the backend references, rather than the other way around.
package poller

import (
	"net"
	"time"

	"github.com/hirsh012/varnish-cache/internal/tcppool"
	"github.com/hirsh012/varnish-cache/internal/workerpool"
)

// TCPPool is the connection-pool collaborator the poller consumes. It
// is satisfied by *internal/tcppool.Pool.
type TCPPool interface {
	Ref(addr4, addr6 string) (tcppool.Handle, error)
	Release(h tcppool.Handle)
	Open(h tcppool.Handle, deadline time.Time) (net.Conn, net.Addr, error)
}

// WorkerPool is the worker-thread-pool collaborator. It is satisfied
// by *internal/workerpool.Pool.
type WorkerPool interface {
	Submit(task func(), priority workerpool.Priority) bool
}

// Logger is the structured log sink collaborator, keyed by a
// backend-health tag (SLT_Backend_health in Varnish terms). It is
// satisfied by *internal/logging.BackendHealthLogger.
type Logger interface {
	BackendHealth(fields ...any)
}

// MetricsSink optionally receives per-probe gauge updates. Passing nil
// to New disables metrics publication entirely.
type MetricsSink interface {
	SetBackendHealth(displayName string, healthy bool, good, threshold, window int)
}

// Clock abstracts wall-clock time so tests can control probe timing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
