package poller

import (
	"sync/atomic"
	"time"

	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/tcppool"
)

// sentinelHeapIdx marks a Target that is not currently on the
// scheduler's heap (invariant 2, spec.md §3/§8).
const sentinelHeapIdx = -1

// running states (spec.md §3 invariant 3-4).
const (
	runningIdle   = 0
	runningActive = 1
	runningDoomed = -1
)

// Target owns a Backend's live probe state: its ProbeSpec, its TCP
// pool reference, the precomputed request bytes, the seven history
// bitmaps, the EMA of good-probe RTT, and the scheduling/lifecycle
// fields the dispatcher and control surface manipulate. A Target
// holds a non-owning back-reference to the Backend it reports to —
// never the other way around.
type Target struct {
	spec       domain.ProbeSpec
	hostHeader string

	backend *domain.Backend

	pool       TCPPool
	poolHandle tcppool.Handle

	req []byte

	respBuf [128]byte
	respLen int

	bitmaps [numFields]uint64

	// last and avg are seconds, mirroring the C source's `double
	// last, avg` — kept as float64 rather than time.Duration so the
	// EMA arithmetic in aggregate.go reads the same as vbp_has_poked.
	last float64
	avg  float64
	rate float64
	good int

	// publishedHappy mirrors bitmaps[fieldHappy] as of the last
	// completed hasPoked call, readable lock-free through Happy() —
	// spec.md §4.3(d): "Publish happy into the backend's statistics
	// block."
	publishedHappy atomic.Uint64

	due     time.Time
	heapIdx int
	running int

	owner *Poller
}

// avgRate caps the exponential-average denominator; spec.md §3: "rate
// ... caps at AVG_RATE = 4".
const avgRate = 4

// Happy implements domain.ProbeHandle.
func (t *Target) Happy() uint64 {
	return t.publishedHappy.Load()
}

// GoodCount returns the most recently computed good-probe count
// (popcount of happy over the window), for callers that want the raw
// number alongside Happy()'s bitmap. Safe to call from any goroutine;
// reads a value only ever written under the poller's global mutex.
func (t *Target) GoodCount() int {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.good
}
