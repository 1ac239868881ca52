package poller

import (
	"time"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

// newTestPoller builds a Poller wired to fakes and never starts a real
// dispatcher goroutine loop iteration implicitly — New always spawns
// dispatch(), but with an empty heap and a fake clock it just parks on
// idleCap/p.wake/p.done until Close or a Control call wakes it.
func newTestPoller(clock *fakeClock, tcp *fakeTCPPool, workers *fakeWorkerPool, logger Logger, metrics MetricsSink) *Poller {
	return New(tcp, workers, logger, metrics, clock)
}

// newBareTarget builds a Target attached to p and backend without
// going through Insert/Control, for tests that exercise poke/startPoke/
// hasPoked directly.
func newBareTarget(p *Poller, backend *domain.Backend, spec domain.ProbeSpec, pool TCPPool) *Target {
	resolved := spec.WithDefaults()
	return &Target{
		spec:       resolved,
		backend:    backend,
		pool:       pool,
		req:        buildRequest(resolved, ""),
		heapIdx:    sentinelHeapIdx,
		owner:      p,
	}
}

func baseSpec() domain.ProbeSpec {
	return domain.ProbeSpec{
		Timeout:        time.Second,
		Interval:       time.Second,
		Window:         8,
		Threshold:      3,
		Initial:        domain.InitialUnset,
		ExpectedStatus: 200,
	}
}
