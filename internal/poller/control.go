package poller

import (
	"container/heap"
	"errors"

	"github.com/hirsh012/varnish-cache/internal/domain"
	"github.com/hirsh012/varnish-cache/internal/tcppool"
)

// ErrNoProbe is returned by Control/Status/Remove when the backend has
// no Target attached (never Inserted, or already Removed).
var ErrNoProbe = errors.New("poller: backend has no attached probe")

// Insert builds a Target for backend, seeds its history per spec,
// and enables it — spec.md §4.6. hostHeader is used by the request
// builder when spec.Request is empty.
func (p *Poller) Insert(backend *domain.Backend, spec domain.ProbeSpec, hostHeader string) (*Target, error) {
	resolved := spec.WithDefaults()

	if backend.Address4 == "" && backend.Address6 == "" {
		return nil, tcppool.ErrNoAddress
	}

	handle, err := p.tcp.Ref(backend.Address4, backend.Address6)
	if err != nil {
		return nil, err
	}

	t := &Target{
		spec:       resolved,
		hostHeader: hostHeader,
		backend:    backend,
		pool:       p.tcp,
		poolHandle: handle,
		req:        buildRequest(resolved, hostHeader),
		heapIdx:    sentinelHeapIdx,
		owner:      p,
	}

	// Seed `initial` synthetic happy samples so a newly inserted
	// backend does not falsely appear sick. The loop mirrors the
	// observable outcome of cache_backend_poll.c's VBP_Insert (a
	// freshly built bitmap with exactly `initial` ones in its low
	// bits) rather than its exact, slightly redundant call sequence —
	// see DESIGN.md for the open-question resolution.
	for i := 0; i < resolved.Initial; i++ {
		t.startPoke()
		t.bitmaps[fieldHappy] |= 1
		t.hasPoked()
	}
	backend.AttachProbe(t)
	t.hasPoked()

	if err := p.Control(backend, true); err != nil {
		return nil, err
	}
	return t, nil
}

// Remove detaches backend from its Target and either frees it
// immediately (idle) or hands ownership to the in-flight task
// (running), per spec.md §4.6 and the tri-state running handoff in
// Design Notes §9.
func (p *Poller) Remove(backend *domain.Backend) error {
	handle := backend.Probe()
	t, ok := handle.(*Target)
	if !ok || t == nil {
		return ErrNoProbe
	}

	p.mu.Lock()
	backend.SetHealth(true, backend.HealthChanged()) // defensive: mark healthy, don't stamp a change
	backend.DetachProbe()
	t.backend = nil

	if t.heapIdx != sentinelHeapIdx {
		heap.Remove(&p.heap, t.heapIdx)
	}

	doomed := false
	if t.running != runningIdle {
		t.running = runningDoomed
		doomed = true
	}
	p.mu.Unlock()

	if !doomed {
		p.tcp.Release(t.poolHandle)
	}
	// If doomed, the in-flight task (see task.go) releases the pool
	// handle and drops the Target on exit.
	return nil
}

// Control enables or disables an already-inserted backend's probe:
// enable places it on the scheduler heap at due=now (and wakes the
// dispatcher); disable removes it. Must be called from the same
// single-threaded control-plane caller the CLI/VCL loader uses —
// spec.md §4.6 requires the "CLI thread" invariant.
func (p *Poller) Control(backend *domain.Backend, enable bool) error {
	handle := backend.Probe()
	t, ok := handle.(*Target)
	if !ok || t == nil {
		return ErrNoProbe
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if enable {
		if t.heapIdx != sentinelHeapIdx {
			panic("poller: Enable called on a Target already on the heap")
		}
		t.due = p.clock.Now()
		heap.Push(&p.heap, t)
		p.signalWake()
	} else {
		if t.heapIdx == sentinelHeapIdx {
			panic("poller: Disable called on a Target not on the heap")
		}
		heap.Remove(&p.heap, t.heapIdx)
	}
	return nil
}
