package poller

import (
	"container/heap"
	"sync"
)

// Poller is the process-wide singleton spec.md §9 calls for: one
// mutex, one wake signal, one heap, and one dispatcher goroutine,
// encapsulated in a constructed object rather than package-level
// variables. Construct exactly one with New and call Close when done.
type Poller struct {
	mu   sync.Mutex
	heap targetHeap
	wake chan struct{}

	workers WorkerPool
	tcp     TCPPool
	logger  Logger
	metrics MetricsSink
	clock   Clock

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// New is the Go equivalent of VBP_Init: it builds the mutex/heap/wake
// state and spawns the dispatcher goroutine. logger and metrics may be
// nil to disable those side effects; clock may be nil to use the real
// wall clock.
func New(tcp TCPPool, workers WorkerPool, logger Logger, metrics MetricsSink, clock Clock) *Poller {
	if clock == nil {
		clock = realClock{}
	}
	p := &Poller{
		wake:    make(chan struct{}, 1),
		workers: workers,
		tcp:     tcp,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		done:    make(chan struct{}),
	}
	heap.Init(&p.heap)
	p.wg.Add(1)
	go p.dispatch()
	return p
}

// Close stops the dispatcher goroutine. Targets still registered are
// left as-is; callers should Remove every backend first for a clean
// shutdown.
func (p *Poller) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}
