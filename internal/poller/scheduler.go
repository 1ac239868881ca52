package poller

import (
	"container/heap"
	"time"

	"github.com/hirsh012/varnish-cache/internal/workerpool"
)

// idleCap is the dispatcher's watchdog: when the heap is empty it
// still wakes this often, so Enable's wake signal is never the sole
// unblocker. spec.md §4.4 / Design Notes: "The 8.192s idle cap is a
// crude watchdog".
const idleCap = 8192 * time.Millisecond

// targetHeap is a container/heap.Interface ordered by Target.due — the
// Go equivalent of binary_heap.h's vbp_heap, with Swap/Push/Pop
// keeping each Target's heapIdx current exactly as vbp_update does.
type targetHeap []*Target

func (h targetHeap) Len() int { return len(h) }

func (h targetHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }

func (h targetHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIdx = i
	h[j].heapIdx = j
}

func (h *targetHeap) Push(x any) {
	t := x.(*Target)
	t.heapIdx = len(*h)
	*h = append(*h, t)
}

func (h *targetHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.heapIdx = sentinelHeapIdx
	*h = old[:n-1]
	return t
}

// dispatch is the single dedicated dispatcher goroutine (vbp_thread).
// It selects the next due Target, marks it running, reschedules it,
// and submits its task to the worker pool — all under p.mu except for
// the submission itself and the wait.
func (p *Poller) dispatch() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		now := p.clock.Now()

		var due *Target
		var wait time.Duration

		if p.heap.Len() == 0 {
			wait = idleCap
		} else if root := p.heap[0]; root.due.After(now) {
			wait = root.due.Sub(now)
		} else {
			due = heap.Pop(&p.heap).(*Target)
			due.running = runningActive
			due.due = now.Add(due.spec.Interval)
			heap.Push(&p.heap, due)
		}
		p.mu.Unlock()

		if due == nil {
			select {
			case <-p.done:
				return
			case <-p.wake:
			case <-time.After(wait):
			}
			continue
		}

		target := due
		submitted := p.workers.Submit(func() { p.runTask(target) }, workerpool.Front)
		if !submitted {
			// Submission failure: leave the Target on the heap for
			// its next cycle, per spec.md §4.4 step 3.
			p.mu.Lock()
			target.running = runningIdle
			p.mu.Unlock()
		}

		select {
		case <-p.done:
			return
		default:
		}
	}
}

// signalWake wakes the dispatcher if it is idling, without blocking —
// the Go stand-in for pthread_cond_signal(&vbp_cond).
func (p *Poller) signalWake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}
