package poller

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/hirsh012/varnish-cache/internal/tcppool"
	"github.com/hirsh012/varnish-cache/internal/workerpool"
)

// fakeClock is a manually advanced Clock for deterministic scheduling
// tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeWorkerPool queues every submitted task without running it; run
// then executes the queued tasks on the calling goroutine — letting
// tests drive the dispatcher one cycle at a time without real
// concurrency.
type fakeWorkerPool struct {
	mu    sync.Mutex
	tasks []func()
	full  bool
}

func (w *fakeWorkerPool) Submit(task func(), _ workerpool.Priority) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.full {
		return false
	}
	w.tasks = append(w.tasks, task)
	return true
}

// run executes every task submitted so far, in order, then clears them.
func (w *fakeWorkerPool) run() {
	w.mu.Lock()
	tasks := w.tasks
	w.tasks = nil
	w.mu.Unlock()
	for _, t := range tasks {
		t()
	}
}

// fakeAddr is a minimal net.Addr standing in for a dialed peer.
type fakeAddr struct{ network, addr string }

func (a fakeAddr) Network() string { return a.network }
func (a fakeAddr) String() string  { return a.addr }

// scriptedConn is a net.Conn whose Write/Read behavior is entirely
// scripted by the test, so poke() can be exercised without a real
// socket.
type scriptedConn struct {
	writeErr error
	writeN   int // if 0 and writeErr == nil, defaults to len(p)

	readData []byte
	readErr  error
	readPos  int

	deadline time.Time
	closed   bool
}

func (c *scriptedConn) Read(p []byte) (int, error) {
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		return 0, fakeTimeoutErr{}
	}
	if c.readPos >= len(c.readData) {
		if c.readErr != nil {
			return 0, c.readErr
		}
		return 0, fakeEOF{}
	}
	n := copy(p, c.readData[c.readPos:])
	c.readPos += n
	return n, nil
}

func (c *scriptedConn) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	if c.writeN != 0 {
		return c.writeN, nil
	}
	return len(p), nil
}

func (c *scriptedConn) Close() error                       { c.closed = true; return nil }
func (c *scriptedConn) LocalAddr() net.Addr                { return fakeAddr{"tcp4", "127.0.0.1:0"} }
func (c *scriptedConn) RemoteAddr() net.Addr                { return fakeAddr{"tcp4", "127.0.0.1:1"} }
func (c *scriptedConn) SetDeadline(t time.Time) error       { c.deadline = t; return nil }
func (c *scriptedConn) SetReadDeadline(t time.Time) error   { c.deadline = t; return nil }
func (c *scriptedConn) SetWriteDeadline(t time.Time) error  { return nil }

// fakeEOF/fakeTimeoutErr stand in for io.EOF / os.ErrDeadlineExceeded
// without importing the real net stack's internal error plumbing.
type fakeEOF struct{}

func (fakeEOF) Error() string { return "EOF" }
func (fakeEOF) Is(target error) bool {
	return target.Error() == "EOF"
}

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }
func (fakeTimeoutErr) Is(target error) bool {
	return target.Error() == "i/o timeout" || target.Error() == "deadline exceeded"
}

// fakeTCPPool hands back a single scripted connection (or a dial
// error) for every Open call, recording how it was used.
type fakeTCPPool struct {
	mu sync.Mutex

	dialErr   error
	conn      *scriptedConn
	peer      net.Addr
	opens     int
	released  int
	refCalls  int
}

func (p *fakeTCPPool) Ref(addr4, addr6 string) (tcppool.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refCalls++
	return tcppool.Handle{}, nil
}

func (p *fakeTCPPool) Release(h tcppool.Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakeTCPPool) Open(h tcppool.Handle, deadline time.Time) (net.Conn, net.Addr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens++
	if p.dialErr != nil {
		return nil, nil, p.dialErr
	}
	if p.conn == nil {
		return nil, nil, errDialRefused{}
	}
	peer := p.peer
	if peer == nil {
		peer = &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 1}
	}
	return p.conn, peer, nil
}

// fakeLogger captures every BackendHealth call for assertions.
type fakeLogger struct {
	mu    sync.Mutex
	lines [][]any
}

func (l *fakeLogger) BackendHealth(fields ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fields)
}

func (l *fakeLogger) last() map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.lines) == 0 {
		return nil
	}
	return fieldsToMap(l.lines[len(l.lines)-1])
}

func fieldsToMap(fields []any) map[string]any {
	m := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		m[key] = fields[i+1]
	}
	return m
}

// fakeMetrics captures the most recent SetBackendHealth call.
type fakeMetrics struct {
	mu    sync.Mutex
	calls int
	last  struct {
		name               string
		healthy            bool
		good, threshold, w int
	}
}

func (m *fakeMetrics) SetBackendHealth(name string, healthy bool, good, threshold, window int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last.name = name
	m.last.healthy = healthy
	m.last.good = good
	m.last.threshold = threshold
	m.last.w = window
}
