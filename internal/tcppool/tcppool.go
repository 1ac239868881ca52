// Package tcppool is a minimal stand-in for Varnish's connection pool
// (cache_backend_tcp.c): given a pair of IPv4/IPv6 addresses it hands
// out a reference-counted handle, and opens plain TCP connections
// against either address family within a caller-supplied deadline. The
// health poller never reuses the connections it opens through here —
// probes always close their socket — so this pool's only real job is
// bounding connect time and picking an address family.
package tcppool

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// ErrNoAddress is returned by Ref when neither an IPv4 nor an IPv6
// address is given.
var ErrNoAddress = errors.New("tcppool: handle has no IPv4 or IPv6 address")

// Handle is a reference to a pooled address pair. The zero value is
// not valid; obtain one from Pool.Ref.
type Handle struct {
	addr4 string
	addr6 string
}

// Pool hands out reference-counted Handles and dials connections for
// them. It holds no long-lived sockets; "pooling" here is limited to
// deduplicating the dialer configuration, matching the narrow contract
// the poller actually needs (VBT_Ref/VBT_Open/VBT_Rel/VSA_Get_Proto).
type Pool struct {
	mu       sync.Mutex
	refCount map[Handle]int
	dialer   net.Dialer
}

// New builds an empty Pool. A single Pool is normally shared by every
// Target the health poller manages.
func New() *Pool {
	return &Pool{refCount: make(map[Handle]int)}
}

// Ref takes a reference on the (addr4, addr6) pair, creating it if
// this is the first reference. Either address may be empty, but not
// both.
func (p *Pool) Ref(addr4, addr6 string) (Handle, error) {
	if addr4 == "" && addr6 == "" {
		return Handle{}, ErrNoAddress
	}
	h := Handle{addr4: addr4, addr6: addr6}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refCount[h]++
	return h, nil
}

// Release drops a reference taken by Ref. It is safe to call exactly
// once per successful Ref; extra calls are no-ops.
func (p *Pool) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refCount[h] <= 0 {
		return
	}
	p.refCount[h]--
	if p.refCount[h] == 0 {
		delete(p.refCount, h)
	}
}

// Open connects to the handle's address, preferring IPv4 when both are
// configured, within the given deadline. It returns the connection and
// its remote address so the caller can classify the address family.
func (p *Pool) Open(h Handle, deadline time.Time) (net.Conn, net.Addr, error) {
	budget := time.Until(deadline)
	if budget <= 0 {
		return nil, nil, context.DeadlineExceeded
	}

	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	var errs error
	if h.addr4 != "" {
		conn, err := p.dialer.DialContext(ctx, "tcp4", h.addr4)
		if err == nil {
			return conn, conn.RemoteAddr(), nil
		}
		errs = multierr.Append(errs, err)
	}
	if h.addr6 != "" {
		conn, err := p.dialer.DialContext(ctx, "tcp6", h.addr6)
		if err == nil {
			return conn, conn.RemoteAddr(), nil
		}
		errs = multierr.Append(errs, err)
	}
	return nil, nil, errs
}

// AddressFamily classifies a connected peer address as "tcp4" or
// "tcp6", or "" if addr isn't a TCP address at all. The pool only ever
// dials "tcp4"/"tcp6" networks, so "" signals a programming error to
// the caller.
func AddressFamily(addr net.Addr) string {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return ""
	}
	if tcpAddr.IP.To4() != nil {
		return "tcp4"
	}
	return "tcp6"
}
