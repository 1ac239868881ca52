package poller

import (
	"errors"
	"io"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/hirsh012/varnish-cache/internal/tcppool"
)

// addressFamily classifies peer per spec.md §4.2 step 3.
func addressFamily(peer net.Addr) string {
	return tcppool.AddressFamily(peer)
}

// statusLineRe matches the leading "HTTP/<version> <status>" of a
// response's first line; the optional reason phrase scanf would also
// capture is not needed since we only care whether the status parsed.
var statusLineRe = regexp.MustCompile(`^HTTP/[0-9]+(?:\.[0-9]+)?[ \t]+([0-9]+)`)

// poke performs one probe attempt against t, never retrying within the
// attempt — spec.md §4.2. It is called with exclusive ownership of t
// (running == 1, no other goroutine touches these fields) and takes no
// locks; the only shared state it reads is immutable (t.spec, t.req,
// t.pool, t.poolHandle).
func (t *Target) poke(clock Clock) {
	tStart := clock.Now()
	deadline := tStart.Add(t.spec.Timeout)

	conn, peer, err := t.pool.Open(t.poolHandle, deadline)
	if err != nil {
		// Got no connection: a silent miss, per spec.md §7.
		return
	}
	defer conn.Close()

	family := addressFamily(peer)
	switch family {
	case "tcp4":
		t.bitmaps[fieldGoodIPv4] |= 1
	case "tcp6":
		t.bitmaps[fieldGoodIPv6] |= 1
	default:
		panic("poller: wrong probe protocol family")
	}

	// The remaining budget is measured on the same clock as tStart.
	if deadline.Sub(clock.Now()) <= 0 {
		return
	}

	n, err := conn.Write(t.req)
	if n != len(t.req) {
		if err != nil {
			t.bitmaps[fieldErrXmit] |= 1
		}
		return
	}
	t.bitmaps[fieldGoodXmit] |= 1

	// Socket read deadlines are wall-clock times, so the remaining
	// budget is carried over to the real clock here.
	rlen, respLen, readErr := t.readResponse(conn, time.Now().Add(deadline.Sub(clock.Now())))
	if readErr == errPollTimedOut {
		return
	}
	if readErr != nil {
		t.bitmaps[fieldErrRecv] |= 1
		return
	}
	if rlen == 0 {
		return
	}

	t.last = clock.Now().Sub(tStart).Seconds()
	t.bitmaps[fieldGoodRecv] |= 1
	t.respLen = respLen

	t.parseStatusLine()
}

// errPollTimedOut marks the "poll returned 0, or budget exhausted"
// case: a silent miss, distinct from a genuine read error.
var errPollTimedOut = errors.New("poller: poll timed out")

// readResponse drains conn, bounded by deadline, filling t.respBuf
// first and discarding the rest into a scratch buffer — spec.md §4.2
// step 6-7. It returns the total bytes read across the whole response
// (rlen) and how many of those landed in t.respBuf (respLen).
func (t *Target) readResponse(conn net.Conn, deadline time.Time) (rlen int, respLen int, err error) {
	scratch := make([]byte, 8192)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return rlen, respLen, errPollTimedOut
		}
		if e := conn.SetReadDeadline(time.Now().Add(remaining)); e != nil {
			return rlen, respLen, e
		}

		var buf []byte
		if respLen < len(t.respBuf) {
			buf = t.respBuf[respLen:]
		} else {
			buf = scratch
		}

		n, rerr := conn.Read(buf)
		if respLen < len(t.respBuf) {
			respLen += n
			if respLen > len(t.respBuf) {
				respLen = len(t.respBuf)
			}
		}
		rlen += n

		if rerr != nil {
			if errors.Is(rerr, os.ErrDeadlineExceeded) {
				return rlen, respLen, errPollTimedOut
			}
			if errors.Is(rerr, io.EOF) {
				return rlen, respLen, nil
			}
			return rlen, respLen, rerr
		}
		if n == 0 {
			return rlen, respLen, nil
		}
	}
}

// parseStatusLine NUL-terminates t.respBuf at the first CR or LF and
// extracts the status code, matching the scanf pattern
// "HTTP/%*f %u %s" from the original source.
func (t *Target) parseStatusLine() {
	line := t.respBuf[:t.respLen]
	for i, b := range line {
		if b == '\r' || b == '\n' {
			line = line[:i]
			break
		}
	}
	m := statusLineRe.FindSubmatch(line)
	if m == nil {
		return
	}
	status, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return
	}
	if status == t.spec.ExpectedStatus {
		t.bitmaps[fieldHappy] |= 1
	}
}
