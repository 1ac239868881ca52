package tcppool

import (
	"net"
	"testing"
	"time"
)

func TestRefRequiresAnAddress(t *testing.T) {
	p := New()
	if _, err := p.Ref("", ""); err != ErrNoAddress {
		t.Fatalf("err = %v, want ErrNoAddress", err)
	}
}

func TestRefCountsAndRelease(t *testing.T) {
	p := New()
	h, err := p.Ref("127.0.0.1:9", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Ref("127.0.0.1:9", ""); err != nil {
		t.Fatal(err)
	}
	if p.refCount[h] != 2 {
		t.Fatalf("refCount = %d, want 2", p.refCount[h])
	}
	p.Release(h)
	if p.refCount[h] != 1 {
		t.Fatalf("refCount = %d, want 1", p.refCount[h])
	}
	p.Release(h)
	if _, ok := p.refCount[h]; ok {
		t.Fatal("expected handle to be removed at zero refcount")
	}
}

func TestOpenConnectsAndClassifiesFamily(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	p := New()
	h, err := p.Ref(ln.Addr().String(), "")
	if err != nil {
		t.Fatal(err)
	}
	conn, addr, err := p.Open(h, time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if AddressFamily(addr) != "tcp4" {
		t.Fatalf("family = %s, want tcp4", AddressFamily(addr))
	}
}

func TestOpenPastDeadlineFails(t *testing.T) {
	p := New()
	h, err := p.Ref("127.0.0.1:9", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := p.Open(h, time.Now().Add(-time.Second)); err == nil {
		t.Fatal("expected error opening past deadline")
	}
}
