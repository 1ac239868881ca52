package poller

import (
	"testing"
	"time"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

func TestTargetGoodCountLocksOwner(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	p := newTestPoller(clock, &fakeTCPPool{}, &fakeWorkerPool{}, nil, nil)
	defer p.Close()

	backend := domain.NewBackend("b1", "127.0.0.1:80", "")
	target := newBareTarget(p, backend, baseSpec(), &fakeTCPPool{})

	p.mu.Lock()
	target.good = 4
	p.mu.Unlock()

	if got := target.GoodCount(); got != 4 {
		t.Errorf("GoodCount() = %d, want 4", got)
	}
}

func TestTargetHappyPublishesBitmapAfterHasPoked(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	p := newTestPoller(clock, &fakeTCPPool{}, &fakeWorkerPool{}, nil, nil)
	defer p.Close()

	backend := domain.NewBackend("b1", "127.0.0.1:80", "")
	target := newBareTarget(p, backend, baseSpec(), &fakeTCPPool{})

	if got := target.Happy(); got != 0 {
		t.Errorf("Happy() before any probe = %b, want 0", got)
	}

	target.bitmaps[fieldHappy] = 0b101
	target.hasPoked()

	if got := target.Happy(); got != 0b101 {
		t.Errorf("Happy() after hasPoked = %b, want 0b101", got)
	}
}
