// Package domain holds the narrow, shared data types that cross the
// boundary between the health poller and the rest of the proxy: the
// backend record the poller reports health to, and the probe
// configuration a VCL-equivalent layer hands the poller at Insert time.
package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProbeHandle is the read side of a live poller.Target, exposed to
// Backend without creating an import cycle between domain and poller.
// The poller is the only writer; everyone else only ever reads through
// this interface.
type ProbeHandle interface {
	// Happy returns the latest happy-probe bitmap, bit 0 = most recent.
	Happy() uint64
}

// Backend is the upstream origin server record. The poller writes
// exactly two fields on it (Healthy, HealthChanged); everything else
// is maintained by the surrounding system (here: internal/vclconfig and
// internal/repo) and only read by the poller.
type Backend struct {
	ID          uuid.UUID
	DisplayName string

	// Address4 and Address6 are the dial targets handed to the TCP pool.
	// Either may be empty but not both.
	Address4 string
	Address6 string

	mu            sync.RWMutex
	healthy       bool
	healthChanged time.Time
	probe         ProbeHandle
}

// NewBackend constructs a Backend that starts out unhealthy, matching
// the state a freshly-inserted backend has before its first probe
// cycle runs (Insert's seeding may flip this immediately).
func NewBackend(displayName, addr4, addr6 string) *Backend {
	return &Backend{
		ID:          uuid.New(),
		DisplayName: displayName,
		Address4:    addr4,
		Address6:    addr6,
	}
}

// SetHealth is called by the poller's aggregator, under the poller's
// global mutex, every time a probe completes.
func (b *Backend) SetHealth(healthy bool, changed time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.healthy = healthy
	if !changed.IsZero() {
		b.healthChanged = changed
	}
}

// Healthy reports the backend's current health, safe for concurrent
// readers (e.g. a request router) racing the poller's writer.
func (b *Backend) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthy
}

// HealthChanged returns the timestamp of the last health transition.
func (b *Backend) HealthChanged() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.healthChanged
}

// AttachProbe and DetachProbe are called by the poller's control
// surface (Insert/Remove) to set or clear the non-owning back-reference.
func (b *Backend) AttachProbe(p ProbeHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probe = p
}

func (b *Backend) DetachProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probe = nil
}

// Probe returns the currently attached ProbeHandle, or nil if the
// backend has no live probe (never inserted, or removed).
func (b *Backend) Probe() ProbeHandle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.probe
}
