package poller

// startPoke shifts every history bitmap left by one bit (the newest
// slot, bit 0, now reads 0 awaiting this probe's verdicts) and resets
// the per-probe scratch fields. spec.md §4.3.
func (t *Target) startPoke() {
	for i := range t.bitmaps {
		t.bitmaps[i] <<= 1
	}
	t.last = 0
	for i := range t.respBuf {
		t.respBuf[i] = 0
	}
	t.respLen = 0
}

// hasPoked finalizes one probe cycle: updates the RTT EMA, computes
// good, and — under the poller's global mutex — drives the two-state
// health machine and publishes the result. spec.md §4.3.
func (t *Target) hasPoked() {
	happy := t.bitmaps[fieldHappy]

	if happy&1 != 0 {
		if t.rate < avgRate {
			t.rate++
		}
		t.avg += (t.last - t.avg) / avgDivisor(t.rate)
	}

	bits := t.renderBits()
	t.good = popcountWindow(happy, t.spec.Window)

	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()

	t.publishedHappy.Store(happy)

	if t.backend == nil {
		return
	}

	now := t.owner.clock.Now()
	wasHealthy := t.backend.Healthy()

	var label string
	var changed bool
	healthy := t.good >= t.spec.Threshold
	switch {
	case healthy && wasHealthy:
		label = "Still healthy"
	case healthy && !wasHealthy:
		label = "Back healthy"
		changed = true
	case !healthy && wasHealthy:
		label = "Went sick"
		changed = true
	default:
		label = "Still sick"
	}

	if changed {
		t.backend.SetHealth(healthy, now)
	} else {
		t.backend.SetHealth(healthy, t.backend.HealthChanged())
	}

	if t.owner.logger != nil {
		t.owner.logger.BackendHealth(
			"backend", t.backend.DisplayName,
			"state", label,
			"bits", bits,
			"good", t.good,
			"threshold", t.spec.Threshold,
			"window", t.spec.Window,
			"last", t.last,
			"avg", t.avg,
			"response", string(t.respBuf[:t.respLen]),
		)
	}
	if t.owner.metrics != nil {
		t.owner.metrics.SetBackendHealth(t.backend.DisplayName, healthy, t.good, t.spec.Threshold, t.spec.Window)
	}
}

// avgDivisor converts the integral averaging-rate counter into the
// divisor used by the EMA update, keeping t.rate itself as a plain
// float64 counter the way cache_backend_poll.c's vt->rate is.
func avgDivisor(rate float64) float64 {
	if rate < 1 {
		return 1
	}
	return rate
}

// renderBits produces the fixed-width, one-character-per-criterion
// summary used in the log line: the newest bit of each bitmap, in
// table order, '-' for clear.
func (t *Target) renderBits() string {
	buf := make([]byte, numFields)
	for i, desc := range bitmapTable {
		if t.bitmaps[i]&1 != 0 {
			buf[i] = desc.glyph
		} else {
			buf[i] = '-'
		}
	}
	return string(buf)
}
