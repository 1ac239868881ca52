package poller

// runTask is the worker-pool task body for one probe cycle: start_poke,
// poke, has_poked, then the tri-state running handoff — spec.md §4.5.
func (p *Poller) runTask(t *Target) {
	t.startPoke()
	t.poke(p.clock)
	t.hasPoked()

	p.mu.Lock()
	doomed := t.running == runningDoomed
	if !doomed {
		t.running = runningIdle
	}
	p.mu.Unlock()

	if doomed {
		// Remove marked us doomed while we were mid-probe and handed
		// us ownership of the pool reference; release it now that
		// we're done. The Target itself needs no explicit free — it
		// is unreferenced from here on and the garbage collector
		// reclaims it.
		p.tcp.Release(t.poolHandle)
	}
}
