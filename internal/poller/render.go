package poller

import (
	"fmt"
	"io"

	"github.com/hirsh012/varnish-cache/internal/domain"
)

// ruler separates the summary lines from the bitmap rows in detail
// mode, matching the original source's fixed-width banner.
const ruler = "  Oldest ======================================================== Newest"

// Status prints `good/window`, and in detail mode the full per-backend
// breakdown: summary line, average, ruler, and one row per non-empty
// bitmap (or always, for "happy") rendered oldest-to-newest.
// spec.md §4.6, §6, §9 ("status bitmap rendering").
func (p *Poller) Status(w io.Writer, backend *domain.Backend, details bool) error {
	t, ok := backend.Probe().(*Target)
	if !ok || t == nil {
		return ErrNoProbe
	}

	p.mu.Lock()
	good, threshold, window, avg := t.good, t.spec.Threshold, t.spec.Window, t.avg
	bitmaps := t.bitmaps
	p.mu.Unlock()

	if _, err := fmt.Fprintf(w, "%d/%d", good, window); err != nil {
		return err
	}
	if !details {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Current states  good: %2d threshold: %2d window: %2d\n", good, threshold, window)
	fmt.Fprintf(w, "  Average response time of good probes: %.6f\n", avg)
	fmt.Fprintln(w, ruler)

	for i, desc := range bitmapTable {
		m := bitmaps[i]
		if m == 0 && !desc.alwaysShow {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", renderBitmapRow(desc.glyph, m), desc.label)
	}
	return nil
}

// StatusAll renders Status for every backend in backends, prefixed by
// its map key; it follows map iteration order, so the order of the
// backends in the output is not defined —
// spec.md's supplemented "CLI status rendering for all backends at
// once" feature, restoring a capability varnishadm's `backend.list`
// provides that a single-backend VBP_Status call does not.
func (p *Poller) StatusAll(w io.Writer, backends map[string]*domain.Backend, details bool) error {
	for name, b := range backends {
		fmt.Fprintf(w, "%s ", name)
		if err := p.Status(w, b, details); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// renderBitmapRow renders a 64-bit history bitmap as 64
// glyph-or-dash characters, oldest (bit 63) to newest (bit 0) — the
// opposite order from the in-memory layout, per Design Notes §9.
func renderBitmapRow(glyph byte, bitmap uint64) string {
	buf := make([]byte, 64)
	for i := 0; i < 64; i++ {
		bit := uint(63 - i)
		if bitmap&(uint64(1)<<bit) != 0 {
			buf[i] = glyph
		} else {
			buf[i] = '-'
		}
	}
	return string(buf)
}
