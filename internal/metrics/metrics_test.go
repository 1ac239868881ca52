package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSetBackendHealthUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(reg)

	s.SetBackendHealth("origin-1", true, 5, 3, 8)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if len(m.GetLabel()) != 1 || m.GetLabel()[0].GetValue() != "origin-1" {
				continue
			}
			values[mf.GetName()] = gaugeValue(m)
		}
	}

	want := map[string]float64{
		"varnish_poller_backend_healthy":   1,
		"varnish_poller_backend_good_probes": 5,
		"varnish_poller_backend_threshold":   3,
		"varnish_poller_backend_window":      8,
	}
	for name, wantVal := range want {
		if got, ok := values[name]; !ok || got != wantVal {
			t.Errorf("%s = %v, want %v", name, got, wantVal)
		}
	}
}

func gaugeValue(m *dto.Metric) float64 {
	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}
	return 0
}
