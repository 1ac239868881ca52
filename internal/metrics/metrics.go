// Package metrics exposes the health poller's per-backend gauges to
// Prometheus. It deliberately carries no probe-latency histogram: the
// spec's non-goals exclude per-probe latency distributions, so only
// the classification inputs (good count, threshold, window) and the
// resulting boolean health are published.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sink implements poller.MetricsSink, publishing one gauge vector per
// tracked quantity, labeled by backend display name.
type Sink struct {
	healthy   *prometheus.GaugeVec
	good      *prometheus.GaugeVec
	threshold *prometheus.GaugeVec
	window    *prometheus.GaugeVec
}

// New registers the gauge vectors against reg and returns a Sink ready
// to receive SetBackendHealth calls. Pass prometheus.DefaultRegisterer
// for normal process-wide metrics.
func New(reg prometheus.Registerer) *Sink {
	s := &Sink{
		healthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "varnish_poller",
			Name:      "backend_healthy",
			Help:      "1 if the backend is currently classified healthy, 0 otherwise.",
		}, []string{"backend"}),
		good: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "varnish_poller",
			Name:      "backend_good_probes",
			Help:      "Count of happy probes within the current window.",
		}, []string{"backend"}),
		threshold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "varnish_poller",
			Name:      "backend_threshold",
			Help:      "Configured good-probe threshold for healthy classification.",
		}, []string{"backend"}),
		window: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "varnish_poller",
			Name:      "backend_window",
			Help:      "Configured probe history window size.",
		}, []string{"backend"}),
	}
	reg.MustRegister(s.healthy, s.good, s.threshold, s.window)
	return s
}

// SetBackendHealth implements poller.MetricsSink.
func (s *Sink) SetBackendHealth(displayName string, healthy bool, good, threshold, window int) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	s.healthy.WithLabelValues(displayName).Set(v)
	s.good.WithLabelValues(displayName).Set(float64(good))
	s.threshold.WithLabelValues(displayName).Set(float64(threshold))
	s.window.WithLabelValues(displayName).Set(float64(window))
}
