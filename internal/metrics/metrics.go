// Package metrics exposes daemon self-observation counters, mirroring
// how the corpus instruments long-running network daemons with
// prometheus/client_golang rather than the ad-hoc benchmark driver
// spec.md excludes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters a proxyherd daemon exports.
type Metrics struct {
	VerbsTotal      *prometheus.CounterVec
	GossipSent      prometheus.Counter
	GossipFailed    prometheus.Counter
	PlacesCalls     *prometheus.CounterVec
	registry        *prometheus.Registry
}

// New builds a fresh, independently-registered Metrics instance so
// multiple daemons in the same test process don't collide on the
// default global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		VerbsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "proxyherd_verbs_total",
			Help: "Count of protocol verbs handled, by verb and outcome.",
		}, []string{"verb", "outcome"}),
		GossipSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "proxyherd_gossip_sent_total",
			Help: "Count of successful outbound gossip writes.",
		}),
		GossipFailed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "proxyherd_gossip_failed_total",
			Help: "Count of failed outbound gossip writes (PeerSendFailure).",
		}),
		PlacesCalls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "proxyherd_places_calls_total",
			Help: "Count of Places API calls, by outcome.",
		}, []string{"outcome"}),
	}

	return m
}

// Handler returns the HTTP handler serving this instance's metrics in
// the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
