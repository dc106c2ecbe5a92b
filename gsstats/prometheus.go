package gsstats

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter publishes a Stats snapshot on every scrape of
// /metrics, registering one gauge per counter label directly against its
// own registry rather than polling a separate stats endpoint.
type PrometheusExporter struct {
	stats    *Stats
	registry *prometheus.Registry

	framesEncoded   prometheus.Gauge
	framesDecoded   prometheus.Gauge
	decodeErrors    prometheus.Gauge
	encodeFull      prometheus.Gauge
	transportErrors prometheus.Gauge

	unregisteredUpdates   prometheus.Gauge
	unregisteredUnknown   prometheus.Gauge
	registrationConflicts prometheus.Gauge

	retransmits *prometheus.GaugeVec
	renders     *prometheus.GaugeVec
}

// NewPrometheusExporter builds an exporter backed by stats, registering
// every gauge up front so a scrape before any activity still reports a
// full, zeroed metric set.
func NewPrometheusExporter(stats *Stats) *PrometheusExporter {
	e := &PrometheusExporter{
		stats:    stats,
		registry: prometheus.NewRegistry(),

		framesEncoded:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_frames_encoded_total"}),
		framesDecoded:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_frames_decoded_total"}),
		decodeErrors:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_decode_errors_total"}),
		encodeFull:      prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_encode_full_total"}),
		transportErrors: prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_transport_errors_total"}),

		unregisteredUpdates:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_unregistered_updates_total"}),
		unregisteredUnknown:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_unregistered_unknown_total"}),
		registrationConflicts: prometheus.NewGauge(prometheus.GaugeOpts{Name: "gssync_registration_conflicts_total"}),

		retransmits: prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "gssync_retransmits_total"}, []string{"reason"}),
		renders:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "gssync_renders_total"}, []string{"outcome"}),
	}

	e.registry.MustRegister(
		e.framesEncoded, e.framesDecoded, e.decodeErrors, e.encodeFull, e.transportErrors,
		e.unregisteredUpdates, e.unregisteredUnknown, e.registrationConflicts,
		e.retransmits, e.renders,
	)
	return e
}

// Handler returns the bare promhttp handler over the exporter's
// registry. It does not refresh the gauges from Stats; the handler
// ListenAndServe mounts at /metrics refreshes every gauge before each
// scrape and then delegates to this one.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ListenAndServe starts a dedicated metrics server on port, blocking
// until it exits.
func (e *PrometheusExporter) ListenAndServe(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.refreshingHandler())
	addr := fmt.Sprintf(":%d", port)
	log.Infof("gsstats: starting prometheus exporter on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (e *PrometheusExporter) refreshingHandler() http.Handler {
	handler := e.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.refresh()
		handler.ServeHTTP(w, r)
	})
}

func (e *PrometheusExporter) refresh() {
	snap := e.stats.Snapshot()
	e.framesEncoded.Set(float64(snap.FramesEncoded))
	e.framesDecoded.Set(float64(snap.FramesDecoded))
	e.decodeErrors.Set(float64(snap.DecodeErrors))
	e.encodeFull.Set(float64(snap.EncodeFull))
	e.transportErrors.Set(float64(snap.TransportErrors))
	e.unregisteredUpdates.Set(float64(snap.UnregisteredUpdates))
	e.unregisteredUnknown.Set(float64(snap.UnregisteredUnknown))
	e.registrationConflicts.Set(float64(snap.RegistrationConflicts))
	for reason, v := range snap.Retransmits {
		e.retransmits.WithLabelValues(reason).Set(float64(v))
	}
	for outcome, v := range snap.Renders {
		e.renders.WithLabelValues(outcome).Set(float64(v))
	}
}
