// Package metrics exposes the router's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "copernica"
	subsystem = "router"
)

// Label names for router metrics.
const (
	labelLink        = "link"
	labelReason      = "reason"
	labelBand        = "band"
	labelReliability = "reliability"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Router Metrics
// -------------------------------------------------------------------------

// Collector holds all router Prometheus metrics.
//
// Metrics are organized around the forwarding path:
//   - Link gauges track currently active faces.
//   - Packet counters track request/response/forward/drop volumes per link.
//   - Content store counters track cache effectiveness.
//   - Defcon counters record how often each litmus band fires.
//   - TxRx retry counters track sliding-window loss per reliability mode.
type Collector struct {
	// LinksActive tracks the number of currently registered links (faces).
	LinksActive *prometheus.GaugeVec

	// RequestsReceived counts inbound Request narrow waists per link.
	RequestsReceived *prometheus.CounterVec

	// ResponsesReceived counts inbound Response narrow waists per link.
	ResponsesReceived *prometheus.CounterVec

	// PacketsForwarded counts packets the router relayed onward per link.
	PacketsForwarded *prometheus.CounterVec

	// PacketsDropped counts packets the router discarded per link, labeled
	// with the reason (e.g. "defcon1", "duplicate_pending").
	PacketsDropped *prometheus.CounterVec

	// ContentStoreHits counts requests answered directly from the cache.
	ContentStoreHits prometheus.Counter

	// ContentStoreMisses counts requests that had to be forwarded.
	ContentStoreMisses prometheus.Counter

	// DefconBand counts how often each Bayesian litmus band is reached.
	DefconBand *prometheus.CounterVec

	// TxRxRetries counts sliding-window retry rounds per reliability mode.
	TxRxRetries *prometheus.CounterVec
}

// NewCollector creates a Collector with all router metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics are created with the "copernica_router_" prefix
// (namespace_subsystem) to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.LinksActive,
		c.RequestsReceived,
		c.ResponsesReceived,
		c.PacketsForwarded,
		c.PacketsDropped,
		c.ContentStoreHits,
		c.ContentStoreMisses,
		c.DefconBand,
		c.TxRxRetries,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	linkLabels := []string{labelLink}
	dropLabels := []string{labelLink, labelReason}

	return &Collector{
		LinksActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "links_active",
			Help:      "Number of currently registered links.",
		}, linkLabels),

		RequestsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_received_total",
			Help:      "Total Request narrow waists received per link.",
		}, linkLabels),

		ResponsesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "responses_received_total",
			Help:      "Total Response narrow waists received per link.",
		}, linkLabels),

		PacketsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_forwarded_total",
			Help:      "Total packets relayed onward per link.",
		}, linkLabels),

		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "packets_dropped_total",
			Help:      "Total packets discarded per link, labeled by reason.",
		}, dropLabels),

		ContentStoreHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "content_store_hits_total",
			Help:      "Total requests answered directly from the content store.",
		}),

		ContentStoreMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "content_store_misses_total",
			Help:      "Total requests that missed the content store and were forwarded.",
		}),

		DefconBand: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "defcon_band_total",
			Help:      "Total times each Bayesian litmus band was reached.",
		}, []string{labelBand}),

		TxRxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "txrx_retries_total",
			Help:      "Total sliding-window retry rounds per reliability mode.",
		}, []string{labelReliability}),
	}
}

// -------------------------------------------------------------------------
// Link Lifecycle
// -------------------------------------------------------------------------

// RegisterLink increments the active links gauge for link.
func (c *Collector) RegisterLink(link string) {
	c.LinksActive.WithLabelValues(link).Inc()
}

// UnregisterLink decrements the active links gauge for link.
func (c *Collector) UnregisterLink(link string) {
	c.LinksActive.WithLabelValues(link).Dec()
}

// -------------------------------------------------------------------------
// Packet Counters
// -------------------------------------------------------------------------

// IncRequestsReceived increments the received-requests counter for link.
func (c *Collector) IncRequestsReceived(link string) {
	c.RequestsReceived.WithLabelValues(link).Inc()
}

// IncResponsesReceived increments the received-responses counter for link.
func (c *Collector) IncResponsesReceived(link string) {
	c.ResponsesReceived.WithLabelValues(link).Inc()
}

// IncPacketsForwarded increments the forwarded-packets counter for link.
func (c *Collector) IncPacketsForwarded(link string) {
	c.PacketsForwarded.WithLabelValues(link).Inc()
}

// IncPacketsDropped increments the dropped-packets counter for link, labeled
// with reason.
func (c *Collector) IncPacketsDropped(link, reason string) {
	c.PacketsDropped.WithLabelValues(link, reason).Inc()
}

// -------------------------------------------------------------------------
// Content Store
// -------------------------------------------------------------------------

// IncContentStoreHit increments the content store hit counter.
func (c *Collector) IncContentStoreHit() {
	c.ContentStoreHits.Inc()
}

// IncContentStoreMiss increments the content store miss counter.
func (c *Collector) IncContentStoreMiss() {
	c.ContentStoreMisses.Inc()
}

// -------------------------------------------------------------------------
// Classifier
// -------------------------------------------------------------------------

// RecordDefconBand increments the counter for the named litmus band.
func (c *Collector) RecordDefconBand(band string) {
	c.DefconBand.WithLabelValues(band).Inc()
}

// -------------------------------------------------------------------------
// TxRx
// -------------------------------------------------------------------------

// IncTxRxRetry increments the retry counter for the named reliability mode.
func (c *Collector) IncTxRxRetry(reliability string) {
	c.TxRxRetries.WithLabelValues(reliability).Inc()
}
