package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the I/Q recorder.
type Metrics struct {
	registry *prometheus.Registry

	droppedSamplesTotal    *prometheus.CounterVec
	gainChangesTotal       *prometheus.CounterVec
	overflowsTotal         *prometheus.CounterVec
	writesTotal            *prometheus.CounterVec
	bytesWrittenTotal      prometheus.Counter
	outputSamplesTotal     prometheus.Counter
	zeroFilledSamplesTotal prometheus.Counter
	skippedGapSamplesTotal prometheus.Counter
	bufferUsed             *prometheus.GaugeVec
	bufferPeakUsed         *prometheus.GaugeVec
}

// New creates and registers Prometheus metrics for a recording session.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	droppedSamplesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iqrec_dropped_samples_total",
		Help: "Total samples lost to sequence discontinuities, per channel",
	}, []string{"channel"})
	gainChangesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iqrec_gain_changes_total",
		Help: "Total gain-change events observed, per channel",
	}, []string{"channel"})
	overflowsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iqrec_buffer_overflows_total",
		Help: "Total fatal ring-buffer overflows, per buffer",
	}, []string{"buffer"})
	writesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "iqrec_writes_total",
		Help: "Total output write calls, by completion kind",
	}, []string{"kind"})
	bytesWrittenTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iqrec_bytes_written_total",
		Help: "Total bytes written to the output sink",
	})
	outputSamplesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iqrec_output_samples_total",
		Help: "Total samples emitted to the output sink, zero-fill included",
	})
	zeroFilledSamplesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iqrec_zero_filled_samples_total",
		Help: "Total gap samples synthesized as zeros",
	})
	skippedGapSamplesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "iqrec_skipped_gap_samples_total",
		Help: "Total gap samples skipped without synthesized output",
	})
	bufferUsed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iqrec_buffer_used",
		Help: "Current ring buffer occupancy, per buffer",
	}, []string{"buffer"})
	bufferPeakUsed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iqrec_buffer_peak_used",
		Help: "Ring buffer occupancy high-water mark, per buffer",
	}, []string{"buffer"})

	registry.MustRegister(
		droppedSamplesTotal,
		gainChangesTotal,
		overflowsTotal,
		writesTotal,
		bytesWrittenTotal,
		outputSamplesTotal,
		zeroFilledSamplesTotal,
		skippedGapSamplesTotal,
		bufferUsed,
		bufferPeakUsed,
	)

	return &Metrics{
		registry:               registry,
		droppedSamplesTotal:    droppedSamplesTotal,
		gainChangesTotal:       gainChangesTotal,
		overflowsTotal:         overflowsTotal,
		writesTotal:            writesTotal,
		bytesWrittenTotal:      bytesWrittenTotal,
		outputSamplesTotal:     outputSamplesTotal,
		zeroFilledSamplesTotal: zeroFilledSamplesTotal,
		skippedGapSamplesTotal: skippedGapSamplesTotal,
		bufferUsed:             bufferUsed,
		bufferPeakUsed:         bufferPeakUsed,
	}
}

// AddDroppedSamples adds to the dropped-sample counter for a channel.
func (m *Metrics) AddDroppedSamples(channel string, n uint32) {
	m.droppedSamplesTotal.WithLabelValues(channel).Add(float64(n))
}

// IncGainChanges increments the gain-change counter for a channel.
func (m *Metrics) IncGainChanges(channel string) {
	m.gainChangesTotal.WithLabelValues(channel).Inc()
}

// IncOverflows increments the overflow counter for a buffer ("blocks",
// "samples", or "gain_changes").
func (m *Metrics) IncOverflows(buffer string) {
	m.overflowsTotal.WithLabelValues(buffer).Inc()
}

// ObserveWrite records one completed write call of n bytes.
func (m *Metrics) ObserveWrite(n int, full bool) {
	switch {
	case full:
		m.writesTotal.WithLabelValues("full").Inc()
	case n == 0:
		m.writesTotal.WithLabelValues("zero").Inc()
	default:
		m.writesTotal.WithLabelValues("partial").Inc()
	}
	m.bytesWrittenTotal.Add(float64(n))
}

// AddOutputSamples adds to the output-sample counter.
func (m *Metrics) AddOutputSamples(n uint64) {
	m.outputSamplesTotal.Add(float64(n))
}

// AddZeroFilledSamples adds to the zero-filled gap counter.
func (m *Metrics) AddZeroFilledSamples(n uint64) {
	m.zeroFilledSamplesTotal.Add(float64(n))
}

// AddSkippedGapSamples adds to the skipped gap counter.
func (m *Metrics) AddSkippedGapSamples(n uint64) {
	m.skippedGapSamplesTotal.Add(float64(n))
}

// SetBufferUsage sets the occupancy gauges for a buffer; intended to be
// called from the pre-scrape refresh hook.
func (m *Metrics) SetBufferUsage(buffer string, used, peak uint32) {
	m.bufferUsed.WithLabelValues(buffer).Set(float64(used))
	m.bufferPeakUsed.WithLabelValues(buffer).Set(float64(peak))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values
// (e.g. ring buffer occupancy).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
