// Package metrics holds the Prometheus collectors of the scanner and the
// assistant. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spigell/talent-scout/internal/ai"
)

const (
	OutcomeSuccess = "success"

	ScanOK    = "ok"
	ScanEmpty = "empty"
	ScanError = "error"
)

// Collector is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	attempts       *prometheus.CounterVec
	backoffSeconds *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	scans          *prometheus.CounterVec
	scanLines      prometheus.Histogram
	scanDuration   prometheus.Histogram
}

// New registers all collectors on a private registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_ai_attempts_total",
				Help: "Model call attempts by call site and outcome",
			},
			[]string{"call_site", "outcome"},
		),
		backoffSeconds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_ai_backoff_seconds_total",
				Help: "Time spent waiting out rate limits",
			},
			[]string{"call_site"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_ai_admission_rejections_total",
				Help: "Model calls rejected by the admission guard",
			},
			[]string{"call_site", "reason"},
		),
		scans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scout_scans_total",
				Help: "Page scans by result",
			},
			[]string{"result"},
		),
		scanLines: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scout_scan_lines",
				Help:    "Lines emitted per successful scan",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scout_scan_duration_seconds",
				Help:    "Scan duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
	}
}

// ObserveAttempt implements retry.Observer.
func (c *Collector) ObserveAttempt(op string, _ int, err error) {
	if c == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = ai.KindOf(err).String()
	}
	c.attempts.WithLabelValues(op, outcome).Inc()
}

// ObserveBackoff implements retry.Observer.
func (c *Collector) ObserveBackoff(op string, delay time.Duration) {
	if c == nil {
		return
	}
	c.backoffSeconds.WithLabelValues(op).Add(delay.Seconds())
}

func (c *Collector) ObserveRejection(op, reason string) {
	if c == nil {
		return
	}
	c.rejections.WithLabelValues(op, reason).Inc()
}

// ObserveScan records one scan. lines is ignored unless result is ScanOK.
func (c *Collector) ObserveScan(result string, lines int, took time.Duration) {
	if c == nil {
		return
	}
	c.scans.WithLabelValues(result).Inc()
	c.scanDuration.Observe(took.Seconds())
	if result == ScanOK {
		c.scanLines.Observe(float64(lines))
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
