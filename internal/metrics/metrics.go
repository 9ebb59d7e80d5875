package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics for the watch server
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Scan metrics
	scansTotal        *prometheus.CounterVec
	scanDuration      prometheus.Histogram
	symbolsLoaded     *prometheus.GaugeVec
	moversSelected    *prometheus.CounterVec
	signalsGenerated  *prometheus.CounterVec
	diagnosticsTotal  *prometheus.CounterVec
	backtestsTotal    *prometheus.CounterVec
	backtestDuration  prometheus.Histogram
	archiveWrites     *prometheus.CounterVec
	lastScanTimestamp prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moverscan_scans_total",
			Help: "Total number of scan runs",
		},
		[]string{"status"},
	)
	r.scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moverscan_scan_duration_seconds",
			Help:    "Scan run duration in seconds",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)
	r.symbolsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moverscan_symbols_loaded",
			Help: "Number of symbols with usable history in the last scan",
		},
		[]string{"basket"},
	)
	r.moversSelected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moverscan_movers_selected_total",
			Help: "Total number of instruments selected as top movers",
		},
		[]string{"side"},
	)
	r.signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moverscan_signals_generated_total",
			Help: "Total number of signals generated",
		},
		[]string{"action"},
	)
	r.diagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moverscan_diagnostics_total",
			Help: "Total number of per-instrument diagnostics",
		},
		[]string{"stage"},
	)
	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moverscan_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"strategy", "status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moverscan_backtest_duration_seconds",
			Help:    "Backtest duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
	)
	r.archiveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moverscan_archive_writes_total",
			Help: "Total number of archive writes",
		},
		[]string{"backend", "status"},
	)
	r.lastScanTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "moverscan_last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan",
		},
	)

	reg.MustRegister(r.scansTotal)
	reg.MustRegister(r.scanDuration)
	reg.MustRegister(r.symbolsLoaded)
	reg.MustRegister(r.moversSelected)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.diagnosticsTotal)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.archiveWrites)
	reg.MustRegister(r.lastScanTimestamp)

	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordScan records a scan completion. unixTime is only applied on success.
func (r *Registry) RecordScan(status string, duration float64, unixTime float64) {
	r.scansTotal.WithLabelValues(status).Inc()
	r.scanDuration.Observe(duration)
	if status == "success" {
		r.lastScanTimestamp.Set(unixTime)
	}
}

// SetSymbolsLoaded sets the number of loaded symbols for a basket.
func (r *Registry) SetSymbolsLoaded(basket string, n int) {
	r.symbolsLoaded.WithLabelValues(basket).Set(float64(n))
}

// RecordMovers records the selected gainers and losers.
func (r *Registry) RecordMovers(gainers, losers int) {
	r.moversSelected.WithLabelValues("gainer").Add(float64(gainers))
	r.moversSelected.WithLabelValues("loser").Add(float64(losers))
}

// RecordSignal records a generated signal.
func (r *Registry) RecordSignal(action string) {
	r.signalsGenerated.WithLabelValues(action).Inc()
}

// RecordDiagnostic records a per-instrument failure.
func (r *Registry) RecordDiagnostic(stage string) {
	r.diagnosticsTotal.WithLabelValues(stage).Inc()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(strategy, status string, duration float64) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordArchiveWrite records an archive write attempt.
func (r *Registry) RecordArchiveWrite(backend, status string) {
	r.archiveWrites.WithLabelValues(backend, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
