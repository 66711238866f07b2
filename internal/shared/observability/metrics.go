package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codesense_requests_total",
		Help: "Total number of editor requests handled, by command and outcome.",
	}, []string{"command", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codesense_request_seconds",
		Help:    "Wall-clock time spent dispatching one request.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codesense_connections_active",
		Help: "Number of connections currently held by a worker.",
	})

	ConnectionsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_connections_accepted_total",
		Help: "Total number of accepted client connections.",
	})

	ConnectionsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_connections_rejected_total",
		Help: "Total number of connections refused because the connection queue was full.",
	})

	ConnectionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codesense_connection_queue_depth",
		Help: "Connections accepted but waiting for a free worker.",
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codesense_analysis_seconds",
		Help:    "Time spent building the scope tree of a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	IndexedFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codesense_indexed_files",
		Help: "Number of files with a live scope tree.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
