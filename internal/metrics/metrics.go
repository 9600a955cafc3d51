package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the analysis pipeline:
// admission, vision quota, vision API calls and persistence writes.

var (
	// Admission governor
	ActiveTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_analysis_active_tasks",
			Help: "Number of image analyses currently registered as in flight",
		},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_analysis_submissions_total",
			Help: "Analysis submissions by admission outcome",
		},
		[]string{"outcome"}, // "accepted", "duplicate", "capacity", "closed"
	)

	// Orchestrator
	AnalysisResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_analysis_results_total",
			Help: "Finished analyses by terminal status",
		},
		[]string{"status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_analysis_duration_seconds",
			Help:    "Wall time of one analysis including quota waits",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		},
	)

	// Quota tracker
	QuotaUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_vision_quota_usage",
			Help: "Vision API calls counted in each quota window",
		},
		[]string{"window"},
	)

	QuotaRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_vision_quota_rejections_total",
			Help: "Vision API calls rejected by a hard quota ceiling",
		},
		[]string{"scope"},
	)

	QuotaWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_vision_quota_wait_seconds",
			Help:    "Time callers spent waiting on the per-minute window",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 30, 45, 60},
		},
	)

	// Vision API
	VisionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_vision_requests_total",
			Help: "Vision API requests by outcome",
		},
		[]string{"outcome"}, // "success", "payload_error", "http_error", "transport_error", "decode_error"
	)

	// Persistence collaborator
	PersistenceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_persistence_errors_total",
			Help: "Swallowed persistence failures by operation",
		},
		[]string{"operation"},
	)
)
