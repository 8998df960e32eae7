package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Pipeline metrics
	CommentsScoredTotal   prometheus.CounterVec
	AbuseScoreHistogram   prometheus.HistogramVec
	CooldownsTotal        prometheus.CounterVec
	BansTotal             prometheus.CounterVec
	ReportsTotal          prometheus.CounterVec
	ScoringDuration       prometheus.HistogramVec
	IdentityResolvedTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec
	RateLimitStrikes       prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			CommentsScoredTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_scored_total",
					Help: "Comments scored by the abuse pipeline, by resulting action",
				},
				[]string{"action"},
			),
			AbuseScoreHistogram: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "comment_abuse_score",
					Help:    "Distribution of abuse scores",
					Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 30, 50},
				},
				[]string{"kind"},
			),
			CooldownsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cooldown_escalations_total",
					Help: "Cooldown escalations, by resulting level",
				},
				[]string{"level"},
			),
			BansTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "bans_total",
					Help: "Ban decisions applied, by type",
				},
				[]string{"type"},
			),
			ReportsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comment_reports_total",
					Help: "Community reports filed",
				},
				[]string{"outcome"},
			),
			ScoringDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "abuse_scoring_duration_seconds",
					Help:    "Time spent normalizing and scoring one comment",
					Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
				},
				[]string{"operation"},
			),
			IdentityResolvedTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "identities_resolved_total",
					Help: "Identity resolutions, by signal confidence bucket",
				},
				[]string{"confidence"},
			),
			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Rate limit rejections, by action class",
				},
				[]string{"action"},
			),
			RateLimitStrikes: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "rate_limit_strikes",
					Help: "Current strike count on the most recently violated bucket",
				},
				[]string{"action"},
			),
			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Cache hits by cache name",
				},
				[]string{"cache"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Cache misses by cache name",
				},
				[]string{"cache"},
			),
			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Errors by component",
				},
				[]string{"component"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}
