package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	distributionsTotal   *prometheus.CounterVec
	distributionPairs    prometheus.Histogram
	investmentsTotal     *prometheus.CounterVec
	gradingRunsTotal     *prometheus.CounterVec
	gradesByTier         *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	interestCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peerinvest_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		distributionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_distributions_total",
			Help: "Distribution runs by outcome.",
		}, []string{"outcome"})

		distributionPairs = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "peerinvest_distribution_pairs",
			Help:    "Number of evaluation pairs produced per distribution.",
			Buckets: prometheus.ExponentialBuckets(4, 2, 8),
		})

		investmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_investments_total",
			Help: "Investment attempts by outcome.",
		}, []string{"outcome"})

		gradingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_grading_runs_total",
			Help: "Grading runs by tier policy.",
		}, []string{"policy"})

		gradesByTier = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_grades_total",
			Help: "Grades computed by tier.",
		}, []string{"tier"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_notifications_published_total",
			Help: "Notifications delivered by type.",
		}, []string{"type"})

		interestCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerinvest_interest_cache_lookups_total",
			Help: "Interest rollup cache lookups by result.",
		}, []string{"result"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			distributionsTotal, distributionPairs,
			investmentsTotal,
			gradingRunsTotal, gradesByTier,
			notificationsTotal, interestCacheLookups,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the request latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// DistributionsTotal counts distribution runs.
func DistributionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return distributionsTotal
}

// DistributionPairs observes the size of each distribution.
func DistributionPairs() prometheus.Histogram {
	RegisterMetrics()
	return distributionPairs
}

// InvestmentsTotal counts investment attempts.
func InvestmentsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return investmentsTotal
}

// GradingRunsTotal counts grading runs.
func GradingRunsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingRunsTotal
}

// GradesByTier counts computed grades.
func GradesByTier() *prometheus.CounterVec {
	RegisterMetrics()
	return gradesByTier
}

// NotificationsPublishedTotal counts delivered notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// InterestCacheLookups counts rollup cache hits and misses.
func InterestCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return interestCacheLookups
}
