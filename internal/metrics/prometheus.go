// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the contribution platform.
var (
	// Stats.
	StatsComputationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stats_computations_total",
			Help: "Total number of user stats computations",
		},
		[]string{"status"},
	)

	StatsComputationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stats_computation_duration_seconds",
			Help:    "Time taken to compute a user stats snapshot",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
	)

	StatsContributionsScanned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stats_contributions_scanned",
			Help:    "Number of contribution records scanned per stats computation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k
		},
	)

	// Contributions.
	ContributionsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contributions_submitted_total",
			Help: "Total number of contributions submitted",
		},
		[]string{"language", "kind"},
	)

	ContributionsReviewedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contributions_reviewed_total",
			Help: "Total number of contribution reviews",
		},
		[]string{"outcome"},
	)

	UploadTicketsIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_tickets_issued_total",
			Help: "Total number of presigned media upload tickets issued",
		},
		[]string{"kind"},
	)

	RateLimitedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_requests_total",
			Help: "Total number of requests rejected by the per-user rate limiter",
		},
		[]string{"route"},
	)

	// Challenges.
	ChallengeJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "challenge_joins_total",
			Help: "Total number of challenge joins",
		},
	)

	ChallengesCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_completed_total",
			Help: "Total number of challenge participations completed",
		},
		[]string{"language"},
	)

	ChallengesExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "challenges_expired_total",
			Help: "Total number of challenges deactivated after their end date",
		},
	)

	// Languages.
	LanguageActiveContributors = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "language_active_contributors",
			Help: "Current number of distinct contributors per language",
		},
		[]string{"language"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerNotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_notifications_sent_total",
			Help: "Total successful webhook notifications sent",
		},
		[]string{"type"},
	)

	SchedulerNotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_notifications_failed_total",
			Help: "Total failed notification attempts",
		},
		[]string{"reason"},
	)

	SchedulerLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
		[]string{"job"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute a scheduler job",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"job"},
	)
)

// RecordStatsComputation records the outcome and duration of a stats computation.
func RecordStatsComputation(status string, seconds float64) {
	StatsComputationsTotal.WithLabelValues(status).Inc()
	StatsComputationDurationSeconds.Observe(seconds)
}

// ObserveContributionsScanned observes how many records a computation scanned.
func ObserveContributionsScanned(count int) {
	StatsContributionsScanned.Observe(float64(count))
}

// RecordContributionSubmitted records a submitted contribution.
func RecordContributionSubmitted(language, kind string) {
	ContributionsSubmittedTotal.WithLabelValues(language, kind).Inc()
}

// RecordContributionReviewed records a review outcome ("approved" or "rejected").
func RecordContributionReviewed(outcome string) {
	ContributionsReviewedTotal.WithLabelValues(outcome).Inc()
}

// RecordUploadTicketIssued records an issued upload ticket.
func RecordUploadTicketIssued(kind string) {
	UploadTicketsIssuedTotal.WithLabelValues(kind).Inc()
}

// RecordChallengeJoin records a challenge join.
func RecordChallengeJoin() {
	ChallengeJoinsTotal.Inc()
}

// RecordChallengeCompleted records a completed challenge participation.
func RecordChallengeCompleted(language string) {
	ChallengesCompletedTotal.WithLabelValues(language).Inc()
}

// RecordChallengesExpired adds the number of challenges deactivated in one sweep.
func RecordChallengesExpired(count int64) {
	ChallengesExpiredTotal.Add(float64(count))
}

// SetLanguageActiveContributors sets the contributor gauge for a language.
func SetLanguageActiveContributors(language string, count int64) {
	LanguageActiveContributors.WithLabelValues(language).Set(float64(count))
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// RecordSchedulerNotificationSent records a successful notification sent.
func RecordSchedulerNotificationSent(notificationType string) {
	SchedulerNotificationsSentTotal.WithLabelValues(notificationType).Inc()
}

// RecordSchedulerNotificationFailed records a failed notification attempt.
func RecordSchedulerNotificationFailed(reason string) {
	SchedulerNotificationsFailedTotal.WithLabelValues(reason).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last run of a job.
func SetSchedulerLastRun(job string) {
	SchedulerLastRunTimestamp.WithLabelValues(job).SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// RecordRateLimited increments the rate-limited counter for a route.
func RecordRateLimited(route string) {
	RateLimitedRequestsTotal.WithLabelValues(route).Inc()
}
