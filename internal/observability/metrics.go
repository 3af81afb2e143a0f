package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelationChanges counts relation edge mutations by kind and action.
	RelationChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_relation_changes_total",
		Help: "Relation edge mutations by kind and action",
	}, []string{"kind", "action"})

	// VotesCast counts vote upserts by target type and value.
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_votes_cast_total",
		Help: "Votes cast by target type and value",
	}, []string{"target_type", "value"})

	// VoteConflictRetries counts vote upserts retried after a uniqueness race.
	VoteConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_vote_conflict_retries_total",
		Help: "Vote upserts retried after a uniqueness conflict",
	})

	// FavoriteChanges counts favorite mutations by action.
	FavoriteChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_favorite_changes_total",
		Help: "Favorite mutations by action",
	}, []string{"action"})

	// ReportsFiled counts filed reports by target type.
	ReportsFiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_reports_filed_total",
		Help: "Reports filed by target type",
	}, []string{"target_type"})

	// ReportTransitions counts pending reports moved to a terminal status.
	ReportTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_report_transitions_total",
		Help: "Report transitions by resulting status",
	}, []string{"status"})

	// CascadeDuration records cascade latency by scope (user or content).
	CascadeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_cascade_duration_seconds",
		Help:    "Cascade transaction latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"scope", "outcome"})

	// CascadeRowsRemoved counts rows removed by cascades per table.
	CascadeRowsRemoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_cascade_rows_removed_total",
		Help: "Rows removed by cascades per table",
	}, []string{"table"})

	// EventPublishFailures counts domain events a sink failed to accept.
	EventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_event_publish_failures_total",
		Help: "Domain event publication failures by sink",
	}, []string{"sink"})

	// RedisErrorRate counts Redis errors by command.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_errors_total",
		Help: "Redis errors by command",
	}, []string{"operation"})

	// DatabaseQueryLatency records query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "agora_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// TrackCascade returns a func that records the cascade latency once the
// outcome is known.
func TrackCascade(scope string) func(err error) {
	start := time.Now()
	return func(err error) {
		outcome := "committed"
		if err != nil {
			outcome = "rolled_back"
		}
		CascadeDuration.WithLabelValues(scope, outcome).Observe(time.Since(start).Seconds())
	}
}

// ObserveQuery records the latency of one database query.
func ObserveQuery(operation, table string, elapsed time.Duration) {
	if table == "" {
		table = "unknown"
	}
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(elapsed.Seconds())
}
