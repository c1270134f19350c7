package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbox operations by name and outcome kind ("ok" on success).
	InboxOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_operations_total",
			Help: "Total number of inbox operations",
		},
		[]string{"operation", "result"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inbox_active_subscriptions",
			Help: "Number of live inbox subscriptions",
		},
	)

	SnapshotSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inbox_snapshot_size",
			Help:    "Number of notifications emitted per inbox snapshot",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_created_total",
			Help: "Total number of notifications authored",
		},
		[]string{"type"},
	)
)

// RecordInboxOperation counts one inbox call.
func RecordInboxOperation(operation, result string) {
	InboxOperations.WithLabelValues(operation, result).Inc()
}

// ObserveSnapshot records the size of one emitted snapshot.
func ObserveSnapshot(size int) {
	SnapshotSize.Observe(float64(size))
}

// IncrementNotificationsCreated counts an authored notification by type.
func IncrementNotificationsCreated(notificationType string) {
	NotificationsCreated.WithLabelValues(notificationType).Inc()
}
