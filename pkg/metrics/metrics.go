package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Notification pipeline
	NotificationsCreated *prometheus.CounterVec
	ChannelSends         *prometheus.CounterVec
	NotificationsSwept   prometheus.Counter

	// Sweep loop
	SweepBatchSize prometheus.Histogram
	SweepDuration  prometheus.Histogram

	// Calendar sync
	CalendarSyncs *prometheus.CounterVec

	// Database
	DatabaseOperations *prometheus.CounterVec
}

// New creates and registers all application metrics on the given registerer.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notification records created",
		}, []string{"kind"}),
		ChannelSends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_sends_total",
			Help:      "Total number of channel send attempts",
		}, []string{"channel", "status"}),
		NotificationsSwept: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_swept_total",
			Help:      "Total number of notifications delivered by the batch sweep",
		}),
		SweepBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_batch_size",
			Help:      "Number of pending notifications picked up per sweep",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time spent running one batch sweep",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		CalendarSyncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_syncs_total",
			Help:      "Total number of calendar sync attempts",
		}, []string{"outcome"}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
