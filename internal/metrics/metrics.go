package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "box_events_received_total",
		Help: "Total number of event reports received from boxes.",
	})

	EventsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "box_events_duplicate_total",
		Help: "Total number of reports rejected by the replay guard.",
	})

	EventsFiltered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "box_events_filtered_total",
		Help: "Total number of events suppressed, labelled by reason tag.",
	}, []string{"reason"})

	EventsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "box_events_persisted_total",
		Help: "Total number of persisted events, labelled by marking.",
	}, []string{"marking"})

	EventsReviewQueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "box_events_review_queued_total",
		Help: "Total number of events pushed to the review queue.",
	})

	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "box_event_processing_duration_seconds",
		Help:    "End-to-end report processing latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
)
