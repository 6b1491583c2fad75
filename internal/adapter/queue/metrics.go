package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_published_total",
			Help: "Total events accepted by the bus, by type",
		},
		[]string{"type"},
	)

	eventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_events_consumed_total",
			Help: "Total events delivered to handlers, by type",
		},
		[]string{"type"},
	)

	handlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bus_handler_errors_total",
			Help: "Total handler failures (events nacked for redelivery), by type",
		},
		[]string{"type"},
	)
)
