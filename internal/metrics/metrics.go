// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch

// Package metrics exposes the Frame's Prometheus gauges and counters.
// Nothing in the spec's Non-goals excludes observability; this is part
// of the ambient stack carried alongside logging and configuration.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "arkham",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Number of jobs currently queued per pool and priority.",
	}, []string{"pool", "priority"})

	LeaseExpirations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkham",
		Subsystem: "queue",
		Name:      "lease_expirations_total",
		Help:      "Jobs whose lease expired and were returned to the pool.",
	}, []string{"pool"})

	JobsDeadLettered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkham",
		Subsystem: "queue",
		Name:      "dead_lettered_total",
		Help:      "Jobs moved to the dead-letter queue after exhausting retries.",
	}, []string{"pool"})

	SearchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arkham",
		Subsystem: "search",
		Name:      "latency_seconds",
		Help:      "Hybrid search request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"engine"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkham",
		Subsystem: "bus",
		Name:      "events_published_total",
		Help:      "Events published to the event bus by topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(QueueDepth, LeaseExpirations, JobsDeadLettered, SearchLatency, EventsPublished)
}
