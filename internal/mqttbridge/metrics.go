package mqttbridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsync",
		Subsystem: "mqtt",
		Name:      "published_total",
		Help:      "Total number of MQTT messages handed to the client",
	})

	metricPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsync",
		Subsystem: "mqtt",
		Name:      "publish_failures_total",
		Help:      "Total number of MQTT publishes that failed or timed out",
	})
)
