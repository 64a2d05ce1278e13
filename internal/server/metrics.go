package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricAPIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledsync",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of API requests, by response status code",
	}, []string{"code"})

	metricEventClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ledsync",
		Subsystem: "api",
		Name:      "event_clients",
		Help:      "Number of connected event stream clients",
	})
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}
