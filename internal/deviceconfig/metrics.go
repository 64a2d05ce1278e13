package deviceconfig

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledsync",
	Subsystem: "device",
	Name:      "requests_total",
	Help:      "Total number of device control requests, by operation and outcome",
}, []string{"op", "outcome"})

const (
	opGetConfig = "get_config"
	opSetValue  = "set_value"
	opToggle    = "toggle"

	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)
