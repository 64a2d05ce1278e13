package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDatagramsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledsync",
		Subsystem: "discovery",
		Name:      "datagrams_total",
		Help:      "Total number of datagrams received on the announcement port, by result",
	}, []string{"result"})
	metricAnnouncementsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ledsync",
		Subsystem: "discovery",
		Name:      "announcements_sent_total",
		Help:      "Total number of DEVICEID discovery requests broadcast",
	})
)

const (
	resultAccepted  = "accepted"
	resultDiscarded = "discarded"
)

func init() {
	metricDatagramsReceived.WithLabelValues(resultAccepted)
	metricDatagramsReceived.WithLabelValues(resultDiscarded)
}
