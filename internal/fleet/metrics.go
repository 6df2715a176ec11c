package fleet

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	fleetRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowledgecore",
			Subsystem: "fleet",
			Name:      "requests_total",
			Help:      "Requests dispatched to fleet members, by final outcome.",
		},
		[]string{"profile", "method", "status"},
	)
	fleetDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "knowledgecore",
			Subsystem: "fleet",
			Name:      "request_duration_seconds",
			Help:      "Duration of fleet requests including retries.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"profile", "method"},
	)
	fleetRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "knowledgecore",
			Subsystem: "fleet",
			Name:      "retries_total",
			Help:      "Retries caused by transient transport failures.",
		},
		[]string{"profile"},
	)
)

// RegisterMetrics registers the fleet collectors with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(fleetRequests, fleetDuration, fleetRetries)
	})
}

// statusLabel is the response code, or "error" when no response was received.
func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

func recordRequest(profile, method string, status int, duration time.Duration) {
	RegisterMetrics()
	fleetRequests.WithLabelValues(profile, method, statusLabel(status)).Inc()
	fleetDuration.WithLabelValues(profile, method).Observe(duration.Seconds())
}

func recordRetry(profile string) {
	RegisterMetrics()
	fleetRetries.WithLabelValues(profile).Inc()
}
