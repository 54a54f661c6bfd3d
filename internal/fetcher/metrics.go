package fetcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeStatus    = "status_error"
	outcomeMalformed = "malformed"
)

var (
	metricsOnce     sync.Once
	requestsCounter *prometheus.CounterVec
)

// SetupMetrics registers the upstream request counter once. A nil registerer
// means the Prometheus default.
func SetupMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rreo_upstream_requests_total",
			Help: "Upstream HTTP requests partitioned by outcome.",
		}, []string{"outcome"})
		if err := reg.Register(counter); err != nil {
			return
		}
		requestsCounter = counter
	})
}

func observeRequest(outcome string) {
	if requestsCounter == nil {
		return
	}
	requestsCounter.WithLabelValues(outcome).Inc()
}
