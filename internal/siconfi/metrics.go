package siconfi

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce       sync.Once
	pagesCounter      prometheus.Counter
	truncationCounter prometheus.Counter
	attemptsCounter   *prometheus.CounterVec
)

// SetupMetrics registers the pipeline collectors once. A nil registerer
// means the Prometheus default.
func SetupMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		pages := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rreo_upstream_pages_total",
			Help: "Upstream pages fetched and decoded.",
		})
		truncations := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rreo_upstream_truncations_total",
			Help: "Attempts stopped by the page limit with data pending.",
		})
		attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rreo_query_attempts_total",
			Help: "Query attempts partitioned by result (hit, empty, failed).",
		}, []string{"result"})
		if err := reg.Register(pages); err == nil {
			pagesCounter = pages
		}
		if err := reg.Register(truncations); err == nil {
			truncationCounter = truncations
		}
		if err := reg.Register(attempts); err == nil {
			attemptsCounter = attempts
		}
	})
}

func observePage() {
	if pagesCounter != nil {
		pagesCounter.Inc()
	}
}

func observeTruncation() {
	if truncationCounter != nil {
		truncationCounter.Inc()
	}
}

func observeAttempt(result string) {
	if attemptsCounter != nil {
		attemptsCounter.WithLabelValues(result).Inc()
	}
}
