package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce   sync.Once
	lookupCounter *prometheus.CounterVec
)

// SetupMetrics registers the cache lookup counter once. A nil registerer
// means the Prometheus default.
func SetupMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rreo_cache_lookups_total",
			Help: "Dataset cache lookups partitioned by tier and result.",
		}, []string{"tier", "result"})
		if err := reg.Register(counter); err == nil {
			lookupCounter = counter
		}
	})
}

func observeLookup(tier Source, result string) {
	if lookupCounter == nil {
		return
	}
	lookupCounter.WithLabelValues(string(tier), result).Inc()
}
