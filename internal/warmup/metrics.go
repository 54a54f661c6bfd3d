package warmup

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once
	jobCounter  *prometheus.CounterVec
)

// SetupMetrics registers the warm-up job counter once. A nil registerer
// means the Prometheus default.
func SetupMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rreo_warmup_jobs_total",
			Help: "Warm-up jobs by final status.",
		}, []string{"status"})
		if err := reg.Register(counter); err == nil {
			jobCounter = counter
		}
	})
}

func observeJob(status string) {
	if jobCounter == nil {
		return
	}
	jobCounter.WithLabelValues(status).Inc()
}
