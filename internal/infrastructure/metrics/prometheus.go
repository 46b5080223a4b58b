// Package metrics exposes turn service metrics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taketurn"

// Recorder owns a private registry so several instances can coexist in
// one process, as they do in tests.
type Recorder struct {
	registry         *prometheus.Registry
	usecaseRequests  *prometheus.CounterVec
	usecaseDurations *prometheus.HistogramVec
	listeners        prometheus.Gauge
	publishFailures  *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		usecaseRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usecase_requests_total",
				Help:      "Number of turn use case executions by outcome.",
			},
			[]string{"use_case", "outcome"},
		),
		usecaseDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "usecase_duration_seconds",
				Help:      "Latency of turn use case executions.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"use_case"},
		),
		listeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fanout_listeners",
			Help:      "Listeners currently subscribed to turn changes.",
		}),
		publishFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_failures_total",
				Help:      "Turn events that could not be delivered to a sink.",
			},
			[]string{"sink"},
		),
	}

	r.registry.MustRegister(
		r.usecaseRequests,
		r.usecaseDurations,
		r.listeners,
		r.publishFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveUseCase(useCase, outcome string, elapsed time.Duration) {
	r.usecaseRequests.WithLabelValues(useCase, outcome).Inc()
	r.usecaseDurations.WithLabelValues(useCase).Observe(elapsed.Seconds())
}

// ListenerGauge is handed to the fanout notifier.
func (r *Recorder) ListenerGauge() prometheus.Gauge {
	return r.listeners
}

func (r *Recorder) PublishFailed(sink string) {
	r.publishFailures.WithLabelValues(sink).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
