package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	SecretsCreated   = prometheus.NewCounter(prometheus.CounterOpts{Name: "secrets_created_total", Help: "Secrets stored"})
	SecretsRetrieved = prometheus.NewCounter(prometheus.CounterOpts{Name: "secrets_retrieved_total", Help: "Secrets delivered exactly once"})
	SecretsExpired   = prometheus.NewCounter(prometheus.CounterOpts{Name: "secrets_expired_total", Help: "Secrets removed by TTL"})
	SecretsEvicted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "secrets_evicted_total", Help: "Secrets evicted under memory pressure"})
	VaultMemoryBytes = prometheus.NewGauge(prometheus.GaugeOpts{Name: "vault_memory_bytes", Help: "Payload bytes currently held"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "Request latency by route and status", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

func Init(logger zerolog.Logger) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	toRegister := []prometheus.Collector{
		SecretsCreated, SecretsRetrieved, SecretsExpired, SecretsEvicted,
		VaultMemoryBytes, HTTPRequestDuration,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		_ = reg.Register(c)
	}
	logger.Info().Msg("Prometheus metrics initialized")
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
