package observability

import (
	"time"

	"github.com/portalcadastro/cadastro-api/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the registration API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	registrationsTotal   *prometheus.CounterVec
	stepDuration         *prometheus.HistogramVec
	compensationsTotal   *prometheus.CounterVec
	compensationFailures *prometheus.CounterVec
	externalErrors       *prometheus.CounterVec
	cacheHits            *prometheus.CounterVec
	cacheMisses          *prometheus.CounterVec
}

// Registration outcomes used as label values.
const (
	OutcomeCommitted = "committed"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		registrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadastro_registrations_total",
				Help: "Registration attempts by account class and outcome.",
			},
			[]string{"class", "outcome"},
		),
		stepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cadastro_saga_step_duration_seconds",
				Help:    "Duration of saga steps.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		compensationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadastro_compensations_total",
				Help: "Compensating deletes executed during rollback.",
			},
			[]string{"step"},
		),
		compensationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadastro_compensation_failures_total",
				Help: "Compensating deletes that themselves failed.",
			},
			[]string{"step"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadastro_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadastro_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadastro_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// IncrRegistration counts a finished registration attempt.
func (m *Metrics) IncrRegistration(class, outcome string) {
	m.registrationsTotal.WithLabelValues(class, outcome).Inc()
}

// ObserveStep records the duration of one saga step.
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// IncrCompensation counts a compensating delete.
func (m *Metrics) IncrCompensation(step string) {
	m.compensationsTotal.WithLabelValues(step).Inc()
}

// IncrCompensationFailure counts a failed compensating delete.
func (m *Metrics) IncrCompensationFailure(step string) {
	m.compensationFailures.WithLabelValues(step).Inc()
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetRegistrationSnapshot returns current totals for the
// GET /v1/metrics/registrations endpoint.
func (m *Metrics) GetRegistrationSnapshot() *domain.RegistrationMetrics {
	var committed, duplicates, invalid, failed float64
	for _, class := range []string{string(domain.ClassCliente), string(domain.ClassAdmin)} {
		committed += getCounterValue(m.registrationsTotal, class, OutcomeCommitted)
		duplicates += getCounterValue(m.registrationsTotal, class, OutcomeDuplicate)
		invalid += getCounterValue(m.registrationsTotal, class, OutcomeInvalid)
		failed += getCounterValue(m.registrationsTotal, class, OutcomeFailed)
	}

	var comps, compFailures float64
	for _, step := range []string{"contato", "endereco", "dados_usuario", "cliente", "admin", "provider_account"} {
		comps += getCounterValue(m.compensationsTotal, step)
		compFailures += getCounterValue(m.compensationFailures, step)
	}

	hits := getCounterValue(m.cacheHits, "admin")
	misses := getCounterValue(m.cacheMisses, "admin")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.RegistrationMetrics{
		TotalAttempts:         int64(committed + duplicates + invalid + failed),
		Committed:             int64(committed),
		Duplicates:            int64(duplicates),
		Failed:                int64(invalid + failed),
		CompensationsExecuted: int64(comps),
		CompensationFailures:  int64(compFailures),
		CacheHitRate:          hitRate,
		Period:                "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
