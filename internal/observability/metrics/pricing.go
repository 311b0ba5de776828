package metrics

import "github.com/prometheus/client_golang/prometheus"

// PricingMetrics counts engine events. It satisfies ports.PricingObserver.
type PricingMetrics struct {
	service string

	fallbackTotal       *prometheus.CounterVec
	classificationTotal *prometheus.CounterVec
	recomputeTotal      *prometheus.CounterVec
}

func NewPricingMetrics(registerer prometheus.Registerer, service string) *PricingMetrics {
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "fallback_total",
			Help:      "Room prices computed with a substitute multiplier for an unknown class.",
		},
		[]string{"service", "axis"},
	)
	classificationTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "classifications_total",
			Help:      "Automated room classifications by outcome.",
		},
		[]string{"service", "outcome"},
	)
	recomputeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "job_recomputations_total",
			Help:      "Job total recomputations by trigger.",
		},
		[]string{"service", "trigger"},
	)

	registerer.MustRegister(fallbackTotal, classificationTotal, recomputeTotal)

	return &PricingMetrics{
		service:             service,
		fallbackTotal:       fallbackTotal,
		classificationTotal: classificationTotal,
		recomputeTotal:      recomputeTotal,
	}
}

func (m *PricingMetrics) RecordFallback(axis string) {
	m.fallbackTotal.WithLabelValues(m.service, axis).Inc()
}

func (m *PricingMetrics) RecordClassification(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.classificationTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *PricingMetrics) RecordRecompute(trigger string) {
	if trigger == "" {
		trigger = "unknown"
	}
	m.recomputeTotal.WithLabelValues(m.service, trigger).Inc()
}
