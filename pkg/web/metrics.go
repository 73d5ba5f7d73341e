package web

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the diagnosis service
type Metrics struct {
	Diagnoses         *prometheus.CounterVec // By outcome: diagnosed, no_diagnosis, rejected
	AnomaliesDetected *prometheus.CounterVec // By observable
	DiagnosisSeconds  prometheus.Histogram
	Requests          *prometheus.CounterVec // By route and status code
}

// NewMetrics creates the service metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultgraph_diagnoses_total",
			Help: "Diagnosis requests by outcome",
		}, []string{"outcome"}),
		AnomaliesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultgraph_anomalies_detected_total",
			Help: "Anomalous telemetry series by observable",
		}, []string{"observable"}),
		DiagnosisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "faultgraph_diagnosis_duration_seconds",
			Help:    "Time spent detecting anomalies and ranking root causes",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "faultgraph_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(m.Diagnoses, m.AnomaliesDetected, m.DiagnosisSeconds, m.Requests)
	return m
}
