// Package metrics records deployer progress as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "wv_deployer"

type Metricer interface {
	RecordDeployment(contract string)
	RecordTransaction(method string)
	RecordRevert(stage string)
	RecordStage(stage string, d time.Duration)
	RecordPhase(index int)
}

type Metrics struct {
	registry *prometheus.Registry

	deployments  *prometheus.CounterVec
	transactions *prometheus.CounterVec
	reverts      *prometheus.CounterVec
	stages       *prometheus.HistogramVec
	phase        prometheus.Gauge
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		deployments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "deployments_total",
			Help:      "Number of contracts deployed, by contract name",
		}, []string{"contract"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transactions_total",
			Help:      "Number of contract transactions sent, by method",
		}, []string{"method"}),
		reverts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "reverts_total",
			Help:      "Number of reverted deployments or transactions, by stage",
		}, []string{"stage"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "phase",
			Help:      "Index of the current deployment phase, -1 when failed",
		}),
	}
	registry.MustRegister(m.deployments, m.transactions, m.reverts, m.stages, m.phase)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) RecordDeployment(contract string) {
	m.deployments.WithLabelValues(contract).Inc()
}

func (m *Metrics) RecordTransaction(method string) {
	m.transactions.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordRevert(stage string) {
	m.reverts.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordStage(stage string, d time.Duration) {
	m.stages.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordPhase(index int) {
	m.phase.Set(float64(index))
}

type noopMetrics struct{}

var NoopMetrics Metricer = noopMetrics{}

func (noopMetrics) RecordDeployment(string) {}
func (noopMetrics) RecordTransaction(string) {}
func (noopMetrics) RecordRevert(string) {}
func (noopMetrics) RecordStage(string, time.Duration) {}
func (noopMetrics) RecordPhase(int) {}
