package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/protolambda/zrnt/eth2/beacon/common"

	"github.com/protolambda/beacon-participation/participation"
)

const (
	namespace  = "beacon_network"
	rangeLabel = "range"
)

// Metrics holds the exported gauges. It is shared by the monitor loop and the scrape server,
// the prometheus vectors synchronize access internally.
type Metrics struct {
	registry *prometheus.Registry

	source      *prometheus.GaugeVec
	target      *prometheus.GaugeVec
	head        *prometheus.GaugeVec
	inactivity  *prometheus.GaugeVec
	validators  *prometheus.GaugeVec
	stateSlot   prometheus.Gauge
	failures    *prometheus.CounterVec
	lastCycleTs prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	rangeVec := func(name, help string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{rangeLabel})
	}
	return &Metrics{
		registry:   reg,
		source:     rangeVec("source_participation", "Ratio of validators in the range with a timely source vote in the previous epoch."),
		target:     rangeVec("target_participation", "Ratio of validators in the range with a timely target vote in the previous epoch."),
		head:       rangeVec("head_participation", "Ratio of validators in the range with a timely head vote in the previous epoch."),
		inactivity: rangeVec("inactivity_scores", "Average inactivity score of the validators in the range."),
		validators: rangeVec("range_validators", "Number of validators in the range."),
		stateSlot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state_slot",
			Help:      "Slot of the last decoded state.",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      "Failed polling cycles, by the stage that failed.",
		}, []string{"stage"}),
		lastCycleTs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last completed polling cycle.",
		}),
	}
}

// Publish sets the gauges of every given range. Ranges that are not in summaries keep their previous values.
func (m *Metrics) Publish(summaries map[string]participation.Summary) {
	for name, s := range summaries {
		m.source.WithLabelValues(name).Set(s.SourceRatio)
		m.target.WithLabelValues(name).Set(s.TargetRatio)
		m.head.WithLabelValues(name).Set(s.HeadRatio)
		m.inactivity.WithLabelValues(name).Set(s.InactivityScoresAvg)
		m.validators.WithLabelValues(name).Set(float64(s.Validators))
	}
}

func (m *Metrics) RecordSlot(slot common.Slot) {
	m.stateSlot.Set(float64(slot))
}

func (m *Metrics) RecordCycle(t time.Time) {
	m.lastCycleTs.Set(float64(t.Unix()))
}

func (m *Metrics) RecordFailure(stage string) {
	m.failures.WithLabelValues(stage).Inc()
}

// Handler serves the registry in the prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
