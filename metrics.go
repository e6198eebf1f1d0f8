package consensus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus instrumentation for consensus runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Clusterings counts base clustering runs per algorithm name.
	Clusterings *prometheus.CounterVec

	// Rounds counts completed subsample rounds.
	Rounds prometheus.Counter

	// FinalDuration observes the time spent on final clustering and
	// reordering.
	FinalDuration prometheus.Histogram

	// AnnealEnergy is the best energy reached by the last annealing reorder.
	AnnealEnergy prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Clusterings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "consensus",
			Name:      "clusterings_total",
			Help:      "Base clustering runs, by algorithm.",
		}, []string{"algorithm"}),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "consensus",
			Name:      "rounds_total",
			Help:      "Completed subsample rounds.",
		}),
		FinalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "consensus",
			Name:      "final_seconds",
			Help:      "Time spent clustering and reordering the consensus matrix.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		AnnealEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "consensus",
			Name:      "anneal_best_energy",
			Help:      "Best energy reached by the last simulated annealing reorder.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Clusterings, m.Rounds, m.FinalDuration, m.AnnealEnergy} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) clustered(algorithm string) {
	if m == nil {
		return
	}
	m.Clusterings.WithLabelValues(algorithm).Inc()
}

func (m *Metrics) roundDone() {
	if m == nil {
		return
	}
	m.Rounds.Inc()
}

func (m *Metrics) finalDone(start time.Time) {
	if m == nil {
		return
	}
	m.FinalDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) annealed(energy float64) {
	if m == nil {
		return
	}
	m.AnnealEnergy.Set(energy)
}
