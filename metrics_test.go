package consensus

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	cfg := scenarioConfig(1)
	cfg.Algorithms = []Algorithm{&KMeans{}, &Hierarchical{}}
	cfg.Linkages = []Linkage{SingleLinkage, CompleteLinkage}
	cfg.Metrics = m

	_, err = Run(context.Background(), twoTriples(), cfg)
	require.NoError(t, err)

	assert.Equal(t, 20.0, testutil.ToFloat64(m.Rounds))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.Clusterings.WithLabelValues("kmeans")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.Clusterings.WithLabelValues("hierarchical-single")))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.Clusterings.WithLabelValues("hierarchical-complete")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.FinalDuration))

	// The tree path never anneals.
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AnnealEnergy))
}

func TestMetrics_AnnealEnergy(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	cfg := scenarioConfig(2)
	cfg.FinalAlgorithm = &PAM{}
	cfg.Anneal.MaxIterations = 5_000
	cfg.Anneal.Stagnation = 1_000
	cfg.Metrics = m

	res, err := Run(context.Background(), twoTriples(), cfg)
	require.NoError(t, err)
	assert.Equal(t, res.Energy, testutil.ToFloat64(m.AnnealEnergy))
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.clustered("kmeans")
		m.roundDone()
		m.annealed(1)
	})
}
