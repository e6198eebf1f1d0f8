package consensus

import (
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// NoCluster is the label of a sample that has not been assigned to a cluster.
const NoCluster = -1

// Sample is one item to be clustered. Data is the canonical feature vector
// and is never modified; algorithms work on per-round copies. ClusterID is
// written by Run and is NoCluster outside of a labelled state.
type Sample struct {
	ID        string
	Data      []float64
	ClusterID int
	Class     string
}

// NewSamples wraps raw feature vectors into unlabelled samples. ids may be
// nil, in which case the row index is used as the identifier.
func NewSamples(ids []string, data [][]float64) []*Sample {
	samples := make([]*Sample, len(data))
	for i, row := range data {
		id := strconv.Itoa(i)
		if ids != nil {
			id = ids[i]
		}
		samples[i] = &Sample{ID: id, Data: row, ClusterID: NoCluster}
	}
	return samples
}

// ResetClusters clears the label of every sample.
func ResetClusters(samples []*Sample) {
	for _, s := range samples {
		s.ClusterID = NoCluster
	}
}

// AssignLabels writes labels[r] to the sample at rows[r]. When rows is nil,
// label r goes to samples[r].
func AssignLabels(samples []*Sample, rows []int, labels []int) {
	for r, label := range labels {
		idx := r
		if rows != nil {
			idx = rows[r]
		}
		samples[idx].ClusterID = label
	}
}

// validateSamples checks that there is at least one sample, that all
// feature vectors share a length and that identifiers are unique.
func validateSamples(samples []*Sample) error {
	if len(samples) == 0 {
		return dataErrorf("no samples")
	}
	dims := len(samples[0].Data)
	if dims == 0 {
		return dataErrorf("sample %q has no features", samples[0].ID)
	}
	seen := make(map[string]int, len(samples))
	for i, s := range samples {
		if len(s.Data) != dims {
			return dataErrorf("sample %q has %d features, want %d", s.ID, len(s.Data), dims)
		}
		if j, ok := seen[s.ID]; ok {
			return dataErrorf("samples %d and %d share identifier %q", j, i, s.ID)
		}
		seen[s.ID] = i
	}
	return nil
}

// dataMatrix stacks the canonical feature vectors into an n×m matrix.
func dataMatrix(samples []*Sample) *mat.Dense {
	n, m := len(samples), len(samples[0].Data)
	flat := make([]float64, 0, n*m)
	for _, s := range samples {
		flat = append(flat, s.Data...)
	}
	return mat.NewDense(n, m, flat)
}

// cloneSamples deep-copies the mutable state of samples so that concurrent
// workers never write the same ClusterID field.
func cloneSamples(samples []*Sample) []*Sample {
	out := make([]*Sample, len(samples))
	for i, s := range samples {
		c := *s
		out[i] = &c
	}
	return out
}
