package consensus

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CoOccurrence accumulates, for every unordered pair of samples, how many
// clustering runs saw both samples (Total) and how many of those put them in
// the same cluster (Cluster). Counts are kept for i < j in row-major upper
// triangular order. Accumulation is commutative, so counters from disjoint
// sets of rounds can be summed in any order.
type CoOccurrence struct {
	N       int
	Cluster []int
	Total   []int
}

// NewCoOccurrence returns zeroed counters for n samples.
func NewCoOccurrence(n int) *CoOccurrence {
	size := n * (n - 1) / 2
	return &CoOccurrence{N: n, Cluster: make([]int, size), Total: make([]int, size)}
}

// index maps i < j to the triangular offset.
func (c *CoOccurrence) index(i, j int) int {
	return i*c.N - i*(i+1)/2 + (j - i - 1)
}

// Counts returns the counters for the pair (i, j), in either order.
// The diagonal has no counters.
func (c *CoOccurrence) Counts(i, j int) (cluster, total int) {
	if i == j {
		return 0, 0
	}
	if j < i {
		i, j = j, i
	}
	idx := c.index(i, j)
	return c.Cluster[idx], c.Total[idx]
}

// Observe records one clustering run. Every pair of labelled samples counts
// towards Total, and towards Cluster when the labels agree. Unlabelled
// samples (NoCluster) were not part of the run and are skipped.
func (c *CoOccurrence) Observe(samples []*Sample) {
	present := make([]int, 0, len(samples))
	for i, s := range samples {
		if s.ClusterID != NoCluster {
			present = append(present, i)
		}
	}
	for a, i := range present {
		li := samples[i].ClusterID
		for _, j := range present[a+1:] {
			idx := c.index(i, j)
			c.Total[idx]++
			if samples[j].ClusterID == li {
				c.Cluster[idx]++
			}
		}
	}
}

// Add sums other into c elementwise.
func (c *CoOccurrence) Add(other *CoOccurrence) error {
	if other.N != c.N {
		return fmt.Errorf("%w: cannot add counters for %d samples to counters for %d", ErrData, other.N, c.N)
	}
	for i := range c.Total {
		c.Cluster[i] += other.Cluster[i]
		c.Total[i] += other.Total[i]
	}
	return nil
}

// Clone returns an independent copy of c.
func (c *CoOccurrence) Clone() *CoOccurrence {
	return &CoOccurrence{
		N:       c.N,
		Cluster: append([]int(nil), c.Cluster...),
		Total:   append([]int(nil), c.Total...),
	}
}

// Consensus builds the symmetric consensus matrix: Cluster/Total for pairs
// seen at least once and 0 otherwise. Values below threshold are set to 0.
// The diagonal is 0.
func (c *CoOccurrence) Consensus(threshold float64) *mat.SymDense {
	m := mat.NewSymDense(c.N, nil)
	for i := 0; i < c.N; i++ {
		for j := i + 1; j < c.N; j++ {
			idx := c.index(i, j)
			if c.Total[idx] == 0 {
				continue
			}
			v := float64(c.Cluster[idx]) / float64(c.Total[idx])
			if v < threshold {
				v = 0
			}
			m.SetSym(i, j, v)
		}
	}
	return m
}
