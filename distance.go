package consensus

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DistanceMetric measures the dissimilarity of two feature vectors of equal
// length. Implementations must be symmetric, non-negative and return 0 for
// identical inputs.
type DistanceMetric interface {
	Distance(a, b []float64) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
type DistanceFunc func(a, b []float64) float64

func (f DistanceFunc) Distance(a, b []float64) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 2) }

// ManhattanMetric computes the Manhattan (L1 / city-block) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b []float64) float64 { return floats.Distance(a, b, 1) }

// ChebyshevMetric computes the Chebyshev (L-infinity) distance.
type ChebyshevMetric struct{}

func (ChebyshevMetric) Distance(a, b []float64) float64 {
	return floats.Distance(a, b, math.Inf(1))
}

// MinkowskiMetric computes the Minkowski distance parameterized by P.
// P must be >= 1. Panics if P < 1.
type MinkowskiMetric struct {
	P float64
}

func (m MinkowskiMetric) Distance(a, b []float64) float64 {
	if m.P < 1 {
		panic("MinkowskiMetric: P must be >= 1")
	}
	return floats.Distance(a, b, m.P)
}

// CosineMetric computes the cosine distance: 1 - cosine_similarity.
// For two zero vectors, the result is NaN (0/0).
type CosineMetric struct{}

func (CosineMetric) Distance(a, b []float64) float64 {
	return 1.0 - floats.Dot(a, b)/(floats.Norm(a, 2)*floats.Norm(b, 2))
}

// PearsonMetric computes the correlation distance 1 - r, in [0, 2].
// Constant vectors have undefined correlation and yield NaN.
type PearsonMetric struct{}

func (PearsonMetric) Distance(a, b []float64) float64 {
	return 1.0 - stat.Correlation(a, b, nil)
}

// MetricByName resolves the names accepted in run files.
func MetricByName(name string) (DistanceMetric, error) {
	switch name {
	case "", "euclidean":
		return EuclideanMetric{}, nil
	case "manhattan":
		return ManhattanMetric{}, nil
	case "chebyshev":
		return ChebyshevMetric{}, nil
	case "cosine":
		return CosineMetric{}, nil
	case "pearson":
		return PearsonMetric{}, nil
	default:
		return nil, configErrorf("unknown metric %q", name)
	}
}

// ComputePairwiseDistances computes the full n×n distance matrix between the
// rows of data. Only the n(n-1)/2 upper-triangle distances are evaluated; the
// symmetric storage mirrors them and the diagonal stays zero.
func ComputePairwiseDistances(data *mat.Dense, metric DistanceMetric) *mat.SymDense {
	n, _ := data.Dims()
	result := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		ri := data.RawRowView(i)
		for j := i + 1; j < n; j++ {
			result.SetSym(i, j, metric.Distance(ri, data.RawRowView(j)))
		}
	}

	return result
}

// checkDistances verifies that a precomputed distance matrix matches the
// number of rows the caller is clustering.
func checkDistances(d *mat.SymDense, n int) error {
	if d == nil {
		return nil
	}
	if d.SymmetricDim() != n {
		return fmt.Errorf("%w: distance matrix is %d×%d, want %d×%d", ErrData, d.SymmetricDim(), d.SymmetricDim(), n, n)
	}
	return nil
}
