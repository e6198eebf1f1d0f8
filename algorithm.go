package consensus

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Algorithm is a base clustering method. Hierarchical, KMeans, PAM and SOM
// implement it; Run treats them interchangeably.
type Algorithm interface {
	// Name identifies the algorithm in logs and metrics.
	Name() string

	// AcceptsDistanceMatrix reports whether Cluster can work from
	// Input.Distances alone. Only such algorithms may cluster the
	// consensus matrix.
	AcceptsDistanceMatrix() bool

	// Cluster partitions the rows of in.Data (or of in.Distances) into
	// in.K groups.
	Cluster(in Input) (*Partition, error)
}

// Input is what a base algorithm sees for one clustering run. Row r of Data
// and row/column r of Distances describe the same item.
type Input struct {
	// Data is the current n×m feature matrix. It may be a row or column
	// subsample of the canonical sample data.
	Data *mat.Dense

	// Distances is an optional precomputed n×n distance matrix. Algorithms
	// that need one build it from Data and Metric when it is nil.
	Distances *mat.SymDense

	// K is the requested number of clusters, 1 <= K <= n.
	K int

	// Metric measures distances between rows of Data. Default: EuclideanMetric.
	Metric DistanceMetric

	// Rand drives every random choice. Default: a source seeded with 1.
	Rand *rand.Rand

	// Workers parallelizes distance matrix construction. 0 or 1 is serial.
	Workers int
}

// Partition is the outcome of one clustering run.
type Partition struct {
	// Labels[r] is the cluster of row r. Labels are not necessarily
	// contiguous: PAM labels rows by medoid row index, and KMeans may leave
	// centroid indices unused.
	Labels []int

	// Tree is the full merge tree (Hierarchical only).
	Tree *Node

	// Medoids are the converged medoid rows (PAM only).
	Medoids []int

	// Trace records the objective after each iteration: summed squared
	// distance to centroids for KMeans, total medoid cost for PAM (the first
	// entry is the cost of the random initial medoids).
	Trace []float64
}

// rows returns the number of items in the input.
func (in *Input) rows() int {
	if in.Data != nil {
		n, _ := in.Data.Dims()
		return n
	}
	if in.Distances != nil {
		return in.Distances.SymmetricDim()
	}
	return 0
}

// applyDefaults fills in the metric and random source.
func (in *Input) applyDefaults() {
	if in.Metric == nil {
		in.Metric = EuclideanMetric{}
	}
	if in.Rand == nil {
		in.Rand = rand.New(rand.NewSource(defaultSeed))
	}
}

// distances returns the precomputed distance matrix, building and caching it
// from Data on first use.
func (in *Input) distances() *mat.SymDense {
	if in.Distances == nil {
		in.Distances = ComputePairwiseDistancesParallel(in.Data, in.Metric, in.Workers)
	}
	return in.Distances
}

// validate checks the parts of the input every algorithm relies on.
func (in *Input) validate(name string, needData bool) error {
	n := in.rows()
	if needData && in.Data == nil {
		return configErrorf("%s needs a data matrix", name)
	}
	if n == 0 {
		return dataErrorf("%s: no rows to cluster", name)
	}
	if in.K < 1 || in.K > n {
		return configErrorf("%s: K must be in [1, %d], got %d", name, n, in.K)
	}
	return checkDistances(in.Distances, n)
}

// AlgorithmByName resolves the names accepted in run files. Hierarchical
// algorithms are returned with average linkage; Run reapplies each configured
// linkage when the algorithm is used for subsample rounds.
func AlgorithmByName(name string) (Algorithm, error) {
	switch name {
	case "hierarchical", "Hierarchical":
		return &Hierarchical{Linkage: AverageLinkage}, nil
	case "kmeans", "KMeans":
		return &KMeans{}, nil
	case "pam", "PAM":
		return &PAM{}, nil
	case "som", "SOM":
		return &SOM{}, nil
	default:
		return nil, configErrorf("unknown algorithm %q", name)
	}
}

// validateFinalAlgorithm reports whether alg can cluster a consensus matrix.
func validateFinalAlgorithm(alg Algorithm) error {
	if alg == nil {
		return configErrorf("final algorithm is nil")
	}
	if !alg.AcceptsDistanceMatrix() {
		return configErrorf("final algorithm %s does not accept a distance matrix", alg.Name())
	}
	return nil
}
