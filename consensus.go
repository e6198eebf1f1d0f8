package consensus

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ProgressFunc receives progress notifications such as ("Subsample", 3, 50).
// It is purely observational.
type ProgressFunc func(label string, current, total int)

// Config controls consensus clustering behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// K is the number of clusters requested from every base algorithm and
	// from the final algorithm. Must be in [1, number of samples]. Default: 2.
	K int

	// Subsamples is the number of perturbed rounds. Default: 50.
	Subsamples int

	// SubsampleFraction is the fraction of samples and of features kept when
	// a round subsamples them. 0 disables subsampling: every round then
	// clusters a shuffled copy of the full data. Must be in [0, 1].
	SubsampleFraction float64

	// NormalizeVariance divides every feature by its standard deviation
	// across the rows of each round.
	NormalizeVariance bool

	// Metric is the distance between feature vectors. Default: EuclideanMetric.
	Metric DistanceMetric

	// Algorithms are run on every round. A *Hierarchical entry is run once
	// per linkage in Linkages. Default: [KMeans].
	Algorithms []Algorithm

	// Linkages used for Hierarchical entries of Algorithms.
	// Default: [AverageLinkage].
	Linkages []Linkage

	// FinalAlgorithm clusters 1 - consensus as a distance matrix and must
	// accept a distance matrix. Default: Hierarchical with average linkage.
	FinalAlgorithm Algorithm

	// Threshold zeroes consensus values below it. Must be in [0, 1].
	// Default: 0.
	Threshold float64

	// Seed makes a run reproducible. 0 uses a fixed default seed.
	Seed int64

	// Workers controls the number of goroutines used to build distance
	// matrices inside a round. 0 or 1 is serial.
	Workers int

	// Anneal is the schedule used to reorder the consensus matrix when the
	// final algorithm produces no merge tree.
	Anneal AnnealConfig

	// Coordinator shares the rounds between cooperating workers.
	// Default: Local.
	Coordinator Coordinator

	// Progress is notified after every round. nil disables it. RunParallel
	// serializes the calls of its workers.
	Progress ProgressFunc

	// Logger receives structured logs. Default: zap.NewNop().
	Logger *zap.Logger

	// Metrics records Prometheus instrumentation. nil disables it.
	Metrics *Metrics

	// runID is shared by the workers of one RunParallel call. Nil means Run
	// draws its own.
	runID uuid.UUID
}

// Result contains the output of consensus clustering.
type Result struct {
	// RunID identifies the run in logs.
	RunID uuid.UUID

	// Labels is the final cluster of each sample, in sample order. The same
	// labels are written to Sample.ClusterID.
	Labels []int

	// Consensus is the consensus matrix with rows and columns permuted by
	// Order.
	Consensus *mat.SymDense

	// Order is the presentation order: row i of Consensus is sample Order[i].
	Order []int

	// Tree is the merge tree of the final clustering when the final
	// algorithm is hierarchical, with leaves in presentation order.
	Tree *Node

	// Energy is the best annealing energy; 0 when Tree is set.
	Energy float64

	// Counts are the co-occurrence counters summed across all workers.
	Counts *CoOccurrence

	// Final is false on workers other than rank 0, which only contribute
	// counters: Labels, Consensus, Order and Tree are then unset.
	Final bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		K:              2,
		Subsamples:     50,
		Metric:         EuclideanMetric{},
		Algorithms:     []Algorithm{&KMeans{}},
		Linkages:       []Linkage{AverageLinkage},
		FinalAlgorithm: &Hierarchical{Linkage: AverageLinkage},
		Anneal:         DefaultAnnealConfig(),
		Coordinator:    Local{},
		Logger:         zap.NewNop(),
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.K == 0 {
		cfg.K = d.K
	}
	if cfg.Subsamples == 0 {
		cfg.Subsamples = d.Subsamples
	}
	if cfg.Metric == nil {
		cfg.Metric = d.Metric
	}
	if len(cfg.Algorithms) == 0 {
		cfg.Algorithms = d.Algorithms
	}
	if len(cfg.Linkages) == 0 {
		cfg.Linkages = d.Linkages
	}
	if cfg.FinalAlgorithm == nil {
		cfg.FinalAlgorithm = d.FinalAlgorithm
	}
	cfg.Anneal.applyDefaults()
	if cfg.Coordinator == nil {
		cfg.Coordinator = d.Coordinator
	}
	if cfg.Logger == nil {
		cfg.Logger = d.Logger
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.K < 1 {
		return configErrorf("K must be >= 1, got %d", cfg.K)
	}
	if cfg.Subsamples < 1 {
		return configErrorf("Subsamples must be >= 1, got %d", cfg.Subsamples)
	}
	if cfg.SubsampleFraction < 0 || cfg.SubsampleFraction > 1 {
		return configErrorf("SubsampleFraction must be in [0, 1], got %f", cfg.SubsampleFraction)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return configErrorf("Threshold must be in [0, 1], got %f", cfg.Threshold)
	}
	if cfg.Workers < 0 {
		return configErrorf("Workers must be >= 0, got %d", cfg.Workers)
	}
	for i, alg := range cfg.Algorithms {
		if alg == nil {
			return configErrorf("Algorithms[%d] is nil", i)
		}
	}
	for i, l := range cfg.Linkages {
		if l.Func == nil {
			return configErrorf("Linkages[%d] (%q) has no function", i, l.Name)
		}
	}
	return validateFinalAlgorithm(cfg.FinalAlgorithm)
}

// Run performs consensus clustering on samples. Each round perturbs the data,
// runs every configured algorithm on it and records which samples were
// clustered together; the counters of all workers are then summed, turned
// into a consensus matrix, re-clustered with the final algorithm and
// reordered for presentation.
//
// Errors from base algorithms are returned as is (wrapped with the round and
// algorithm name). ctx only bounds the wait at the worker barrier; rounds,
// final clustering and annealing run to completion.
func Run(ctx context.Context, samples []*Sample, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateSamples(samples); err != nil {
		return nil, err
	}

	n := len(samples)
	full := dataMatrix(samples)
	pert := newPerturber(full, cfg.SubsampleFraction, cfg.NormalizeVariance)
	if cfg.K > n {
		return nil, configErrorf("K must be <= %d samples, got %d", n, cfg.K)
	}
	if cfg.SubsampleFraction > 0 && (pert.sampleCount < cfg.K || pert.featureCount < 1) {
		return nil, configErrorf("SubsampleFraction %g keeps %d samples and %d features, need at least %d and 1",
			cfg.SubsampleFraction, pert.sampleCount, pert.featureCount, cfg.K)
	}

	coord := cfg.Coordinator
	res := &Result{RunID: cfg.runID}
	if res.RunID == uuid.Nil {
		res.RunID = uuid.New()
	}
	logger := cfg.Logger.With(zap.String("run_id", res.RunID.String()), zap.Int("rank", coord.Rank()))

	ResetClusters(samples)
	counts := NewCoOccurrence(n)
	rng := streamRand(cfg.Seed, uint64(coord.Rank()))

	start, end := coord.Scatter(cfg.Subsamples)
	logger.Info("clustering subsamples",
		zap.Int("samples", n),
		zap.Int("k", cfg.K),
		zap.Int("first_round", start),
		zap.Int("rounds", end-start))

	for r := start; r < end; r++ {
		rd := pert.draw(rng)
		for _, alg := range cfg.Algorithms {
			if h, ok := alg.(*Hierarchical); ok {
				for _, l := range cfg.Linkages {
					hl := *h
					hl.Linkage = l
					if err := runRound(&cfg, samples, counts, &hl, rd, r, rng); err != nil {
						return nil, err
					}
				}
				continue
			}
			if err := runRound(&cfg, samples, counts, alg, rd, r, rng); err != nil {
				return nil, err
			}
		}

		cfg.Metrics.roundDone()
		if cfg.Progress != nil {
			cfg.Progress("Subsample", min((r-start+1)*coord.Size(), cfg.Subsamples), cfg.Subsamples)
		}
		logger.Debug("round done", zap.Int("round", r), zap.Stringer("perturbation", rd.kind), zap.Int("rows", len(rd.rows)))
	}

	if err := coord.Barrier(ctx); err != nil {
		return nil, fmt.Errorf("consensus: barrier: %w", err)
	}
	reduced, err := coord.AllReduce(ctx, counts)
	if err != nil {
		return nil, fmt.Errorf("consensus: reducing counters: %w", err)
	}
	res.Counts = reduced

	if coord.Rank() != 0 {
		return res, nil
	}

	if err := finalize(&cfg, samples, res, full, logger); err != nil {
		return nil, err
	}
	return res, nil
}

// runRound clusters one perturbed dataset with one algorithm and records the
// co-occurrences. Labels are cleared again before returning so that the next
// run starts from unlabelled samples.
func runRound(cfg *Config, samples []*Sample, counts *CoOccurrence, alg Algorithm, rd round, r int, rng *rand.Rand) error {
	part, err := alg.Cluster(Input{
		Data:    rd.data,
		K:       cfg.K,
		Metric:  cfg.Metric,
		Rand:    rng,
		Workers: cfg.Workers,
	})
	if err != nil {
		return fmt.Errorf("consensus: round %d: %s: %w", r, alg.Name(), err)
	}

	AssignLabels(samples, rd.rows, part.Labels)
	counts.Observe(samples)
	ResetClusters(samples)
	cfg.Metrics.clustered(alg.Name())
	return nil
}

// finalize builds the consensus matrix, clusters it and reorders it.
func finalize(cfg *Config, samples []*Sample, res *Result, full *mat.Dense, logger *zap.Logger) error {
	started := time.Now()
	defer cfg.Metrics.finalDone(started)

	consensus := res.Counts.Consensus(cfg.Threshold)
	rng := streamRand(cfg.Seed, finalStream)

	part, err := cfg.FinalAlgorithm.Cluster(Input{
		Data:      full,
		Distances: complement(consensus),
		K:         cfg.K,
		Metric:    cfg.Metric,
		Rand:      rng,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return fmt.Errorf("consensus: final clustering: %s: %w", cfg.FinalAlgorithm.Name(), err)
	}
	AssignLabels(samples, nil, part.Labels)
	res.Labels = part.Labels
	res.Final = true

	logger.Info("reordering the consensus matrix", zap.String("final_algorithm", cfg.FinalAlgorithm.Name()))
	if part.Tree != nil {
		Reorder(part.Tree, consensus)
		res.Tree = part.Tree
		res.Order = part.Tree.Leaves()
	} else {
		ar := Anneal(consensus, labelOrder(part.Labels), cfg.Anneal, rng, logger)
		res.Order = ar.Order
		res.Energy = ar.Energy
		cfg.Metrics.annealed(ar.Energy)
	}

	res.Consensus = PermuteSymmetric(consensus, res.Order)
	return nil
}

// complement turns a consensus matrix into a distance matrix: 1 - c off the
// diagonal, 0 on it.
func complement(c *mat.SymDense) *mat.SymDense {
	n := c.SymmetricDim()
	d := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d.SetSym(i, j, 1-c.At(i, j))
		}
	}
	return d
}

// labelOrder sorts sample indices by label, keeping index order within a
// label. It gives annealing a start where clusters are already contiguous.
func labelOrder(labels []int) []int {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return labels[order[a]] < labels[order[b]]
	})
	return order
}

// PermuteSymmetric applies order to both the rows and the columns of m:
// entry (i, j) of the result is m(order[i], order[j]).
func PermuteSymmetric(m mat.Symmetric, order []int) *mat.SymDense {
	n := len(order)
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, m.At(order[i], order[j]))
		}
	}
	return out
}
