// Package consensus implements consensus clustering.
//
// A consensus run perturbs the data many times, clusters every perturbed
// copy with one or more base algorithms (Hierarchical, KMeans, PAM, SOM) and
// counts how often each pair of samples lands in the same cluster. The
// resulting consensus matrix is clustered once more, treating 1 - consensus
// as a distance, and its rows and columns are reordered so that samples that
// cluster together sit next to each other.
//
// Basic usage:
//
//	samples := consensus.NewSamples(ids, data)
//	cfg := consensus.DefaultConfig()
//	cfg.K = 3
//	cfg.Subsamples = 300
//	cfg.SubsampleFraction = 0.8
//	result, err := consensus.Run(ctx, samples, cfg)
//	// result.Labels[i] is the final cluster of samples[i]
//	// result.Consensus is the reordered consensus matrix
//	// result.Order[i] is the sample shown at row i
//
// # Reordering
//
// When the final algorithm is hierarchical the merge tree is flipped so that
// the leaves at every boundary are as similar as possible, and its leaf
// order is used. Otherwise the order is searched with simulated annealing,
// tuned through Config.Anneal.
//
// # Multiple workers
//
// Rounds can be shared between cooperating workers through a Coordinator.
// RunParallel runs the workers as goroutines of the current process:
//
//	result, err := consensus.RunParallel(ctx, samples, cfg, 4)
//
// Every worker owns a contiguous block of rounds and its own random stream;
// the counters are summed once and only rank 0 produces the final result.
package consensus
