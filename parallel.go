package consensus

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ComputePairwiseDistancesParallel computes the full n×n distance matrix using
// multiple goroutines. numWorkers controls the degree of parallelism; if <= 1,
// it falls back to single-threaded ComputePairwiseDistances.
//
// The result is bitwise identical to ComputePairwiseDistances.
func ComputePairwiseDistancesParallel(data *mat.Dense, metric DistanceMetric, numWorkers int) *mat.SymDense {
	n, _ := data.Dims()
	if numWorkers <= 1 || n <= 1 {
		return ComputePairwiseDistances(data, metric)
	}

	result := mat.NewSymDense(n, nil)

	// Split rows across workers. Each worker handles a contiguous range of
	// "source" rows and computes dist(i,j) for all j > i in that range.
	// Since row ranges don't overlap, no synchronization is needed for writes.
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		startRow, endRow := partitionRange(n, numWorkers, w)
		if startRow >= endRow {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				ri := data.RawRowView(i)
				for j := i + 1; j < n; j++ {
					result.SetSym(i, j, metric.Distance(ri, data.RawRowView(j)))
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return result
}

// partitionRange returns the half-open slice [start, end) of 0..total-1 owned
// by worker rank out of size workers. Slices are contiguous, disjoint and
// cover the whole range; trailing workers may receive an empty slice.
func partitionRange(total, size, rank int) (start, end int) {
	if size <= 1 {
		return 0, total
	}
	perWorker := (total + size - 1) / size
	start = min(rank*perWorker, total)
	end = min(start+perWorker, total)
	return start, end
}
