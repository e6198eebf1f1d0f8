package consensus

import (
	"gonum.org/v1/gonum/mat"
)

// PAM is K-medoids clustering by first-improvement swapping. It starts from
// K distinct rows drawn at random and, for each medoid slot in turn, tries
// every non-medoid row as a replacement. The first replacement that strictly
// lowers the total cost is adopted and the scan restarts from slot 0. The
// search stops after a full pass without an improving swap.
//
// Each pass makes O(K·N) candidate evaluations costing O(K·N) each. The
// search is exhaustive on purpose; it is only practical for modest N.
//
// Every row is labelled with the row index of its nearest converged medoid,
// ties going to the lowest medoid row.
type PAM struct{}

func (p *PAM) Name() string { return "pam" }

func (p *PAM) AcceptsDistanceMatrix() bool { return true }

// Cluster runs the swap search on in.Distances, or on distances computed
// from in.Data when none are supplied.
func (p *PAM) Cluster(in Input) (*Partition, error) {
	in.applyDefaults()
	if err := in.validate(p.Name(), in.Distances == nil); err != nil {
		return nil, err
	}

	dist := in.distances()
	n, k := in.rows(), in.K

	medoids := in.Rand.Perm(n)[:k]
	cost := medoidCost(dist, medoids, n)
	trace := []float64{cost}

	isMedoid := make([]bool, n)
	for _, m := range medoids {
		isMedoid[m] = true
	}

	candidate := make([]int, k)
	for swapped := true; swapped; {
		swapped = false
	slots:
		for slot := 0; slot < k; slot++ {
			copy(candidate, medoids)
			for row := 0; row < n; row++ {
				if isMedoid[row] {
					continue
				}
				candidate[slot] = row
				if c := medoidCost(dist, candidate, n); c < cost {
					isMedoid[medoids[slot]] = false
					isMedoid[row] = true
					medoids[slot] = row
					cost = c
					trace = append(trace, cost)
					swapped = true
					break slots
				}
			}
		}
	}

	labels := make([]int, n)
	for j := 0; j < n; j++ {
		labels[j] = nearestMedoid(dist, medoids, j)
	}

	return &Partition{Labels: labels, Medoids: append([]int(nil), medoids...), Trace: trace}, nil
}

// medoidCost is the sum over all rows of the distance to the closest medoid.
func medoidCost(dist mat.Symmetric, medoids []int, n int) float64 {
	var total float64
	for j := 0; j < n; j++ {
		best := dist.At(medoids[0], j)
		for _, m := range medoids[1:] {
			if d := dist.At(m, j); d < best {
				best = d
			}
		}
		total += best
	}
	return total
}

// nearestMedoid returns the medoid row closest to row j, preferring the
// lowest medoid row on ties.
func nearestMedoid(dist mat.Symmetric, medoids []int, j int) int {
	best, bestDist := -1, 0.0
	for _, m := range medoids {
		d := dist.At(m, j)
		if best < 0 || d < bestDist || (d == bestDist && m < best) {
			best, bestDist = m, d
		}
	}
	return best
}
