package consensus

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans is Lloyd-style relocation clustering. K centroids start uniformly at
// random inside the per-feature [min, max] box of the data and are moved to
// the mean of their members until no centroid coordinate changes.
//
// Convergence is checked with exact floating-point equality by default. On
// data where the mean computation oscillates in the last bit this may never
// terminate; set Tolerance or MaxIterations to bound it.
//
// Labels are centroid indices. A centroid that never attracts a sample keeps
// its position and its index never appears, so fewer than K clusters is a
// valid outcome.
type KMeans struct {
	// Tolerance is the largest coordinate change still treated as "not
	// moved". 0 means exact equality.
	Tolerance float64

	// MaxIterations caps the number of assign/update passes. 0 means no cap.
	MaxIterations int
}

func (km *KMeans) Name() string { return "kmeans" }

func (km *KMeans) AcceptsDistanceMatrix() bool { return false }

// Cluster runs the relocation loop on in.Data.
func (km *KMeans) Cluster(in Input) (*Partition, error) {
	in.applyDefaults()
	if err := in.validate(km.Name(), true); err != nil {
		return nil, err
	}

	n, dims := in.Data.Dims()
	k := in.K
	centroids := randomPointsInRange(in.Data, k, in.Rand)

	labels := make([]int, n)
	counts := make([]int, k)
	sums := mat.NewDense(k, dims, nil)
	var trace []float64

	for iter := 1; ; iter++ {
		// Assign every row to its nearest centroid; ties go to the lowest index.
		var sse float64
		for i := 0; i < n; i++ {
			row := in.Data.RawRowView(i)
			best, bestDist := 0, math.Inf(1)
			for c := 0; c < k; c++ {
				if d := in.Metric.Distance(centroids.RawRowView(c), row); c == 0 || d < bestDist {
					best, bestDist = c, d
				}
			}
			labels[i] = best
			sse += bestDist * bestDist
		}
		trace = append(trace, sse)

		// Move populated centroids to the mean of their members.
		sums.Zero()
		clear(counts)
		for i := 0; i < n; i++ {
			floats.Add(sums.RawRowView(labels[i]), in.Data.RawRowView(i))
			counts[labels[i]]++
		}

		moved := false
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			mean := sums.RawRowView(c)
			floats.Scale(1/float64(counts[c]), mean)
			cur := centroids.RawRowView(c)
			for j := range cur {
				if km.changed(cur[j], mean[j]) {
					cur[j] = mean[j]
					moved = true
				}
			}
		}

		if !moved || (km.MaxIterations > 0 && iter >= km.MaxIterations) {
			break
		}
	}

	return &Partition{Labels: labels, Trace: trace}, nil
}

func (km *KMeans) changed(old, updated float64) bool {
	if km.Tolerance > 0 {
		return math.Abs(old-updated) > km.Tolerance
	}
	return old != updated
}

// randomPointsInRange draws count points uniformly inside the per-column
// [min, max] box of data. Points are drawn one at a time, feature by feature.
func randomPointsInRange(data *mat.Dense, count int, rng *rand.Rand) *mat.Dense {
	_, dims := data.Dims()
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	for j := 0; j < dims; j++ {
		col := mat.Col(nil, j, data)
		mins[j], maxs[j] = floats.Min(col), floats.Max(col)
	}

	points := mat.NewDense(count, dims, nil)
	for c := 0; c < count; c++ {
		row := points.RawRowView(c)
		for j := 0; j < dims; j++ {
			row[j] = rng.Float64()*(maxs[j]-mins[j]) + mins[j]
		}
	}
	return points
}
