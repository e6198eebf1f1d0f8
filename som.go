package consensus

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SOM is self-organizing map clustering on a VDim×HDim grid of nodes. Node
// weights start uniformly at random in the per-feature data range and are
// trained in batch: every epoch accumulates, for each sample, a pull towards
// the sample on all nodes inside a shrinking neighbourhood of its best
// matching unit, and applies the accumulated deltas once at the end of the
// epoch. Neighbourhood radius and learning rate both decay exponentially.
//
// After training each sample joins its nearest node. Populated nodes become
// clusters, numbered in order of first appearance, so the number of clusters
// can exceed K.
type SOM struct {
	// HDim is the number of grid columns. Default: K. Must be >= 2.
	HDim int

	// VDim is the number of grid rows. Default: 2. Must be >= 2.
	VDim int

	// LearnRate is the initial learning rate. Default: 0.001.
	LearnRate float64

	// Epochs is the number of training epochs. Default: 2000.
	Epochs int
}

const (
	defaultSOMVDim      = 2
	defaultSOMLearnRate = 0.001
	defaultSOMEpochs    = 2000
)

func (s *SOM) Name() string { return "som" }

func (s *SOM) AcceptsDistanceMatrix() bool { return false }

// grid resolves the configured grid dimensions against K.
func (s *SOM) grid(k int) (hdim, vdim int) {
	hdim, vdim = s.HDim, s.VDim
	if hdim == 0 {
		hdim = k
	}
	if vdim == 0 {
		vdim = defaultSOMVDim
	}
	return hdim, vdim
}

// Cluster trains the map on in.Data and assigns rows to nodes.
func (s *SOM) Cluster(in Input) (*Partition, error) {
	in.applyDefaults()
	if err := in.validate(s.Name(), true); err != nil {
		return nil, err
	}

	hdim, vdim := s.grid(in.K)
	if hdim < 2 || vdim < 2 {
		return nil, configErrorf("som: grid dimensions must be >= 2, got %d×%d", vdim, hdim)
	}
	lr := s.LearnRate
	if lr == 0 {
		lr = defaultSOMLearnRate
	}
	epochs := s.Epochs
	if epochs == 0 {
		epochs = defaultSOMEpochs
	}
	if lr < 0 || epochs < 0 {
		return nil, configErrorf("som: learning rate and epochs must be positive")
	}

	// Node (i, j) lives in row i*hdim+j.
	nodes := randomPointsInRange(in.Data, vdim*hdim, in.Rand)
	if err := s.train(in.Data, in.Metric, nodes, hdim, vdim, lr, epochs); err != nil {
		return nil, err
	}

	n, _ := in.Data.Dims()
	labels := make([]int, n)
	ids := make(map[int]int)
	for k := 0; k < n; k++ {
		node, ok := bestMatchingUnit(in.Metric, nodes, in.Data.RawRowView(k))
		if !ok {
			return nil, &NumericalError{Sample: k, Epoch: epochs}
		}
		id, ok := ids[node]
		if !ok {
			id = len(ids)
			ids[node] = id
		}
		labels[k] = id
	}

	return &Partition{Labels: labels}, nil
}

// train runs the batch training loop.
func (s *SOM) train(data *mat.Dense, metric DistanceMetric, nodes *mat.Dense, hdim, vdim int, lr float64, epochs int) error {
	n, dims := data.Dims()
	radius := float64(hdim+vdim) / 3
	timeConst := float64(epochs) / math.Log(radius)

	adjust := mat.NewDense(vdim*hdim, dims, nil)
	residual := make([]float64, dims)

	for t := 1; t <= epochs; t++ {
		decay := math.Exp(-float64(t) / timeConst)
		curRadius := radius * decay
		curLearn := lr * decay
		width := 2 * float64(t) * curRadius * curRadius
		rad := int(curRadius)

		for k := 0; k < n; k++ {
			sample := data.RawRowView(k)
			bmu, ok := bestMatchingUnit(metric, nodes, sample)
			if !ok {
				return &NumericalError{Sample: k, Epoch: t}
			}
			y, x := bmu/hdim, bmu%hdim

			// The box reaches one node further towards the origin than away
			// from it, and is clipped to the grid.
			minI, minJ := 0, 0
			if y > rad {
				minI = y - rad - 1
			}
			if x > rad {
				minJ = x - rad - 1
			}
			maxI, maxJ := min(y+rad+1, vdim), min(x+rad+1, hdim)

			for i := minI; i < maxI; i++ {
				for j := minJ; j < maxJ; j++ {
					node := i*hdim + j
					influence := 1.0
					if d := float64(max(abs(y-i), abs(x-j))); d > 0 {
						influence = math.Exp(-d * d / width)
					}
					floats.SubTo(residual, sample, nodes.RawRowView(node))
					floats.AddScaled(adjust.RawRowView(node), influence*curLearn, residual)
				}
			}
		}

		nodes.Add(nodes, adjust)
		adjust.Zero()
	}

	return nil
}

// bestMatchingUnit returns the row of the node closest to sample, scanning
// row-major and keeping the first of equal distances. ok is false when no
// node is at a finite distance.
func bestMatchingUnit(metric DistanceMetric, nodes *mat.Dense, sample []float64) (node int, ok bool) {
	count, _ := nodes.Dims()
	best, bestDist := -1, math.Inf(1)
	for i := 0; i < count; i++ {
		if d := metric.Distance(nodes.RawRowView(i), sample); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
