package consensus

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LinkageFunc reduces the block of distances between every member of one
// cluster and every member of another to a single merge distance.
type LinkageFunc func(block []float64) float64

// Linkage is a named LinkageFunc.
type Linkage struct {
	Name string
	Func LinkageFunc
}

var (
	// AverageLinkage merges on the mean cross-cluster distance.
	AverageLinkage = Linkage{Name: "average", Func: func(b []float64) float64 { return stat.Mean(b, nil) }}

	// SingleLinkage merges on the smallest cross-cluster distance.
	SingleLinkage = Linkage{Name: "single", Func: floats.Min}

	// CompleteLinkage merges on the largest cross-cluster distance.
	CompleteLinkage = Linkage{Name: "complete", Func: floats.Max}
)

// LinkageByName resolves "average", "single" and "complete".
func LinkageByName(name string) (Linkage, error) {
	switch name {
	case "", "average":
		return AverageLinkage, nil
	case "single":
		return SingleLinkage, nil
	case "complete":
		return CompleteLinkage, nil
	default:
		return Linkage{}, configErrorf("unknown linkage %q", name)
	}
}

// Hierarchical is agglomerative clustering. It merges the two closest active
// clusters until one remains, so the returned Partition always carries the
// complete merge tree. Labels are a snapshot taken the moment the number of
// active clusters first equals K: each sample gets the position of its
// top-level cluster in the active list at that instant.
//
// Linkage distances are memoized by the pair of member sets. Because the
// active set only loses two clusters and gains one per merge, almost every
// pair recurs in the next step. The cache grows without bound unless
// CacheLimit is set.
type Hierarchical struct {
	// Linkage reduces cross-cluster distance blocks. Default: AverageLinkage.
	Linkage Linkage

	// CacheLimit bounds the number of memoized linkage distances. When the
	// cache is full it is cleared and refilled. 0 means unbounded. The limit
	// changes memory use and running time, never the result.
	CacheLimit int
}

func (h *Hierarchical) Name() string {
	return "hierarchical-" + h.linkage().Name
}

func (h *Hierarchical) AcceptsDistanceMatrix() bool { return true }

func (h *Hierarchical) linkage() Linkage {
	if h.Linkage.Func == nil {
		return AverageLinkage
	}
	return h.Linkage
}

// activeCluster is a top-level node of the forest together with its sorted
// member rows and the canonical cache key derived from them.
type activeCluster struct {
	node    *Node
	members []int
	key     string
}

func newActiveCluster(node *Node, members []int) *activeCluster {
	var sb strings.Builder
	for i, m := range members {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(m))
	}
	return &activeCluster{node: node, members: members, key: sb.String()}
}

// Cluster runs the agglomeration on in.Distances, or on distances computed
// from in.Data when none are supplied.
func (h *Hierarchical) Cluster(in Input) (*Partition, error) {
	in.applyDefaults()
	if err := in.validate(h.Name(), in.Distances == nil); err != nil {
		return nil, err
	}

	dist := in.distances()
	link := h.linkage().Func
	n, k := in.rows(), in.K

	active := make([]*activeCluster, n)
	for i := range active {
		active[i] = newActiveCluster(newLeaf(i), []int{i})
	}

	labels := make([]int, n)
	assigned := false
	assign := func() {
		for pos, c := range active {
			c.node.assignCluster(pos)
			for _, m := range c.members {
				labels[m] = pos
			}
		}
		assigned = true
	}

	cache := make(map[string]float64)
	var block []float64
	step := 0

	for len(active) > 1 {
		if len(active) == k && !assigned {
			assign()
		}

		best, bi, bj := math.Inf(1), -1, -1
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				a, b := active[i], active[j]
				key := pairKey(a.key, b.key)

				d, ok := cache[key]
				if !ok {
					block = block[:0]
					for _, p := range a.members {
						for _, q := range b.members {
							block = append(block, dist.At(p, q))
						}
					}
					d = link(block)
					if math.IsNaN(d) {
						d = math.Inf(1)
					}
					if h.CacheLimit > 0 && len(cache) >= h.CacheLimit {
						clear(cache)
					}
					cache[key] = d
				}

				if bi < 0 || d < best {
					best, bi, bj = d, i, j
				}
			}
		}

		a, b := active[bi], active[bj]
		node := newInternal(a.node, b.node, best)
		node.step = step
		step++
		merged := newActiveCluster(node, mergeSorted(a.members, b.members))

		// bj > bi, so removing bj first keeps bi valid.
		active = append(active[:bj], active[bj+1:]...)
		active = append(active[:bi], active[bi+1:]...)
		active = append(active, merged)
	}

	if !assigned {
		assign()
	}

	return &Partition{Labels: labels, Tree: active[0].node}, nil
}

// pairKey orders two cluster keys so that (a, b) and (b, a) share an entry.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// mergeSorted merges two ascending index lists.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}
