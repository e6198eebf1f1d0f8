package consensus

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// fourPoints is (0,0), (0,1), (10,0), (10,1): two tight vertical pairs far
// apart on the x axis.
func fourPoints() *mat.Dense {
	return mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		10, 0,
		10, 1,
	})
}

func sortedLeaves(n *Node) []int {
	l := n.Leaves()
	sort.Ints(l)
	return l
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// samePartition reports whether two label vectors group rows identically,
// whatever the label values.
func samePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab := make(map[int]int)
	ba := make(map[int]int)
	for i := range a {
		if x, ok := ab[a[i]]; ok && x != b[i] {
			return false
		}
		if y, ok := ba[b[i]]; ok && y != a[i] {
			return false
		}
		ab[a[i]] = b[i]
		ba[b[i]] = a[i]
	}
	return true
}

func TestHierarchical_FourPoints(t *testing.T) {
	h := &Hierarchical{Linkage: AverageLinkage}
	p, err := h.Cluster(Input{Data: fourPoints(), K: 2})
	if err != nil {
		t.Fatal(err)
	}

	// (0,1) merges first, then (2,3); two clusters remain and are labelled
	// by their position in the active list.
	want := []int{0, 0, 1, 1}
	if !equalInts(p.Labels, want) {
		t.Errorf("labels = %v, want %v", p.Labels, want)
	}

	if p.Tree == nil || p.Tree.IsLeaf() {
		t.Fatal("expected an internal root")
	}
	left, right := sortedLeaves(p.Tree.Left), sortedLeaves(p.Tree.Right)
	if !(equalInts(left, []int{0, 1}) && equalInts(right, []int{2, 3})) &&
		!(equalInts(left, []int{2, 3}) && equalInts(right, []int{0, 1})) {
		t.Errorf("top-level leaf sets = %v / %v, want {0,1} / {2,3}", left, right)
	}
	if p.Tree.Size() != 4 {
		t.Errorf("root size = %d, want 4", p.Tree.Size())
	}

	// Average of 10, sqrt(101), sqrt(101), 10.
	wantRoot := (20 + 2*math.Sqrt(101)) / 4
	if !almostEqual(p.Tree.Distance, wantRoot, floatTol) {
		t.Errorf("root distance = %v, want %v", p.Tree.Distance, wantRoot)
	}
	if p.Tree.Left.ClusterID == p.Tree.Right.ClusterID {
		t.Errorf("top-level subtrees share cluster %d", p.Tree.Left.ClusterID)
	}
	if p.Tree.ClusterID != NoCluster {
		t.Errorf("root merged after the snapshot has ClusterID %d, want NoCluster", p.Tree.ClusterID)
	}
}

func TestHierarchical_KEqualsN(t *testing.T) {
	for _, l := range []Linkage{AverageLinkage, SingleLinkage, CompleteLinkage} {
		t.Run(l.Name, func(t *testing.T) {
			h := &Hierarchical{Linkage: l}
			p, err := h.Cluster(Input{Data: fourPoints(), K: 4})
			if err != nil {
				t.Fatal(err)
			}
			// Labels are taken before any merge: position in the initial list.
			if !equalInts(p.Labels, []int{0, 1, 2, 3}) {
				t.Errorf("labels = %v, want [0 1 2 3]", p.Labels)
			}
			if p.Tree.Size() != 4 {
				t.Errorf("tree still has %d leaves, want 4", p.Tree.Size())
			}
		})
	}
}

func TestHierarchical_KOne(t *testing.T) {
	h := &Hierarchical{}
	p, err := h.Cluster(Input{Data: fourPoints(), K: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i, l := range p.Labels {
		if l != 0 {
			t.Errorf("label[%d] = %d, want 0", i, l)
		}
	}
	if p.Tree.ClusterID != 0 {
		t.Errorf("root ClusterID = %d, want 0", p.Tree.ClusterID)
	}
}

func TestHierarchical_SinglePoint(t *testing.T) {
	h := &Hierarchical{}
	p, err := h.Cluster(Input{Data: mat.NewDense(1, 2, []float64{1, 2}), K: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !equalInts(p.Labels, []int{0}) || !p.Tree.IsLeaf() || p.Tree.Index != 0 {
		t.Errorf("got labels %v, tree leaf %v index %d", p.Labels, p.Tree.IsLeaf(), p.Tree.Index)
	}
}

func TestHierarchical_SingleVsCompleteLinkage(t *testing.T) {
	// A chain: 0-1-2 spaced by 1, then 3 at distance 1.5 from 2.
	data := mat.NewDense(4, 1, []float64{0, 1, 2, 3.5})

	single, err := (&Hierarchical{Linkage: SingleLinkage}).Cluster(Input{Data: data, K: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Single linkage chains 0,1,2 before reaching 3.
	if !samePartition(single.Labels, []int{0, 0, 0, 1}) {
		t.Errorf("single linkage labels = %v, want {0,1,2}/{3}", single.Labels)
	}

	complete, err := (&Hierarchical{Linkage: CompleteLinkage}).Cluster(Input{Data: data, K: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Complete linkage: {0,1} at 1, then {2,3} at 1.5 beats {0,1}+2 at 2.
	if !samePartition(complete.Labels, []int{0, 0, 1, 1}) {
		t.Errorf("complete linkage labels = %v, want {0,1}/{2,3}", complete.Labels)
	}
}

func TestHierarchical_PrecomputedDistances(t *testing.T) {
	d := ComputePairwiseDistances(fourPoints(), EuclideanMetric{})
	p, err := (&Hierarchical{}).Cluster(Input{Distances: d, K: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !equalInts(p.Labels, []int{0, 0, 1, 1}) {
		t.Errorf("labels = %v, want [0 0 1 1]", p.Labels)
	}
}

func TestHierarchical_CacheLimitDoesNotChangeResult(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := mat.NewDense(25, 3, nil)
	for i := 0; i < 25; i++ {
		for j := 0; j < 3; j++ {
			data.Set(i, j, rng.NormFloat64())
		}
	}

	base, err := (&Hierarchical{}).Cluster(Input{Data: data, K: 4})
	if err != nil {
		t.Fatal(err)
	}
	for _, limit := range []int{1, 5, 50} {
		p, err := (&Hierarchical{CacheLimit: limit}).Cluster(Input{Data: data, K: 4})
		if err != nil {
			t.Fatal(err)
		}
		if !equalInts(p.Labels, base.Labels) {
			t.Errorf("limit %d: labels %v, want %v", limit, p.Labels, base.Labels)
		}
		if !equalInts(p.Tree.Leaves(), base.Tree.Leaves()) {
			t.Errorf("limit %d: leaf order differs", limit)
		}
	}
}

func TestHierarchical_InvalidK(t *testing.T) {
	for _, k := range []int{0, 5} {
		_, err := (&Hierarchical{}).Cluster(Input{Data: fourPoints(), K: k})
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("K=%d: got %v, want ErrConfiguration", k, err)
		}
	}
}

func TestHierarchical_Name(t *testing.T) {
	if got := (&Hierarchical{Linkage: CompleteLinkage}).Name(); got != "hierarchical-complete" {
		t.Errorf("Name() = %q", got)
	}
	if got := (&Hierarchical{}).Name(); got != "hierarchical-average" {
		t.Errorf("zero value Name() = %q", got)
	}
}

func TestLinkageByName(t *testing.T) {
	for _, name := range []string{"average", "single", "complete"} {
		l, err := LinkageByName(name)
		if err != nil || l.Name != name {
			t.Errorf("LinkageByName(%q) = %v, %v", name, l.Name, err)
		}
	}
	if _, err := LinkageByName("ward"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown linkage: got %v", err)
	}
}

func TestMergeSorted(t *testing.T) {
	got := mergeSorted([]int{0, 3, 7}, []int{1, 2, 8, 9})
	if !equalInts(got, []int{0, 1, 2, 3, 7, 8, 9}) {
		t.Errorf("mergeSorted = %v", got)
	}
}
