package consensus

import "sort"

// LinkageMatrix converts a merge tree over n leaves into a dendrogram in
// scipy format. Each row is [left, right, distance, mergedSize]; leaves keep
// their row index and the cluster created by the i-th merge gets ID n+i, the
// same cluster-ID scheme as scipy's linkage output. Rows are in merge order.
func LinkageMatrix(root *Node) [][4]float64 {
	if root == nil || root.IsLeaf() {
		return nil
	}

	var internal []*Node
	var walk func(*Node)
	walk = func(nd *Node) {
		if nd.IsLeaf() {
			return
		}
		walk(nd.Left)
		walk(nd.Right)
		internal = append(internal, nd)
	}
	walk(root)

	sort.SliceStable(internal, func(i, j int) bool {
		return internal[i].step < internal[j].step
	})

	n := root.size
	ids := make(map[*Node]int, len(internal))
	for i, nd := range internal {
		ids[nd] = n + i
	}
	id := func(nd *Node) float64 {
		if nd.IsLeaf() {
			return float64(nd.Index)
		}
		return float64(ids[nd])
	}

	result := make([][4]float64, 0, len(internal))
	for _, nd := range internal {
		result = append(result, [4]float64{id(nd.Left), id(nd.Right), nd.Distance, float64(nd.size)})
	}
	return result
}
