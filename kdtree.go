package pxl

import (
	"cmp"
	"math"
	"slices"
)

type kdNode struct {
	point       oklab
	index       int
	axis        int
	left, right int
}

// kdTree is a static 3-d tree over palette colors for exact nearest neighbor
// queries.
type kdTree struct {
	nodes []kdNode
	root  int
}

func newKDTree(points []oklab) *kdTree {
	t := &kdTree{nodes: make([]kdNode, 0, len(points)), root: -1}
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	t.root = t.build(points, order, 0)
	return t
}

func (t *kdTree) build(points []oklab, order []int, depth int) int {
	if len(order) == 0 {
		return -1
	}

	axis := depth % 3
	slices.SortFunc(order, func(a, b int) int {
		if c := cmp.Compare(points[a][axis], points[b][axis]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	mid := len(order) / 2
	n := len(t.nodes)
	t.nodes = append(t.nodes, kdNode{
		point: points[order[mid]],
		index: order[mid],
		axis:  axis,
	})

	left := t.build(points, order[:mid], depth+1)
	right := t.build(points, order[mid+1:], depth+1)
	t.nodes[n].left = left
	t.nodes[n].right = right
	return n
}

// nearest returns the index of the point closest to q, preferring the lowest
// index on ties. It returns 0 for an empty tree.
func (t *kdTree) nearest(q oklab) int {
	best, bestDist := -1, math.Inf(1)

	var search func(n int)
	search = func(n int) {
		if n < 0 {
			return
		}
		node := &t.nodes[n]

		d := q.dist2(node.point)
		if d < bestDist || (d == bestDist && node.index < best) {
			best, bestDist = node.index, d
		}

		diff := q[node.axis] - node.point[node.axis]
		near, far := node.left, node.right
		if diff > 0 {
			near, far = far, near
		}

		search(near)
		if diff*diff <= bestDist {
			search(far)
		}
	}
	search(t.root)

	if best < 0 {
		return 0
	}
	return best
}
