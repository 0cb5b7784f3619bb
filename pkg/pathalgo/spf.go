// Package pathalgo implements shortest-path-DAG (SPF), k-shortest-paths
// (Yen-style KSP), predecessor-DAG path enumeration, and min-cut
// extraction over a substrate.Substrate. Every algorithm here is a pure
// function of its inputs (substrate, masks, optional residual) — no
// hidden state, no caching — so the placement engine decides what, if
// anything, to memoize.
package pathalgo

import (
	"container/heap"
	"sort"

	"netgraph/pkg/domain"
	"netgraph/pkg/substrate"
)

// TieBreak selects how SPF resolves ties among equal-cost candidate edges.
type TieBreak int

const (
	// Deterministic breaks ties by ascending edge index.
	Deterministic TieBreak = iota
	// PreferHigherResidual breaks ties by descending residual, then edge index.
	PreferHigherResidual
)

// EdgeSelection configures which edges SPF considers viable candidates
// for extending the shortest-path DAG, and how it resolves ties.
type EdgeSelection struct {
	// MultiEdge, if true, keeps every parallel min-cost edge at a hop in
	// the predecessor DAG instead of a single deterministic pick.
	MultiEdge bool
	// RequireCapacity, if true, treats residual[k] <= 0 as absent. If
	// false, a saturated edge is still a shortest-path candidate (IGP
	// semantics: cost-based routing ignores current utilization).
	RequireCapacity bool
	TieBreak        TieBreak
}

// Result is the output of SPF: per-node distance (Infinity if
// unreached) and the predecessor DAG recording every edge lying on some
// minimum-cost path into that node.
type Result struct {
	Dist []float64
	DAG  PredecessorDAG
}

// PredecessorDAG maps a node id to the edge indices of its min-cost
// predecessor edges, kept sorted by the EdgeSelection's tie-break rule
// (see appendPredecessor).
type PredecessorDAG map[int][]int

type spfItem struct {
	node  int
	dist  float64
	index int
}

type spfHeap []*spfItem

func (h spfHeap) Len() int { return len(h) }
func (h spfHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h spfHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *spfHeap) Push(x any) {
	item := x.(*spfItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *spfHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// SPF computes a single-source, multi-destination shortest-path DAG.
//
// nodeMask/edgeMask may be nil (nothing excluded). residual may be nil,
// in which case sel.RequireCapacity is ignored and every edge is treated
// as having capacity. If dst >= 0 and multipath is false, the search
// stops as soon as dst is settled; nodes settled before it keep correct
// distances. With multipath true the search explores until the heap
// empties, even after dst is settled.
func SPF(s *substrate.Substrate, src int, sel EdgeSelection, nodeMask, edgeMask []bool, residual []float64, dst int, multipath bool) Result {
	n := s.NumNodes()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = domain.Infinity
	}
	dag := make(PredecessorDAG)

	if nodeMask != nil && src < len(nodeMask) && !nodeMask[src] {
		return Result{Dist: dist, DAG: dag}
	}

	dist[src] = 0
	h := &spfHeap{}
	heap.Init(h)
	heap.Push(h, &spfItem{node: src, dist: 0})

	settled := make([]bool, n)
	dstReached := false

	for h.Len() > 0 {
		cur := heap.Pop(h).(*spfItem)
		u := cur.node

		if settled[u] {
			continue
		}
		if cur.dist > dist[u]+domain.Epsilon {
			continue
		}
		settled[u] = true

		if dst >= 0 && u == dst {
			dstReached = true
			if !multipath {
				break
			}
		}
		if dstReached && !multipath && u != dst {
			continue
		}

		for _, e := range s.Adjacency()[u] {
			if edgeMask != nil && !edgeMask[e] {
				continue
			}
			v := s.Dst[e]
			if nodeMask != nil && !nodeMask[v] {
				continue
			}
			if sel.RequireCapacity && residual != nil && residual[e] <= domain.Epsilon {
				continue
			}

			cost := float64(s.Cost[e])
			newDist := dist[u] + cost

			switch {
			case domain.FloatLess(newDist, dist[v]):
				dist[v] = newDist
				dag[v] = []int{e}
				heap.Push(h, &spfItem{node: v, dist: newDist})
			case domain.FloatEquals(newDist, dist[v]) && sel.MultiEdge:
				dag[v] = appendPredecessor(dag[v], e, sel.TieBreak, residual)
			}
		}
	}

	return Result{Dist: dist, DAG: dag}
}

// appendPredecessor inserts edge e into an existing tied predecessor set,
// keeping it sorted per the configured tie-break rule.
func appendPredecessor(preds []int, e int, tb TieBreak, residual []float64) []int {
	preds = append(preds, e)
	sort.Slice(preds, func(i, j int) bool {
		return lessEdge(preds[i], preds[j], tb, residual)
	})
	return preds
}

func lessEdge(a, b int, tb TieBreak, residual []float64) bool {
	if tb == PreferHigherResidual && residual != nil {
		ra, rb := residual[a], residual[b]
		if ra != rb {
			return ra > rb
		}
	}
	return a < b
}
