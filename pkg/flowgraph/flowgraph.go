// Package flowgraph wraps a substrate.Substrate with mutable per-run
// residual-capacity state and the flow-placement primitives (PROPORTIONAL
// / WCMP and EQUAL_BALANCED / ECMP) that every FlowPolicy composes.
package flowgraph

import (
	"sort"

	"netgraph/pkg/domain"
	"netgraph/pkg/pathalgo"
	"netgraph/pkg/substrate"
)

// FlowIndex identifies one concrete flow placed on a FlowGraph. Allocated
// by a monotonic counter — never reused within a run.
type FlowIndex int

// Placement selects how place() distributes volume across a
// predecessor DAG.
type Placement int

const (
	Proportional  Placement = iota // WCMP: Dinic-style max-flow restricted to the DAG
	EqualBalanced                  // ECMP: every downstream branch carries an equal share
)

// FlowGraph is the mutable per-iteration state layered on top of an
// immutable Substrate: a residual-capacity array and per-flow-index
// bookkeeping of which edges carry flow and how much.
type FlowGraph struct {
	sub      *substrate.Substrate
	nodeMask []bool
	edgeMask []bool
	residual []float64

	// flowEdges[idx][edge] = amount of flow_index idx on edge.
	flowEdges map[FlowIndex]map[int]float64
	nextIndex FlowIndex
}

// New creates a FlowGraph over sub with residual initialised to
// capacity[k] for included edges (both node and edge mask true) and 0
// for excluded edges.
func New(sub *substrate.Substrate, nodeMask, edgeMask []bool) *FlowGraph {
	residual := make([]float64, sub.NumEdges())
	for e := 0; e < sub.NumEdges(); e++ {
		u, v := sub.Src[e], sub.Dst[e]
		included := edgeMask[e] && nodeMask[u] && nodeMask[v]
		if included {
			residual[e] = sub.Capacity[e]
		}
	}
	return &FlowGraph{
		sub:       sub,
		nodeMask:  nodeMask,
		edgeMask:  edgeMask,
		residual:  residual,
		flowEdges: make(map[FlowIndex]map[int]float64),
	}
}

// NextFlowIndex allocates the next monotonic FlowIndex.
func (fg *FlowGraph) NextFlowIndex() FlowIndex {
	idx := fg.nextIndex
	fg.nextIndex++
	return idx
}

// ResidualView returns the current residual array. Callers must treat it
// as read-only.
func (fg *FlowGraph) ResidualView() []float64 {
	return fg.residual
}

// GetFlowEdges returns the edges carrying positive flow for idx, sorted
// by edge index.
func (fg *FlowGraph) GetFlowEdges(idx FlowIndex) []int {
	edges := fg.flowEdges[idx]
	out := make([]int, 0, len(edges))
	for e, amt := range edges {
		if domain.IsPositive(amt) {
			out = append(out, e)
		}
	}
	sort.Ints(out)
	return out
}

// AllFlowEdges returns the union of edges carrying positive flow across
// every FlowIndex allocated on this graph so far, sorted.
func (fg *FlowGraph) AllFlowEdges() []int {
	set := make(map[int]struct{})
	for _, edges := range fg.flowEdges {
		for e, amt := range edges {
			if domain.IsPositive(amt) {
				set[e] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}

// FlowAmounts returns, for every edge carrying positive flow under any
// FlowIndex allocated on this graph, the total flow amount placed on it.
func (fg *FlowGraph) FlowAmounts() map[int]float64 {
	out := make(map[int]float64)
	for _, edges := range fg.flowEdges {
		for e, amt := range edges {
			if domain.IsPositive(amt) {
				out[e] += amt
			}
		}
	}
	return out
}

// Place consumes capacity along pred_dag to push at most volume units
// from src to dst under flow_index idx, using the given Placement
// strategy. Returns the amount actually placed, in [0, volume].
//
// Invariants: no residual[k] goes negative; conservation holds at every
// intermediate node for idx; if placedAmount == 0, no bookkeeping is added.
func (fg *FlowGraph) Place(idx FlowIndex, dag pathalgo.PredecessorDAG, src, dst int, volume float64, placement Placement) float64 {
	if volume <= domain.Epsilon || src == dst {
		return 0
	}
	preds, ok := dag[dst]
	if !ok || len(preds) == 0 {
		return 0
	}

	switch placement {
	case EqualBalanced:
		return fg.placeEqualBalanced(idx, dag, src, dst, volume)
	default:
		return fg.placeProportional(idx, dag, src, dst, volume)
	}
}

// placeProportional solves a bounded max-flow problem restricted to DAG
// edges via repeated augmentation (Dinic-style layered search limited to
// predecessor-DAG edges), admitting up to `volume` total.
func (fg *FlowGraph) placeProportional(idx FlowIndex, dag pathalgo.PredecessorDAG, src, dst int, volume float64) float64 {
	forward := fg.invertDAG(dag, dst)
	remaining := volume
	var placed float64

	for remaining > domain.Epsilon {
		path, bottleneck := fg.findAugmentingPath(forward, src, dst, remaining)
		if path == nil {
			break
		}
		amount := domain.Min(bottleneck, remaining)
		fg.commit(idx, path, amount)
		placed += amount
		remaining -= amount
	}
	return placed
}

// placeEqualBalanced distributes volume evenly across every downstream
// branch from each DAG node, bounded by the most-constrained branch's
// capacity divided by its share.
func (fg *FlowGraph) placeEqualBalanced(idx FlowIndex, dag pathalgo.PredecessorDAG, src, dst int, volume float64) float64 {
	// share = fraction of the flow arriving at a node that each of its
	// forward branches receives, walked from src towards dst.
	forward := fg.invertDAG(dag, dst)

	bottleneckShare := func() float64 {
		var walk func(node int, share float64) float64
		best := domain.Infinity
		walk = func(node int, share float64) float64 {
			if node == dst {
				return domain.Infinity
			}
			branches := forward[node]
			if len(branches) == 0 {
				return domain.Infinity
			}
			branchShare := share / float64(len(branches))
			var local float64 = domain.Infinity
			for _, e := range branches {
				cap := fg.residual[e] / branchShare
				if cap < local {
					local = cap
				}
				next := walk(fg.sub.Dst[e], branchShare)
				if next < local {
					local = next
				}
			}
			return local
		}
		best = walk(src, 1.0)
		return best
	}

	maxAdmissible := bottleneckShare()
	target := domain.Min(volume, maxAdmissible)
	if target <= domain.Epsilon {
		return 0
	}

	var place func(node int, amount float64)
	place = func(node int, amount float64) {
		if node == dst || amount <= domain.Epsilon {
			return
		}
		branches := forward[node]
		if len(branches) == 0 {
			return
		}
		share := amount / float64(len(branches))
		for _, e := range branches {
			fg.addFlow(idx, e, share)
			place(fg.sub.Dst[e], share)
		}
	}
	place(src, target)

	return target
}

// invertDAG turns a predecessor DAG (node -> predecessor edges) into a
// forward adjacency (node -> successor edges) for traversal from src.
// Only edges on some DAG path into dst are kept, so no branch leads to a
// dead end.
func (fg *FlowGraph) invertDAG(dag pathalgo.PredecessorDAG, dst int) map[int][]int {
	forward := make(map[int][]int)
	seen := map[int]bool{dst: true}
	queue := []int{dst}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range dag[node] {
			from := fg.sub.Src[e]
			forward[from] = append(forward[from], e)
			if !seen[from] {
				seen[from] = true
				queue = append(queue, from)
			}
		}
	}
	for node := range forward {
		sort.Ints(forward[node])
	}
	return forward
}

func (fg *FlowGraph) addFlow(idx FlowIndex, e int, amount float64) {
	fg.residual[e] -= amount
	if fg.flowEdges[idx] == nil {
		fg.flowEdges[idx] = make(map[int]float64)
	}
	fg.flowEdges[idx][e] += amount
}

func (fg *FlowGraph) commit(idx FlowIndex, path []int, amount float64) {
	for _, e := range path {
		fg.addFlow(idx, e, amount)
	}
}

// findAugmentingPath does a DFS over DAG edges with positive residual,
// returning the edge-index path from src to dst and its bottleneck
// capacity, or nil if none exists.
func (fg *FlowGraph) findAugmentingPath(forward map[int][]int, src, dst int, cap float64) ([]int, float64) {
	visited := make(map[int]bool)
	var path []int
	var dfs func(node int, bottleneck float64) (bool, float64)
	dfs = func(node int, bottleneck float64) (bool, float64) {
		if node == dst {
			return true, bottleneck
		}
		visited[node] = true
		for _, e := range forward[node] {
			if fg.residual[e] <= domain.Epsilon {
				continue
			}
			v := fg.sub.Dst[e]
			if visited[v] {
				continue
			}
			nb := domain.Min(bottleneck, fg.residual[e])
			path = append(path, e)
			if ok, b := dfs(v, nb); ok {
				return true, b
			}
			path = path[:len(path)-1]
		}
		return false, 0
	}
	ok, b := dfs(src, cap)
	if !ok {
		return nil, 0
	}
	return append([]int(nil), path...), b
}
