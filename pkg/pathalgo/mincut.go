package pathalgo

import (
	"sort"

	"netgraph/pkg/domain"
	"netgraph/pkg/substrate"
)

// MinCut identifies the min-cut edge set for a saturated max-flow
// placement: included edges with residual <= epsilon that lie on some
// min-cost residual-exhausted augmenting route from src to dst.
// Augmentation edges (Decode returns ok=false) are never reported.
func MinCut(s *substrate.Substrate, src, dst int, nodeMask, edgeMask []bool, residual []float64) []EdgeRef {
	reachable := reachableFromSource(s, src, nodeMask, edgeMask, residual)

	var refs []EdgeRef
	for e := 0; e < s.NumEdges(); e++ {
		if edgeMask != nil && !edgeMask[e] {
			continue
		}
		u, v := s.Src[e], s.Dst[e]
		if !reachable[u] || reachable[v] {
			continue
		}
		if residual[e] > domain.Epsilon {
			continue
		}
		_, dir, ok := s.Decode(s.ExtEdgeID[e])
		if !ok {
			continue
		}
		refs = append(refs, EdgeRef{LinkID: s.LinkIDForEdge(e), Direction: dir})
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].LinkID != refs[j].LinkID {
			return refs[i].LinkID < refs[j].LinkID
		}
		return refs[i].Direction < refs[j].Direction
	})
	return refs
}

// reachableFromSource marks nodes reachable from src over edges with
// positive residual capacity — the source side of the min-cut partition.
func reachableFromSource(s *substrate.Substrate, src int, nodeMask, edgeMask []bool, residual []float64) []bool {
	reachable := make([]bool, s.NumNodes())
	if nodeMask != nil && !nodeMask[src] {
		return reachable
	}
	reachable[src] = true
	queue := []int{src}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, e := range s.Adjacency()[u] {
			if edgeMask != nil && !edgeMask[e] {
				continue
			}
			if residual[e] <= domain.Epsilon {
				continue
			}
			v := s.Dst[e]
			if nodeMask != nil && !nodeMask[v] {
				continue
			}
			if !reachable[v] {
				reachable[v] = true
				queue = append(queue, v)
			}
		}
	}
	return reachable
}
