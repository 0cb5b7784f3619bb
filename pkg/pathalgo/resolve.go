package pathalgo

import (
	"fmt"
	"sort"

	"netgraph/pkg/substrate"
)

// EdgeRef identifies one directed edge by its external (scenario-level)
// identity. Augmentation edges never have an EdgeRef — Decode returns
// ok=false for them and callers must skip such edges when reporting.
type EdgeRef struct {
	LinkID    string
	Direction substrate.Direction
}

// PathStep is one hop of a resolved path: the node reached, and the
// tuple of edge indices that could have produced it (len > 1 only when
// split_parallel_edges is false and several parallel min-cost edges tie).
type PathStep struct {
	Node  int
	Edges []int
}

// Path is a sequence of steps from source to sink. The first step is the
// source and its Edges slice is empty; every later step holds the edges
// into its node, so the final step's Edges is not empty.
type Path []PathStep

// Resolve enumerates concrete paths from src to dst through dag,
// computed by a prior SPF call. When splitParallelEdges is false, tied
// parallel edges at a hop are kept together in one PathStep; when true,
// each combination is expanded into its own Path. Output is deduplicated
// and sorted by a stable string key.
func Resolve(s *substrate.Substrate, dag PredecessorDAG, src, dst int, splitParallelEdges bool) []Path {
	if src == dst {
		return []Path{{{Node: dst, Edges: nil}}}
	}

	var paths []Path
	var walk func(node int, suffix Path)
	walk = func(node int, suffix Path) {
		if node == src {
			full := append(Path{{Node: src, Edges: nil}}, suffix...)
			paths = append(paths, full)
			return
		}
		preds, ok := dag[node]
		if !ok || len(preds) == 0 {
			return
		}

		if !splitParallelEdges {
			// Group preds by source node: only edges sharing a source are
			// truly parallel and collapse into one step's Edges. Preds
			// from distinct source nodes (e.g. both branches of a diamond)
			// must each walk their own branch, or every path but one is
			// lost.
			groups := make(map[int][]int, len(preds))
			var order []int
			for _, e := range preds {
				prev := s.Src[e]
				if _, seen := groups[prev]; !seen {
					order = append(order, prev)
				}
				groups[prev] = append(groups[prev], e)
			}
			for _, prev := range order {
				step := PathStep{Node: node, Edges: append([]int(nil), groups[prev]...)}
				walk(prev, append(Path{step}, suffix...))
			}
			return
		}

		for _, e := range preds {
			prev := s.Src[e]
			step := PathStep{Node: node, Edges: []int{e}}
			walk(prev, append(Path{step}, suffix...))
		}
	}

	walk(dst, nil)

	return dedupSortPaths(paths)
}

func dedupSortPaths(paths []Path) []Path {
	seen := make(map[string]struct{}, len(paths))
	out := make([]Path, 0, len(paths))
	keys := make([]string, 0, len(paths))
	byKey := make(map[string]Path, len(paths))

	for _, p := range paths {
		k := pathKey(p)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
		byKey[k] = p
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

func pathKey(p Path) string {
	s := ""
	for _, step := range p {
		s += fmt.Sprintf("%d:%v|", step.Node, step.Edges)
	}
	return s
}
