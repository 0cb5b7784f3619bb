package pathalgo

import (
	"netgraph/pkg/domain"
	"netgraph/pkg/substrate"
)

// KSPStep is one (dists, predecessor DAG) pair emitted by KSP, in
// increasing-cost order. Callers extract concrete paths via Resolve.
type KSPStep struct {
	Cost float64
	Dist []float64
	DAG  PredecessorDAG
}

// KSPOptions bounds a KSP enumeration.
type KSPOptions struct {
	K int
	// MaxAbsoluteCost, if > 0, discards any candidate whose cost exceeds it.
	MaxAbsoluteCost float64
	// MaxCostFactor, if > 0, discards any candidate whose cost exceeds
	// MaxCostFactor * (cost of the first/best path).
	MaxCostFactor float64
}

// KSP runs a Yen-style k-shortest-path enumeration from src to dst: pull
// the current best path, then for every prefix of it, forbid the edge
// that prefix used to continue and re-run SPF from the prefix's last
// node, keeping the best unseen candidate as the next iteration's
// starting point.
func KSP(s *substrate.Substrate, src, dst int, sel EdgeSelection, nodeMask, edgeMask []bool, residual []float64, opts KSPOptions) []KSPStep {
	if opts.K <= 0 {
		return nil
	}

	base := SPF(s, src, sel, nodeMask, edgeMask, residual, dst, true)
	if base.Dist[dst] == domain.Infinity {
		return nil
	}

	var steps []KSPStep
	bestCost := base.Dist[dst]
	steps = append(steps, KSPStep{Cost: bestCost, Dist: base.Dist, DAG: base.DAG})

	knownPaths := Resolve(s, base.DAG, src, dst, true)
	var accepted []Path
	if len(knownPaths) > 0 {
		accepted = append(accepted, knownPaths[0])
	}

	type candidate struct {
		cost     float64
		rootEdge int
		rootNode int
		step     KSPStep
	}

	for len(steps) < opts.K {
		var best *candidate

		for _, p := range accepted {
			for i := 0; i < len(p)-1; i++ {
				spurNode := p[i].Node
				rootPath := p[:i+1]

				forbiddenEdges := make(map[int]struct{})
				for _, existing := range accepted {
					if sharesRootPath(existing, rootPath) {
						if i < len(existing)-1 {
							forbiddenEdges[existing[i+1].Edges[0]] = struct{}{}
						}
					}
				}

				localEdgeMask := cloneMask(edgeMask, len(s.Src))
				for e := range forbiddenEdges {
					localEdgeMask[e] = false
				}
				for _, step := range rootPath[:len(rootPath)-1] {
					for _, e := range step.Edges {
						localEdgeMask[e] = false
					}
				}

				spurResult := SPF(s, spurNode, sel, nodeMask, localEdgeMask, residual, dst, true)
				if spurResult.Dist[dst] == domain.Infinity {
					continue
				}

				rootCost := pathCost(s, rootPath)
				totalCost := rootCost + spurResult.Dist[dst]

				if opts.MaxAbsoluteCost > 0 && domain.FloatGreater(totalCost, opts.MaxAbsoluteCost) {
					continue
				}
				if opts.MaxCostFactor > 0 && domain.FloatGreater(totalCost, bestCost*opts.MaxCostFactor) {
					continue
				}

				if best == nil || domain.FloatLess(totalCost, best.cost) {
					best = &candidate{
						cost:     totalCost,
						rootNode: spurNode,
						step: KSPStep{
							Cost: totalCost,
							Dist: spurResult.Dist,
							DAG:  spurResult.DAG,
						},
					}
				}
			}
		}

		if best == nil {
			break
		}

		steps = append(steps, best.step)
		nextPaths := Resolve(s, best.step.DAG, best.rootNode, dst, true)
		if len(nextPaths) == 0 {
			break
		}
		accepted = append(accepted, nextPaths[0])
	}

	return steps
}

func sharesRootPath(p Path, root Path) bool {
	if len(p) < len(root) {
		return false
	}
	for i, step := range root {
		if p[i].Node != step.Node {
			return false
		}
	}
	return true
}

func pathCost(s *substrate.Substrate, p Path) float64 {
	var total float64
	for _, step := range p {
		if len(step.Edges) == 0 {
			continue
		}
		total += float64(s.Cost[step.Edges[0]])
	}
	return total
}

func cloneMask(mask []bool, n int) []bool {
	out := make([]bool, n)
	if mask == nil {
		for i := range out {
			out[i] = true
		}
		return out
	}
	copy(out, mask)
	return out
}
