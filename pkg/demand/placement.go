package demand

import (
	"netgraph/pkg/domain"
	"netgraph/pkg/flowgraph"
	"netgraph/pkg/flowpolicy"
	"netgraph/pkg/pathalgo"
	"netgraph/pkg/substrate"
)

// PlacementResult summarizes one placement run.
type PlacementResult struct {
	TotalDemand float64
	TotalPlaced float64
	Entries     []PlacementEntry
}

// PlacementEntry is the per-demand detail of a placement run.
type PlacementEntry struct {
	Demand ExpandedDemand
	Placed float64
}

// dagCacheKey identifies a cacheable (source, preset) first-step SPF.
// Only presets whose first step is residual-free are cacheable —
// TE_WCMP_UNLIM's re-optimisation loop must never reuse a cached,
// residual-based DAG across demands sharing a source (spec.md §9).
type dagCacheKey struct {
	srcID  int
	preset flowpolicy.Preset
}

// Place runs every expanded demand, in the priority order Expand
// already sorted them into, against fg. Demands sharing a (src_id,
// preset) pair for a cacheable preset reuse one residual-free SPF/DAG
// computation; TE presets always recompute.
func Place(sub *substrate.Substrate, fg *flowgraph.FlowGraph, demands []ExpandedDemand, nodeMask, edgeMask []bool) (PlacementResult, error) {
	cache := make(map[dagCacheKey]pathalgo.Result)
	result := PlacementResult{}

	for _, d := range demands {
		result.TotalDemand += d.Volume

		srcID, ok := sub.NodeID(d.SrcName)
		if !ok {
			continue
		}
		dstID, ok := sub.NodeID(d.DstName)
		if !ok {
			continue
		}

		def, ok := flowpolicy.Table[d.PolicyPreset]
		if !ok {
			continue
		}

		var placed float64

		if def.Cacheable && !def.ReOptimise {
			key := dagCacheKey{srcID: srcID, preset: d.PolicyPreset}
			spf, hit := cache[key]
			if !hit {
				spf = pathalgo.SPF(sub, srcID, def.Selection, nodeMask, edgeMask, nil, -1, true)
				cache[key] = spf
			}
			if spf.Dist[dstID] == domain.Infinity {
				placed = 0
			} else {
				idx := fg.NextFlowIndex()
				placed = fg.Place(idx, spf.DAG, srcID, dstID, d.Volume, def.Placement)
			}
		} else {
			// Non-cacheable (TE) presets recompute SPF against the current
			// residual on every step inside flowpolicy.Apply — caching the
			// first step here would corrupt subsequent demands from the
			// same source once the residual has changed.
			policyResult, err := flowpolicy.Apply(sub, fg, d.PolicyPreset, srcID, dstID, d.Volume, nodeMask, edgeMask)
			if err != nil {
				return PlacementResult{}, err
			}
			placed = policyResult.Placed
		}

		result.TotalPlaced += placed
		result.Entries = append(result.Entries, PlacementEntry{Demand: d, Placed: placed})
	}

	return result, nil
}
