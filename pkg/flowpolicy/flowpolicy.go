// Package flowpolicy defines the named flow-policy presets: strategies
// that, given a source, sink, priority, and volume, place demand on a
// flowgraph.FlowGraph and report the placed amount plus the number of
// concrete flows created.
package flowpolicy

import (
	"fmt"

	"netgraph/pkg/apperror"
	"netgraph/pkg/domain"
	"netgraph/pkg/flowgraph"
	"netgraph/pkg/pathalgo"
	"netgraph/pkg/substrate"
)

// Preset names the five policies spec'd for NetGraph's demand placement.
type Preset string

const (
	ShortestPathsECMP Preset = "SHORTEST_PATHS_ECMP"
	ShortestPathsWCMP Preset = "SHORTEST_PATHS_WCMP"
	TEWCMPUnlimited   Preset = "TE_WCMP_UNLIM"
	TEECMPUpTo256LSP  Preset = "TE_ECMP_UP_TO_256_LSP"
	TEECMP16LSP       Preset = "TE_ECMP_16_LSP"
)

// Definition is the fixed parameter tuple a Preset expands to.
type Definition struct {
	Placement    flowgraph.Placement
	Selection    pathalgo.EdgeSelection
	MaxFlows     int // 0 means unlimited
	Cacheable    bool
	ReOptimise   bool
	MaxIterations int
}

// Table maps every known Preset to its Definition (spec.md §4.4).
var Table = map[Preset]Definition{
	ShortestPathsECMP: {
		Placement: flowgraph.EqualBalanced,
		Selection: pathalgo.EdgeSelection{MultiEdge: true, RequireCapacity: false, TieBreak: pathalgo.Deterministic},
		MaxFlows:  1,
		Cacheable: true,
	},
	ShortestPathsWCMP: {
		Placement: flowgraph.Proportional,
		Selection: pathalgo.EdgeSelection{MultiEdge: true, RequireCapacity: false, TieBreak: pathalgo.Deterministic},
		MaxFlows:  1,
		Cacheable: true,
	},
	TEWCMPUnlimited: {
		Placement:     flowgraph.Proportional,
		Selection:     pathalgo.EdgeSelection{MultiEdge: true, RequireCapacity: true, TieBreak: pathalgo.PreferHigherResidual},
		MaxFlows:      0,
		Cacheable:     true, // demand.Place still never caches this preset, because ReOptimise is set
		ReOptimise:    true,
		MaxIterations: 256,
	},
	TEECMPUpTo256LSP: {
		Placement:     flowgraph.EqualBalanced,
		Selection:     pathalgo.EdgeSelection{MultiEdge: false, RequireCapacity: true, TieBreak: pathalgo.PreferHigherResidual},
		MaxFlows:      256,
		Cacheable:     false,
		ReOptimise:    true,
		MaxIterations: 256,
	},
	TEECMP16LSP: {
		Placement:     flowgraph.EqualBalanced,
		Selection:     pathalgo.EdgeSelection{MultiEdge: false, RequireCapacity: true, TieBreak: pathalgo.PreferHigherResidual},
		MaxFlows:      16,
		Cacheable:     false,
		ReOptimise:    true,
		MaxIterations: 16,
	},
}

// Result reports the outcome of applying a policy once.
type Result struct {
	Placed    float64
	NumFlows  int
}

// Apply runs preset against fg from src to dst, attempting to place
// volume. It always recomputes SPF against the current residual for TE
// presets' re-optimisation loop — callers needing the cacheable fast
// path for SHORTEST_PATHS_* should use the placement engine's cache
// instead of calling Apply directly. That cache covers only presets that
// are Cacheable without ReOptimise, so no TE_WCMP_UNLIM step is cached.
func Apply(sub *substrate.Substrate, fg *flowgraph.FlowGraph, preset Preset, src, dst int, volume float64, nodeMask, edgeMask []bool) (Result, error) {
	def, ok := Table[preset]
	if !ok {
		return Result{}, unknownPresetError(preset)
	}

	remaining := volume
	var placed float64
	var numFlows int

	maxIter := def.MaxIterations
	if maxIter <= 0 {
		maxIter = 1024
	}

	for iter := 0; iter < maxIter && remaining > domain.Epsilon; iter++ {
		residual := fg.ResidualView()
		result := pathalgo.SPF(sub, src, def.Selection, nodeMask, edgeMask, residual, dst, true)
		if result.Dist[dst] == domain.Infinity {
			break
		}

		idx := fg.NextFlowIndex()
		amount := fg.Place(idx, result.DAG, src, dst, remaining, def.Placement)
		if amount <= domain.Epsilon {
			break
		}

		placed += amount
		remaining -= amount
		numFlows++

		if def.MaxFlows > 0 && numFlows >= def.MaxFlows {
			break
		}
		if !def.ReOptimise {
			break
		}
	}

	return Result{Placed: placed, NumFlows: numFlows}, nil
}

func unknownPresetError(preset Preset) error {
	return apperror.New(apperror.CodeInvalidPreset, fmt.Sprintf("unknown flow policy preset %q", preset))
}
