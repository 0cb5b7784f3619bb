package failure

import (
	"netgraph/pkg/anctx"
	"netgraph/pkg/domain"
	"netgraph/pkg/flowpolicy"
	"netgraph/pkg/selector"
)

// RunMaxFlowMonteCarlo wires RunMonteCarloAnalysis to a fixed max-flow
// query, re-binding a Context against net's exclusions on each call so
// workers never share mutable AnalysisContext state.
func RunMaxFlowMonteCarlo(net *domain.Network, policy *Policy, src, dst selector.Selector, mode anctx.GroupMode, preset flowpolicy.Preset, opts RunOptions) (RunResult, error) {
	opts.AnalysisName = "max_flow"
	if policy != nil {
		opts.PolicyName = policy.Name
	}

	fn := func(n *domain.Network, excl Exclusions) (any, error) {
		ctx, err := anctx.New(n)
		if err != nil {
			return nil, err
		}
		return ctx.MaxFlow(src, dst, mode, anctx.Exclusions{Nodes: excl.SortedNodes(), Links: excl.SortedLinks()}, preset)
	}

	return RunMonteCarloAnalysis(net, policy, fn, opts)
}

// RunDemandPlacementMonteCarlo wires RunMonteCarloAnalysis to a demand
// expansion + placement run per iteration; expand receives the
// iteration's exclusions alongside the network.
func RunDemandPlacementMonteCarlo(net *domain.Network, policy *Policy, expand func(*domain.Network, Exclusions) (any, error), opts RunOptions) (RunResult, error) {
	opts.AnalysisName = "demand_placement"
	if policy != nil {
		opts.PolicyName = policy.Name
	}

	fn := func(n *domain.Network, excl Exclusions) (any, error) {
		return expand(n, excl)
	}

	return RunMonteCarloAnalysis(net, policy, fn, opts)
}

// SensitivityFunc computes per-component sensitivity scores for one
// iteration (map: component id -> score).
type SensitivityFunc func(net *domain.Network, excl Exclusions) (map[string]float64, error)

// RunSensitivityMonteCarlo wires RunMonteCarloAnalysis to a sensitivity
// analysis function and additionally aggregates per-component statistics
// weighted by occurrence_count.
func RunSensitivityMonteCarlo(net *domain.Network, policy *Policy, sensFn SensitivityFunc, opts RunOptions) (RunResult, map[string]ComponentStats, error) {
	opts.AnalysisName = "sensitivity"
	if policy != nil {
		opts.PolicyName = policy.Name
	}

	fn := func(n *domain.Network, excl Exclusions) (any, error) {
		return sensFn(n, excl)
	}

	result, err := RunMonteCarloAnalysis(net, policy, fn, opts)
	if err != nil {
		return RunResult{}, nil, err
	}

	agg := AggregateSensitivity(result.Results)
	return result, agg, nil
}

// ComponentStats is the occurrence-weighted aggregate of one component's
// sensitivity score across every unique failure pattern in a run.
type ComponentStats struct {
	Mean  float64
	Min   float64
	Max   float64
	Count int
}

// AggregateSensitivity computes, per component, mean = Σ(score_i *
// count_i) / Σ count_i, plus min/max/count, across every
// IterationResult whose Data is a map[string]float64 of component
// scores. Grounded on the statistics aggregation in analytics-svc (see
// DESIGN.md).
func AggregateSensitivity(results []IterationResult) map[string]ComponentStats {
	type acc struct {
		weightedSum float64
		totalCount  int
		min, max    float64
		seen        bool
	}
	accs := make(map[string]*acc)

	for _, r := range results {
		scores, ok := r.Data.(map[string]float64)
		if !ok {
			continue
		}
		for component, score := range scores {
			a, ok := accs[component]
			if !ok {
				a = &acc{min: score, max: score}
				accs[component] = a
			}
			a.weightedSum += score * float64(r.OccurrenceCount)
			a.totalCount += r.OccurrenceCount
			if !a.seen || score < a.min {
				a.min = score
			}
			if !a.seen || score > a.max {
				a.max = score
			}
			a.seen = true
		}
	}

	out := make(map[string]ComponentStats, len(accs))
	for component, a := range accs {
		mean := 0.0
		if a.totalCount > 0 {
			mean = a.weightedSum / float64(a.totalCount)
		}
		out[component] = ComponentStats{Mean: mean, Min: a.min, Max: a.max, Count: a.totalCount}
	}
	return out
}
