// Package msd implements the maximum-supported-demand search: a
// bracket-then-bisect search over a uniform demand-scaling factor alpha,
// finding the largest alpha for which scaling every demand's volume by
// alpha yields a fully feasible placement.
package msd

import (
	"context"

	"netgraph/pkg/apperror"
	"netgraph/pkg/demand"
	"netgraph/pkg/domain"
	"netgraph/pkg/flowgraph"
	"netgraph/pkg/substrate"
	"netgraph/pkg/telemetry"
)

// Options configures the search.
type Options struct {
	AlphaStart    float64
	AlphaMin      float64
	AlphaMax      float64
	GrowthFactor  float64
	Resolution    float64
	SeedsPerAlpha int
	MaxIterations int
}

// Probe records one alpha evaluation, for provenance.
type Probe struct {
	Alpha             float64
	Feasible          bool
	Seeds             int
	FeasibleSeeds     int
	MinPlacementRatio float64
}

// Result is the search's output: alpha_star plus the full probe log.
type Result struct {
	AlphaStar float64
	Probes    []Probe
}

// PlaceFunc runs one placement attempt for the given scaled demands and
// returns the overall placed-over-demand ratio for that seed. Scaling a
// demand's volume by alpha is the caller's responsibility (via
// ScaleDemands); PlaceFunc receives the already-scaled demand list.
type PlaceFunc func(scaled []demand.ExpandedDemand, seed int64) (ratio float64, err error)

// ScaleDemands returns a copy of demands with every volume multiplied by alpha.
func ScaleDemands(demands []demand.ExpandedDemand, alpha float64) []demand.ExpandedDemand {
	out := make([]demand.ExpandedDemand, len(demands))
	for i, d := range demands {
		d.Volume *= alpha
		out[i] = d
	}
	return out
}

// Search runs the bracket-then-bisect alpha* search. baseDemands is the
// unscaled expanded demand list; place evaluates one (alpha, seed) probe.
func Search(baseDemands []demand.ExpandedDemand, opts Options, place PlaceFunc) (result Result, err error) {
	_, span := telemetry.StartMSDSearch(context.Background(), opts.AlphaStart)
	defer func() { telemetry.EndWithError(span, err) }()

	var totalDemand float64
	for _, d := range baseDemands {
		totalDemand += d.Volume
	}
	if totalDemand <= domain.Epsilon {
		return Result{}, apperror.New(apperror.CodeZeroTotalDemand, "MSD search: total demand is zero")
	}

	seedsPerAlpha := opts.SeedsPerAlpha
	if seedsPerAlpha <= 0 {
		seedsPerAlpha = 1
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 64
	}

	var probes []Probe

	evaluate := func(alpha float64) (Probe, error) {
		scaled := ScaleDemands(baseDemands, alpha)
		var scaledTotal float64
		for _, d := range scaled {
			scaledTotal += d.Volume
		}
		if scaledTotal <= domain.Epsilon {
			return Probe{}, apperror.New(apperror.CodeZeroTotalDemand, "MSD probe: scaled demand is zero")
		}

		feasibleSeeds := 0
		minRatio := domain.Infinity
		for seed := 0; seed < seedsPerAlpha; seed++ {
			ratio, err := place(scaled, int64(seed))
			if err != nil {
				return Probe{}, err
			}
			if ratio < minRatio {
				minRatio = ratio
			}
			if ratio >= 1.0-msdFeasibilityTolerance {
				feasibleSeeds++
			}
		}
		feasible := feasibleSeeds*2 > seedsPerAlpha // majority
		p := Probe{Alpha: alpha, Feasible: feasible, Seeds: seedsPerAlpha, FeasibleSeeds: feasibleSeeds, MinPlacementRatio: minRatio}
		probes = append(probes, p)
		return p, nil
	}

	alpha := opts.AlphaStart
	first, err := evaluate(alpha)
	if err != nil {
		return Result{}, err
	}

	var lower, upper float64
	haveUpper := false

	if first.Feasible {
		lower = alpha
		cur := alpha
		for iter := 0; iter < maxIter; iter++ {
			next := cur * opts.GrowthFactor
			if next > opts.AlphaMax {
				lower = cur
				haveUpper = false
				break
			}
			p, err := evaluate(next)
			if err != nil {
				return Result{}, err
			}
			if !p.Feasible {
				upper = next
				haveUpper = true
				break
			}
			lower = next
			cur = next
		}
	} else {
		upper = alpha
		haveUpper = true
		cur := alpha
		found := false
		for iter := 0; iter < maxIter; iter++ {
			next := cur / opts.GrowthFactor
			if next < opts.AlphaMin {
				break
			}
			p, err := evaluate(next)
			if err != nil {
				return Result{}, err
			}
			if p.Feasible {
				lower = next
				found = true
				break
			}
			upper = next
			cur = next
		}
		if !found {
			return Result{AlphaStar: 0, Probes: probes}, apperror.New(apperror.CodeNonPositiveAlpha,
				"MSD search: no feasible alpha found above alpha_min")
		}
	}

	if haveUpper {
		for iter := 0; iter < maxIter && upper-lower > opts.Resolution; iter++ {
			mid := (lower + upper) / 2
			p, err := evaluate(mid)
			if err != nil {
				return Result{}, err
			}
			if p.Feasible {
				lower = mid
			} else {
				upper = mid
			}
		}
	}

	return Result{AlphaStar: lower, Probes: probes}, nil
}

const msdFeasibilityTolerance = 1e-6

// PlaceOnSubstrate is a convenience PlaceFunc builder that places scaled
// demands against a fresh FlowGraph for each seed, returning the overall
// placed/demand ratio.
func PlaceOnSubstrate(sub *substrate.Substrate, nodeMask, edgeMask []bool) PlaceFunc {
	return func(scaled []demand.ExpandedDemand, seed int64) (float64, error) {
		fg := flowgraph.New(sub, nodeMask, edgeMask)
		result, err := demand.Place(sub, fg, scaled, nodeMask, edgeMask)
		if err != nil {
			return 0, err
		}
		if result.TotalDemand <= domain.Epsilon {
			return 0, apperror.New(apperror.CodeZeroTotalDemand, "MSD probe: zero total demand")
		}
		return result.TotalPlaced / result.TotalDemand, nil
	}
}
