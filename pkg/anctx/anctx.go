// Package anctx implements the AnalysisContext: an immutable bundle of a
// substrate, its pre-frozen masks, and optionally a pseudo-node
// augmentation context, prepared once per query or failure-analysis run.
package anctx

import (
	"netgraph/pkg/apperror"
	"netgraph/pkg/domain"
	"netgraph/pkg/flowgraph"
	"netgraph/pkg/flowpolicy"
	"netgraph/pkg/pathalgo"
	"netgraph/pkg/selector"
	"netgraph/pkg/substrate"
)

// GroupMode selects how Context resolves multiple source/sink matches
// into logical endpoints for a max-flow or shortest-path query.
type GroupMode int

const (
	// Combine unions all source matches into one logical source and all
	// sink matches into one logical sink.
	Combine GroupMode = iota
	// Pairwise iterates over every (source, sink) pair independently.
	Pairwise
)

// Context is the AnalysisContext: an immutable bundle prepared once and
// reused across calls. Zero value is not usable — build with New or Bind.
type Context struct {
	Net *domain.Network
	Sub *substrate.Substrate

	// bound fields; zero values when the context is unbound.
	boundSrc   selector.Selector
	boundDst   selector.Selector
	boundMode  GroupMode
	isBound    bool
	pseudoSrc  int
	pseudoDst  int
}

// New builds an unbound Context: no source/sink pre-wired, no pseudo
// nodes. Every max-flow/shortest-path call supplies its own patterns and
// builds a throw-away bound context under the hood.
func New(net *domain.Network) (*Context, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	sub, err := substrate.Build(net, nil)
	if err != nil {
		return nil, err
	}
	return &Context{Net: net, Sub: sub}, nil
}

// Bind builds a Context with fixed source/sink patterns, baking
// pseudo-source/sink augmentation edges into the substrate up front so
// that repeated calls only rebuild the node/edge masks, not the substrate.
func Bind(net *domain.Network, src, dst selector.Selector, mode GroupMode) (*Context, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	var augs []substrate.AugmentationEdge
	pseudoSrcName := domain.PseudoSourcePrefix
	pseudoDstName := domain.PseudoSinkPrefix

	if mode == Combine {
		srcEntities, err := selector.SelectNodes(net, src, false)
		if err != nil {
			return nil, err
		}
		dstEntities, err := selector.SelectNodes(net, dst, false)
		if err != nil {
			return nil, err
		}
		if len(srcEntities) == 0 || len(dstEntities) == 0 {
			return nil, apperror.New(apperror.CodeEmptySelection, "bound context source or sink selector matched no nodes")
		}
		pseudoSrcNode := domain.NewNode(pseudoSrcName)
		pseudoDstNode := domain.NewNode(pseudoDstName)
		net = net.Clone()
		net.AddNode(pseudoSrcNode)
		net.AddNode(pseudoDstNode)

		for _, e := range srcEntities {
			augs = append(augs, substrate.AugmentationEdge{Source: pseudoSrcName, Target: e.Name, Capacity: domain.PseudoCapacity, Cost: 0})
		}
		for _, e := range dstEntities {
			augs = append(augs, substrate.AugmentationEdge{Source: e.Name, Target: pseudoDstName, Capacity: domain.PseudoCapacity, Cost: 0})
		}
	}

	sub, err := substrate.Build(net, augs)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		Net:       net,
		Sub:       sub,
		boundSrc:  src,
		boundDst:  dst,
		boundMode: mode,
		isBound:   true,
	}
	if mode == Combine {
		ctx.pseudoSrc, _ = sub.NodeID(pseudoSrcName)
		ctx.pseudoDst, _ = sub.NodeID(pseudoDstName)
	}
	return ctx, nil
}

// Exclusions names the node/link ids to mask out for one call, on top of
// the substrate's pre-frozen disabled sets.
type Exclusions struct {
	Nodes []string
	Links []string
}

// masks builds the per-call node/edge masks: each call fills fresh masks in
// O(V + E) from the substrate's frozen disabled sets, then clears the
// excluded nodes and links on top.
func (c *Context) masks(excl Exclusions) ([]bool, []bool) {
	nodeMask := c.Sub.NewNodeMask()
	edgeMask := c.Sub.NewEdgeMask()

	var nodeIDs []int
	for _, name := range excl.Nodes {
		if id, ok := c.Sub.NodeID(name); ok {
			nodeIDs = append(nodeIDs, id)
		}
	}
	substrate.ApplyNodeExclusions(nodeMask, nodeIDs)
	c.Sub.ApplyLinkExclusions(edgeMask, excl.Links)
	return nodeMask, edgeMask
}

// resolveScope picks the Context a query should actually run against and
// resolves its concrete endpoint pairs. A bound context already carries
// its pseudo-source/sink pair; an unbound context in Combine mode builds
// a throw-away bound context per call (per spec.md §4.5: "each call builds
// a throw-away bound context under the hood") rather than supporting
// Combine directly, since Combine requires baked-in pseudo nodes.
func (c *Context) resolveScope(src, dst selector.Selector, mode GroupMode) (*Context, []endpointPair, error) {
	if c.isBound && mode == Combine {
		return c, []endpointPair{{SrcID: c.pseudoSrc, DstID: c.pseudoDst, SrcLabel: domain.PseudoSourcePrefix, DstLabel: domain.PseudoSinkPrefix}}, nil
	}

	if !c.isBound && mode == Combine {
		throwaway, err := Bind(c.Net, src, dst, Combine)
		if err != nil {
			return nil, nil, err
		}
		return throwaway, []endpointPair{{SrcID: throwaway.pseudoSrc, DstID: throwaway.pseudoDst, SrcLabel: domain.PseudoSourcePrefix, DstLabel: domain.PseudoSinkPrefix}}, nil
	}

	srcEntities, err := selector.SelectNodes(c.Net, src, false)
	if err != nil {
		return nil, nil, err
	}
	dstEntities, err := selector.SelectNodes(c.Net, dst, false)
	if err != nil {
		return nil, nil, err
	}

	switch mode {
	case Pairwise:
		var pairs []endpointPair
		for _, s := range srcEntities {
			for _, d := range dstEntities {
				if s.Name == d.Name {
					continue
				}
				srcID, ok1 := c.Sub.NodeID(s.Name)
				dstID, ok2 := c.Sub.NodeID(d.Name)
				if !ok1 || !ok2 {
					continue
				}
				pairs = append(pairs, endpointPair{SrcID: srcID, DstID: dstID, SrcLabel: s.Name, DstLabel: d.Name})
			}
		}
		return c, pairs, nil
	default:
		return nil, nil, apperror.New(apperror.CodeInvalidMode, "unknown group mode")
	}
}

type endpointPair struct {
	SrcID, DstID       int
	SrcLabel, DstLabel string
}

// MaxFlowResult is the detailed output of a single-pair max-flow query.
type MaxFlowResult struct {
	SrcLabel, DstLabel string
	TotalFlow          float64
	CostDistribution   map[float64]float64
	MinCut             []pathalgo.EdgeRef
}

// MaxFlow computes total flow for every resolved (src, dst) pair under
// excl, using placement strategy via preset.
func (c *Context) MaxFlow(src, dst selector.Selector, mode GroupMode, excl Exclusions, preset flowpolicy.Preset) ([]MaxFlowResult, error) {
	return c.MaxFlowDetailed(src, dst, mode, excl, preset, false)
}

// MaxFlowDetailed computes max flow per resolved pair, optionally
// reporting the min-cut edge set and cost distribution.
func (c *Context) MaxFlowDetailed(src, dst selector.Selector, mode GroupMode, excl Exclusions, preset flowpolicy.Preset, withMinCut bool) ([]MaxFlowResult, error) {
	scope, pairs, err := c.resolveScope(src, dst, mode)
	if err != nil {
		return nil, err
	}

	nodeMask, edgeMask := scope.masks(excl)
	var results []MaxFlowResult

	for _, p := range pairs {
		fg := flowgraph.New(scope.Sub, nodeMask, edgeMask)
		res, err := flowpolicy.Apply(scope.Sub, fg, preset, p.SrcID, p.DstID, domain.Infinity, nodeMask, edgeMask)
		if err != nil {
			return nil, err
		}
		mfr := MaxFlowResult{
			SrcLabel:         p.SrcLabel,
			DstLabel:         p.DstLabel,
			TotalFlow:        res.Placed,
			CostDistribution: costDistribution(scope.Sub, fg, p.SrcID, p.DstID),
		}
		if withMinCut {
			mfr.MinCut = fg.MinCut(p.SrcID, p.DstID)
		}
		results = append(results, mfr)
	}
	return results, nil
}

// costDistribution buckets placed flow by the cost of the edges it
// traverses: for each edge carrying flow, that flow volume is attributed
// to the edge's own cost. This gives a per-edge-cost histogram rather
// than a per-path one, since FlowGraph does not retain individual
// augmenting-path traces once committed.
func costDistribution(sub *substrate.Substrate, fg *flowgraph.FlowGraph, src, dst int) map[float64]float64 {
	dist := make(map[float64]float64)
	for e, amount := range fg.FlowAmounts() {
		dist[float64(sub.Cost[e])] += amount
	}
	return dist
}

// Sensitivity reports, per included edge on the path(s) between src and
// dst, the placement reduction caused by removing that single edge.
func (c *Context) Sensitivity(src, dst selector.Selector, mode GroupMode, excl Exclusions, preset flowpolicy.Preset) (map[string]float64, error) {
	scope, pairs, err := c.resolveScope(src, dst, mode)
	if err != nil {
		return nil, err
	}

	baseline, err := c.MaxFlow(src, dst, mode, excl, preset)
	if err != nil {
		return nil, err
	}
	baselineTotal := make(map[string]float64, len(baseline))
	for _, r := range baseline {
		baselineTotal[r.SrcLabel+"->"+r.DstLabel] += r.TotalFlow
	}

	out := make(map[string]float64)
	for _, p := range pairs {
		nodeMask, edgeMask := scope.masks(excl)
		fg := flowgraph.New(scope.Sub, nodeMask, edgeMask)
		_, err := flowpolicy.Apply(scope.Sub, fg, preset, p.SrcID, p.DstID, domain.Infinity, nodeMask, edgeMask)
		if err != nil {
			return nil, err
		}
		flowEdges := fg.AllFlowEdges()
		base := baselineTotal[p.SrcLabel+"->"+p.DstLabel]

		for _, e := range flowEdges {
			linkID := scope.Sub.LinkIDForEdge(e)
			if linkID == "" {
				continue
			}
			probeExcl := Exclusions{Nodes: excl.Nodes, Links: append(append([]string(nil), excl.Links...), linkID)}
			probeResults, err := c.MaxFlow(src, dst, mode, probeExcl, preset)
			if err != nil {
				return nil, err
			}
			var probeTotal float64
			for _, r := range probeResults {
				if r.SrcLabel == p.SrcLabel && r.DstLabel == p.DstLabel {
					probeTotal += r.TotalFlow
				}
			}
			out[linkID] = base - probeTotal
		}
	}
	return out, nil
}

// ShortestPathCost returns the shortest-path cost for each resolved pair
// (Infinity if unreachable).
func (c *Context) ShortestPathCost(src, dst selector.Selector, mode GroupMode, excl Exclusions, sel pathalgo.EdgeSelection) (map[string]float64, error) {
	scope, pairs, err := c.resolveScope(src, dst, mode)
	if err != nil {
		return nil, err
	}
	nodeMask, edgeMask := scope.masks(excl)

	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		result := pathalgo.SPF(scope.Sub, p.SrcID, sel, nodeMask, edgeMask, nil, p.DstID, false)
		out[p.SrcLabel+"->"+p.DstLabel] = result.Dist[p.DstID]
	}
	return out, nil
}

// ShortestPaths returns the concrete path list per resolved pair.
func (c *Context) ShortestPaths(src, dst selector.Selector, mode GroupMode, excl Exclusions, sel pathalgo.EdgeSelection, splitParallelEdges bool) (map[string][]pathalgo.Path, error) {
	scope, pairs, err := c.resolveScope(src, dst, mode)
	if err != nil {
		return nil, err
	}
	nodeMask, edgeMask := scope.masks(excl)

	out := make(map[string][]pathalgo.Path, len(pairs))
	for _, p := range pairs {
		result := pathalgo.SPF(scope.Sub, p.SrcID, sel, nodeMask, edgeMask, nil, p.DstID, true)
		out[p.SrcLabel+"->"+p.DstLabel] = pathalgo.Resolve(scope.Sub, result.DAG, p.SrcID, p.DstID, splitParallelEdges)
	}
	return out, nil
}

// Stats is a read-only structural/utilization snapshot of a context's
// substrate, optionally enriched with per-edge utilization if a FlowGraph
// from a prior placement is supplied.
type Stats struct {
	NumNodes           int
	NumEdges           int
	NumDisabledNodes   int
	NumDisabledLinks   int
	AverageUtilization float64
}

// Stats reports node/edge counts and, when fg is non-nil, the mean
// flow/capacity utilization across edges with positive capacity. fg is
// optional — pass nil for a structure-only snapshot.
func (c *Context) Stats(fg *flowgraph.FlowGraph) Stats {
	s := Stats{NumNodes: c.Sub.NumNodes(), NumEdges: c.Sub.NumEdges()}
	for _, n := range c.Net.Nodes {
		if n.Disabled {
			s.NumDisabledNodes++
		}
	}
	for _, l := range c.Net.Links {
		if l.Disabled {
			s.NumDisabledLinks++
		}
	}
	if fg == nil {
		return s
	}

	amounts := fg.FlowAmounts()
	var sumUtil float64
	var counted int
	for e, capacity := range c.Sub.Capacity {
		if capacity <= domain.Epsilon {
			continue
		}
		sumUtil += amounts[e] / capacity
		counted++
	}
	if counted > 0 {
		s.AverageUtilization = sumUtil / float64(counted)
	}
	return s
}

// KShortestPaths runs Yen-style enumeration per resolved pair.
func (c *Context) KShortestPaths(src, dst selector.Selector, mode GroupMode, excl Exclusions, sel pathalgo.EdgeSelection, opts pathalgo.KSPOptions) (map[string][]pathalgo.KSPStep, error) {
	scope, pairs, err := c.resolveScope(src, dst, mode)
	if err != nil {
		return nil, err
	}
	nodeMask, edgeMask := scope.masks(excl)

	out := make(map[string][]pathalgo.KSPStep, len(pairs))
	for _, p := range pairs {
		out[p.SrcLabel+"->"+p.DstLabel] = pathalgo.KSP(scope.Sub, p.SrcID, p.DstID, sel, nodeMask, edgeMask, nil, opts)
	}
	return out, nil
}
