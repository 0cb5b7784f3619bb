package pathalgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgraph/pkg/domain"
	"netgraph/pkg/substrate"
)

func diamondSubstrate(t *testing.T) (*substrate.Substrate, map[string]int) {
	t.Helper()
	n := domain.New()
	n.AddNode(domain.NewNode("A"))
	n.AddNode(domain.NewNode("B"))
	n.AddNode(domain.NewNode("C"))
	n.AddNode(domain.NewNode("D"))
	n.AddLink(domain.NewLink("AB", "A", "B", 10, 1))
	n.AddLink(domain.NewLink("AC", "A", "C", 10, 1))
	n.AddLink(domain.NewLink("BD", "B", "D", 10, 1))
	n.AddLink(domain.NewLink("CD", "C", "D", 10, 1))

	s, err := substrate.Build(n, nil)
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, name := range []string{"A", "B", "C", "D"} {
		id, _ := s.NodeID(name)
		ids[name] = id
	}
	return s, ids
}

func TestSPF_EqualCostMultiPath(t *testing.T) {
	s, ids := diamondSubstrate(t)
	sel := EdgeSelection{MultiEdge: true, TieBreak: Deterministic}
	result := SPF(s, ids["A"], sel, nil, nil, nil, ids["D"], true)

	assert.Equal(t, float64(2), result.Dist[ids["D"]])
	preds := result.DAG[ids["D"]]
	assert.Len(t, preds, 2, "both A-B-D and A-C-D are equal-cost paths into D")
}

func TestSPF_SingleBestPath(t *testing.T) {
	s, ids := diamondSubstrate(t)
	acFwd, _ := s.LinkEdgeIndices("AC")
	s.Cost[acFwd[0]] = 5 // A-C-D no longer competitive with A-B-D
	sel := EdgeSelection{MultiEdge: false, TieBreak: Deterministic}
	result := SPF(s, ids["A"], sel, nil, nil, nil, ids["D"], true)
	assert.Equal(t, float64(2), result.Dist[ids["D"]])
}

func TestSPF_RequireCapacity_SkipsSaturatedEdge(t *testing.T) {
	s, ids := diamondSubstrate(t)
	residual := make([]float64, s.NumEdges())
	for i := range residual {
		residual[i] = s.Capacity[i]
	}
	idx, _ := s.LinkEdgeIndices("AB")
	residual[idx[0]] = 0

	sel := EdgeSelection{MultiEdge: true, RequireCapacity: true, TieBreak: Deterministic}
	result := SPF(s, ids["A"], sel, nil, nil, residual, ids["D"], true)
	// Only A-C-D remains viable.
	assert.Len(t, result.DAG[ids["D"]], 1)
}

func TestSPF_Unreachable(t *testing.T) {
	s, ids := diamondSubstrate(t)
	nodeMask := s.NewNodeMask()
	nodeMask[ids["B"]] = false
	nodeMask[ids["C"]] = false

	sel := EdgeSelection{MultiEdge: true, TieBreak: Deterministic}
	result := SPF(s, ids["A"], sel, nodeMask, nil, nil, ids["D"], true)
	assert.Equal(t, domain.Infinity, result.Dist[ids["D"]])
}

func TestResolve_DiamondDoesNotLoseDistinctSourcePaths(t *testing.T) {
	s, ids := diamondSubstrate(t)
	sel := EdgeSelection{MultiEdge: true, TieBreak: Deterministic}
	result := SPF(s, ids["A"], sel, nil, nil, nil, ids["D"], true)

	// A-B-D and A-C-D are tied min-cost paths into D, but B and C are
	// distinct source nodes — neither split nor non-split resolution may
	// collapse them into a single step, since that loses one of the paths.
	joined := Resolve(s, result.DAG, ids["A"], ids["D"], false)
	require.Len(t, joined, 2)
	for _, p := range joined {
		lastStep := p[len(p)-1]
		assert.Len(t, lastStep.Edges, 1)
	}

	split := Resolve(s, result.DAG, ids["A"], ids["D"], true)
	assert.Len(t, split, 2)
}

func parallelEdgeSubstrate(t *testing.T) (*substrate.Substrate, map[string]int) {
	t.Helper()
	n := domain.New()
	n.AddNode(domain.NewNode("A"))
	n.AddNode(domain.NewNode("B"))
	n.AddNode(domain.NewNode("C"))
	n.AddLink(domain.NewLink("AB1", "A", "B", 10, 1))
	n.AddLink(domain.NewLink("AB2", "A", "B", 10, 1))
	n.AddLink(domain.NewLink("BC", "B", "C", 10, 1))

	s, err := substrate.Build(n, nil)
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, name := range []string{"A", "B", "C"} {
		id, _ := s.NodeID(name)
		ids[name] = id
	}
	return s, ids
}

func TestResolve_TrueParallelEdgesCollapseWhenNotSplit(t *testing.T) {
	s, ids := parallelEdgeSubstrate(t)
	sel := EdgeSelection{MultiEdge: true, TieBreak: Deterministic}
	result := SPF(s, ids["A"], sel, nil, nil, nil, ids["C"], true)

	// AB1 and AB2 are two equal-cost parallel edges from the same source
	// node A — these collapse into one step's Edges when not splitting.
	joined := Resolve(s, result.DAG, ids["A"], ids["C"], false)
	require.Len(t, joined, 1)
	var sawTwoEdgeStep bool
	for _, step := range joined[0] {
		if len(step.Edges) == 2 {
			sawTwoEdgeStep = true
		}
	}
	assert.True(t, sawTwoEdgeStep, "parallel A-B edges should collapse into one step")

	split := Resolve(s, result.DAG, ids["A"], ids["C"], true)
	assert.Len(t, split, 2, "splitting expands the two parallel edges into separate paths")
}

func TestKSP_ReturnsIncreasingCosts(t *testing.T) {
	s, ids := diamondSubstrate(t)
	acFwd, _ := s.LinkEdgeIndices("AC")
	s.Cost[acFwd[0]] = 5 // make A-C-D costlier than A-B-D
	sel := EdgeSelection{MultiEdge: false, TieBreak: Deterministic}
	steps := KSP(s, ids["A"], ids["D"], sel, nil, nil, nil, KSPOptions{K: 2})
	require.Len(t, steps, 2)
	assert.LessOrEqual(t, steps[0].Cost, steps[1].Cost)
}

func TestMinCut_SaturatedEdgesReported(t *testing.T) {
	s, ids := diamondSubstrate(t)
	residual := make([]float64, s.NumEdges())
	copy(residual, s.Capacity)
	abIdx, _ := s.LinkEdgeIndices("AB")
	acIdx, _ := s.LinkEdgeIndices("AC")
	residual[abIdx[0]] = 0
	residual[acIdx[0]] = 0

	refs := MinCut(s, ids["A"], ids["D"], nil, nil, residual)
	require.Len(t, refs, 2)
	assert.Equal(t, "AB", refs[0].LinkID)
	assert.Equal(t, "AC", refs[1].LinkID)
}
