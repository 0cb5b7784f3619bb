package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netgraph/pkg/domain"
	"netgraph/pkg/pathalgo"
	"netgraph/pkg/substrate"
)

func diamondSub(t *testing.T) (*substrate.Substrate, map[string]int) {
	t.Helper()
	n := domain.New()
	n.AddNode(domain.NewNode("A"))
	n.AddNode(domain.NewNode("B"))
	n.AddNode(domain.NewNode("C"))
	n.AddNode(domain.NewNode("D"))
	n.AddLink(domain.NewLink("AB", "A", "B", 5, 1))
	n.AddLink(domain.NewLink("AC", "A", "C", 5, 1))
	n.AddLink(domain.NewLink("BD", "B", "D", 5, 1))
	n.AddLink(domain.NewLink("CD", "C", "D", 5, 1))

	s, err := substrate.Build(n, nil)
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, name := range []string{"A", "B", "C", "D"} {
		id, _ := s.NodeID(name)
		ids[name] = id
	}
	return s, ids
}

func TestPlace_EqualBalanced_SplitsAcrossBothBranches(t *testing.T) {
	s, ids := diamondSub(t)
	nodeMask := s.NewNodeMask()
	edgeMask := s.NewEdgeMask()
	fg := New(s, nodeMask, edgeMask)

	sel := pathalgo.EdgeSelection{MultiEdge: true, TieBreak: pathalgo.Deterministic}
	spf := pathalgo.SPF(s, ids["A"], sel, nodeMask, edgeMask, nil, ids["D"], true)

	idx := fg.NextFlowIndex()
	placed := fg.Place(idx, spf.DAG, ids["A"], ids["D"], 6, EqualBalanced)

	assert.Equal(t, float64(6), placed)
	edges := fg.GetFlowEdges(idx)
	assert.NotEmpty(t, edges)

	abFwd, _ := s.LinkEdgeIndices("AB")
	acFwd, _ := s.LinkEdgeIndices("AC")
	amounts := fg.FlowAmounts()
	assert.InDelta(t, 3.0, amounts[abFwd[0]], 1e-6)
	assert.InDelta(t, 3.0, amounts[acFwd[0]], 1e-6)
}

func TestPlace_EqualBalanced_BottleneckLimitsVolume(t *testing.T) {
	s, ids := diamondSub(t)
	nodeMask := s.NewNodeMask()
	edgeMask := s.NewEdgeMask()
	fg := New(s, nodeMask, edgeMask)

	sel := pathalgo.EdgeSelection{MultiEdge: true, TieBreak: pathalgo.Deterministic}
	spf := pathalgo.SPF(s, ids["A"], sel, nodeMask, edgeMask, nil, ids["D"], true)

	idx := fg.NextFlowIndex()
	// Requesting more than 2x capacity-per-branch (5+5=10) should cap at 10.
	placed := fg.Place(idx, spf.DAG, ids["A"], ids["D"], 100, EqualBalanced)
	assert.LessOrEqual(t, placed, float64(10))
}

func TestPlace_Proportional_SaturatesSingleLink(t *testing.T) {
	n := domain.New()
	n.AddNode(domain.NewNode("A"))
	n.AddNode(domain.NewNode("B"))
	n.AddLink(domain.NewLink("AB", "A", "B", 3, 1))
	s, err := substrate.Build(n, nil)
	require.NoError(t, err)

	aID, _ := s.NodeID("A")
	bID, _ := s.NodeID("B")
	nodeMask := s.NewNodeMask()
	edgeMask := s.NewEdgeMask()
	fg := New(s, nodeMask, edgeMask)

	sel := pathalgo.EdgeSelection{RequireCapacity: true}
	spf := pathalgo.SPF(s, aID, sel, nodeMask, edgeMask, fg.ResidualView(), bID, true)

	idx := fg.NextFlowIndex()
	placed := fg.Place(idx, spf.DAG, aID, bID, 10, Proportional)
	assert.Equal(t, float64(3), placed, "link capacity is the hard ceiling")
}

func TestAllFlowEdges_UnionsAcrossIndices(t *testing.T) {
	s, ids := diamondSub(t)
	nodeMask := s.NewNodeMask()
	edgeMask := s.NewEdgeMask()
	fg := New(s, nodeMask, edgeMask)

	sel := pathalgo.EdgeSelection{MultiEdge: true, TieBreak: pathalgo.Deterministic}
	spf := pathalgo.SPF(s, ids["A"], sel, nodeMask, edgeMask, nil, ids["D"], true)

	idx1 := fg.NextFlowIndex()
	fg.Place(idx1, spf.DAG, ids["A"], ids["D"], 2, EqualBalanced)
	idx2 := fg.NextFlowIndex()
	fg.Place(idx2, spf.DAG, ids["A"], ids["D"], 2, EqualBalanced)

	all := fg.AllFlowEdges()
	assert.NotEmpty(t, all)
	amounts := fg.FlowAmounts()
	for _, e := range all {
		assert.Greater(t, amounts[e], 0.0)
	}
}

func TestMinCut_ReportsSaturatedFrontier(t *testing.T) {
	s, ids := diamondSub(t)
	nodeMask := s.NewNodeMask()
	edgeMask := s.NewEdgeMask()
	fg := New(s, nodeMask, edgeMask)

	sel := pathalgo.EdgeSelection{MultiEdge: true, RequireCapacity: true, TieBreak: pathalgo.PreferHigherResidual}
	for i := 0; i < 4; i++ {
		spf := pathalgo.SPF(s, ids["A"], sel, nodeMask, edgeMask, fg.ResidualView(), ids["D"], true)
		if spf.Dist[ids["D"]] == domain.Infinity {
			break
		}
		idx := fg.NextFlowIndex()
		fg.Place(idx, spf.DAG, ids["A"], ids["D"], 100, Proportional)
	}

	cut := fg.MinCut(ids["A"], ids["D"])
	assert.NotEmpty(t, cut)
}
