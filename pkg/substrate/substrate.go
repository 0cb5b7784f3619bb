// Package substrate builds the array-of-structs, integer-indexed graph
// representation that every path and flow algorithm operates on. Nothing
// in this package knows about names or attributes beyond the id<->name
// mapping; everything else (risk groups, selectors) lives upstream in
// pkg/domain.
package substrate

import (
	"sort"

	"netgraph/pkg/apperror"
	"netgraph/pkg/domain"
)

// AugmentationEdge describes one pseudo-source/sink edge to add on top of
// a Network's real links when building a Substrate. Augmentation edges
// are always unidirectional and carry ext_edge_id == -1 (no scenario
// identity — a failure can never target them).
type AugmentationEdge struct {
	Source   string
	Target   string
	Capacity float64
	Cost     int64
}

// Direction identifies which half of a Link's forward/reverse pair an
// edge index corresponds to.
type Direction int

const (
	Forward Direction = 0
	Reverse Direction = 1
)

// Substrate is an immutable, contiguous-integer-indexed view of a
// Network plus any augmentation edges supplied at build time. Two builds
// of the same Network with the same augmentation list, in the same
// order, produce byte-identical arrays.
type Substrate struct {
	nodeNames []string
	nodeIndex map[string]int

	Src        []int
	Dst        []int
	Capacity   []float64
	Cost       []int64
	ExtEdgeID  []int64

	// linkEdges maps a Network link id to its (forward, reverse) edge
	// indices in the arrays above.
	linkEdges map[string][2]int

	// edgeLinkID is the inverse of linkEdges: every real (non-augmentation)
	// edge index maps back to its owning link id.
	edgeLinkID map[int]string

	// DisabledNodeIDs / DisabledLinkIDs are the pre-computed, frozen sets
	// coming from Node.Disabled / Link.Disabled at build time — these are
	// baked into every mask this substrate ever produces.
	DisabledNodeIDs map[int]struct{}
	DisabledLinkIDs map[string]struct{}

	// adjacency is the deterministic outgoing-edge index, built once at
	// Build time and reused by every algorithm call against this substrate.
	adjacency Adjacency
}

// Build constructs a Substrate from net, appending augs (in the order
// given) after the network's real, bidirectional links. Node ordering is
// the sorted list of node names; link ordering is the sorted list of
// link ids, each contributing a forward edge immediately followed by its
// reverse edge.
func Build(net *domain.Network, augs []AugmentationEdge) (*Substrate, error) {
	nodeNames := net.SortedNodeNames()
	linkIDs := net.SortedLinkIDs()

	s := &Substrate{
		nodeNames:       nodeNames,
		nodeIndex:       make(map[string]int, len(nodeNames)),
		linkEdges:       make(map[string][2]int, len(linkIDs)),
		edgeLinkID:      make(map[int]string, len(linkIDs)*2),
		DisabledNodeIDs: make(map[int]struct{}),
		DisabledLinkIDs: make(map[string]struct{}),
	}
	for i, name := range nodeNames {
		s.nodeIndex[name] = i
	}

	numEdges := len(linkIDs)*2 + len(augs)
	s.Src = make([]int, 0, numEdges)
	s.Dst = make([]int, 0, numEdges)
	s.Capacity = make([]float64, 0, numEdges)
	s.Cost = make([]int64, 0, numEdges)
	s.ExtEdgeID = make([]int64, 0, numEdges)

	for linkIdx, linkID := range linkIDs {
		link := net.Links[linkID]

		srcID, ok := s.nodeIndex[link.Source]
		if !ok {
			return nil, apperror.New(apperror.CodeUndefinedNodeReference,
				"link references undefined source node").WithField(link.Source)
		}
		dstID, ok := s.nodeIndex[link.Target]
		if !ok {
			return nil, apperror.New(apperror.CodeUndefinedNodeReference,
				"link references undefined target node").WithField(link.Target)
		}

		fwdIdx := len(s.Src)
		s.Src = append(s.Src, srcID)
		s.Dst = append(s.Dst, dstID)
		s.Capacity = append(s.Capacity, link.Capacity)
		s.Cost = append(s.Cost, link.Cost)
		s.ExtEdgeID = append(s.ExtEdgeID, encodeExtEdgeID(linkIdx, Forward))

		revIdx := len(s.Src)
		s.Src = append(s.Src, dstID)
		s.Dst = append(s.Dst, srcID)
		s.Capacity = append(s.Capacity, link.Capacity)
		s.Cost = append(s.Cost, link.Cost)
		s.ExtEdgeID = append(s.ExtEdgeID, encodeExtEdgeID(linkIdx, Reverse))

		s.linkEdges[linkID] = [2]int{fwdIdx, revIdx}
		s.edgeLinkID[fwdIdx] = linkID
		s.edgeLinkID[revIdx] = linkID

		if link.Disabled {
			s.DisabledLinkIDs[linkID] = struct{}{}
		}
	}

	for _, aug := range augs {
		srcID, ok := s.nodeIndex[aug.Source]
		if !ok {
			return nil, apperror.New(apperror.CodeUndefinedNodeReference,
				"augmentation edge references undefined source node").WithField(aug.Source)
		}
		dstID, ok := s.nodeIndex[aug.Target]
		if !ok {
			return nil, apperror.New(apperror.CodeUndefinedNodeReference,
				"augmentation edge references undefined target node").WithField(aug.Target)
		}
		s.Src = append(s.Src, srcID)
		s.Dst = append(s.Dst, dstID)
		s.Capacity = append(s.Capacity, aug.Capacity)
		s.Cost = append(s.Cost, aug.Cost)
		s.ExtEdgeID = append(s.ExtEdgeID, -1)
	}

	for i, name := range nodeNames {
		if node := net.Nodes[name]; node.Disabled {
			s.DisabledNodeIDs[i] = struct{}{}
		}
	}

	s.adjacency = NewAdjacency(s)

	return s, nil
}

// Adjacency returns the substrate's precomputed outgoing-edge index.
func (s *Substrate) Adjacency() Adjacency { return s.adjacency }

func encodeExtEdgeID(linkIndex int, dir Direction) int64 {
	id := int64(linkIndex) << 1
	if dir == Reverse {
		id |= 1
	}
	return id
}

// NumNodes returns the number of nodes in the substrate.
func (s *Substrate) NumNodes() int { return len(s.nodeNames) }

// NumEdges returns the number of edges in the substrate, including
// reverse twins and augmentation edges.
func (s *Substrate) NumEdges() int { return len(s.Src) }

// NodeID looks up a node's integer id by name.
func (s *Substrate) NodeID(name string) (int, bool) {
	id, ok := s.nodeIndex[name]
	return id, ok
}

// NodeName returns the name of node id.
func (s *Substrate) NodeName(id int) string {
	return s.nodeNames[id]
}

// LinkEdgeIndices returns the (forward, reverse) edge indices for a link id.
func (s *Substrate) LinkEdgeIndices(linkID string) ([2]int, bool) {
	idx, ok := s.linkEdges[linkID]
	return idx, ok
}

// LinkIDForEdge returns the Network link id owning edge index e, or ""
// for an augmentation edge.
func (s *Substrate) LinkIDForEdge(e int) string {
	return s.edgeLinkID[e]
}

// Decode reverses an ext_edge_id back into (linkIndex, direction); it
// returns ok=false for the -1 sentinel used by augmentation edges.
func (s *Substrate) Decode(extEdgeID int64) (linkIndex int, dir Direction, ok bool) {
	if extEdgeID < 0 {
		return 0, Forward, false
	}
	return int(extEdgeID >> 1), Direction(extEdgeID & 1), true
}

// NewNodeMask returns a boolean array of length NumNodes(), true
// everywhere except the pre-disabled node ids baked in at build time.
func (s *Substrate) NewNodeMask() []bool {
	mask := make([]bool, s.NumNodes())
	for i := range mask {
		mask[i] = true
	}
	for id := range s.DisabledNodeIDs {
		mask[id] = false
	}
	return mask
}

// NewEdgeMask returns a boolean array of length NumEdges(), true
// everywhere except edges belonging to pre-disabled links.
func (s *Substrate) NewEdgeMask() []bool {
	mask := make([]bool, s.NumEdges())
	for i := range mask {
		mask[i] = true
	}
	for linkID := range s.DisabledLinkIDs {
		if idx, ok := s.linkEdges[linkID]; ok {
			mask[idx[0]] = false
			mask[idx[1]] = false
		}
	}
	return mask
}

// ApplyNodeExclusions clears mask entries for the given node ids, in
// addition to whatever is already false. Mutates mask in place and
// returns it.
func ApplyNodeExclusions(mask []bool, nodeIDs []int) []bool {
	for _, id := range nodeIDs {
		if id >= 0 && id < len(mask) {
			mask[id] = false
		}
	}
	return mask
}

// ApplyLinkExclusions clears both edge-array slots for the given link
// ids. Mutates edgeMask in place and returns it.
func (s *Substrate) ApplyLinkExclusions(edgeMask []bool, linkIDs []string) []bool {
	for _, linkID := range linkIDs {
		if idx, ok := s.linkEdges[linkID]; ok {
			edgeMask[idx[0]] = false
			edgeMask[idx[1]] = false
		}
	}
	return edgeMask
}

// OutgoingEdges returns, for node id, the sorted-by-destination list of
// edge indices leaving it. Computed on demand; callers doing repeated
// traversals should build an adjacency index once via NewAdjacency.
func (s *Substrate) OutgoingEdges(node int) []int {
	var out []int
	for i, src := range s.Src {
		if src == node {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.Dst[out[i]] < s.Dst[out[j]] })
	return out
}

// Adjacency is a precomputed, deterministic outgoing-edge index: for each
// node id, the edge indices leaving it, ordered by destination node id
// then by edge index (to break ties between parallel edges stably).
type Adjacency [][]int

// NewAdjacency builds an Adjacency index for s. O(E log E).
func NewAdjacency(s *Substrate) Adjacency {
	adj := make(Adjacency, s.NumNodes())
	for i, src := range s.Src {
		adj[src] = append(adj[src], i)
	}
	for node := range adj {
		edges := adj[node]
		sort.Slice(edges, func(i, j int) bool {
			if s.Dst[edges[i]] != s.Dst[edges[j]] {
				return s.Dst[edges[i]] < s.Dst[edges[j]]
			}
			return edges[i] < edges[j]
		})
	}
	return adj
}
