package domain

import (
	"fmt"
	"sort"
	"sync"

	"netgraph/pkg/apperror"
)

// Network is the mutable, user-facing network model: named nodes, links
// between them, and named risk groups. It is guarded by a RWMutex because
// callers may build a Network incrementally from several goroutines (e.g.
// a parser streaming in node/link declarations) before handing it to an
// AnalysisContext, at which point it is treated as an immutable snapshot.
type Network struct {
	mu         sync.RWMutex
	Nodes      map[string]*Node
	Links      map[string]*Link
	RiskGroups map[string]*RiskGroup
}

// New creates an empty Network.
func New() *Network {
	return &Network{
		Nodes:      make(map[string]*Node),
		Links:      make(map[string]*Link),
		RiskGroups: make(map[string]*RiskGroup),
	}
}

// AddNode inserts or replaces a node.
func (n *Network) AddNode(node *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Nodes[node.Name] = node
}

// AddLink inserts or replaces a link.
func (n *Network) AddLink(link *Link) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Links[link.ID] = link
}

// AddRiskGroup inserts or replaces a risk group.
func (n *Network) AddRiskGroup(rg *RiskGroup) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.RiskGroups[rg.Name] = rg
}

// Clone returns a deep copy of the network, safe to mutate independently
// of the original (used by anctx.Bind to add pseudo source/sink nodes
// without touching the caller's network; failure exclusions use masks
// instead).
func (n *Network) Clone() *Network {
	n.mu.RLock()
	defer n.mu.RUnlock()

	c := New()
	for name, node := range n.Nodes {
		c.Nodes[name] = node.Clone()
	}
	for id, link := range n.Links {
		c.Links[id] = link.Clone()
	}
	for name, rg := range n.RiskGroups {
		c.RiskGroups[name] = rg.Clone()
	}
	return c
}

// SortedNodeNames returns node names in deterministic ascending order.
func (n *Network) SortedNodeNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.Nodes))
	for name := range n.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedLinkIDs returns link ids in deterministic ascending order.
func (n *Network) SortedLinkIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]string, 0, len(n.Links))
	for id := range n.Links {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedRiskGroupNames returns risk-group names in deterministic
// ascending order.
func (n *Network) SortedRiskGroupNames() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.RiskGroups))
	for name := range n.RiskGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks referential integrity and risk-group acyclicity. It is
// called once when an AnalysisContext is bound to a Network; analysis
// operations never re-validate.
func (n *Network) Validate() error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, link := range n.Links {
		if _, ok := n.Nodes[link.Source]; !ok {
			return apperror.New(apperror.CodeUndefinedNodeReference,
				fmt.Sprintf("link %q references undefined source node %q", link.ID, link.Source))
		}
		if _, ok := n.Nodes[link.Target]; !ok {
			return apperror.New(apperror.CodeUndefinedNodeReference,
				fmt.Sprintf("link %q references undefined target node %q", link.ID, link.Target))
		}
		for rg := range link.RiskGroups {
			if _, ok := n.RiskGroups[rg]; !ok {
				return apperror.New(apperror.CodeUndefinedRiskGroup,
					fmt.Sprintf("link %q references undefined risk group %q", link.ID, rg)).
					WithField("risk_group")
			}
		}
	}

	for _, node := range n.Nodes {
		for rg := range node.RiskGroups {
			if _, ok := n.RiskGroups[rg]; !ok {
				return apperror.New(apperror.CodeUndefinedRiskGroup,
					fmt.Sprintf("node %q references undefined risk group %q", node.Name, rg)).
					WithField("risk_group")
			}
		}
	}

	for _, rg := range n.RiskGroups {
		for child := range rg.Children {
			if _, ok := n.RiskGroups[child]; !ok {
				return apperror.New(apperror.CodeUndefinedRiskGroup,
					fmt.Sprintf("risk group %q references undefined child %q", rg.Name, child)).
					WithField("risk_group")
			}
		}
	}

	return n.checkRiskGroupAcyclic()
}

// checkRiskGroupAcyclic verifies the risk-group child graph is a DAG using
// DFS with a three-color scheme (white/gray/black).
func (n *Network) checkRiskGroupAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(n.RiskGroups))

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		rg := n.RiskGroups[name]
		children := make([]string, 0, len(rg.Children))
		for child := range rg.Children {
			children = append(children, child)
		}
		sort.Strings(children)

		for _, child := range children {
			switch color[child] {
			case white:
				if err := visit(child); err != nil {
					return err
				}
			case gray:
				return apperror.New(apperror.CodeRiskGroupCycle,
					fmt.Sprintf("risk group %q is part of a cycle via child %q", name, child))
			}
		}
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(n.RiskGroups))
	for name := range n.RiskGroups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExpandRiskGroup returns the transitive closure of a risk group's
// children (BFS over Children), including the group itself. Used when a
// failure rule targets a risk group and must disable every descendant.
func (n *Network) ExpandRiskGroup(name string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	seen := map[string]struct{}{name: {}}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		rg, ok := n.RiskGroups[cur]
		if !ok {
			continue
		}
		children := make([]string, 0, len(rg.Children))
		for child := range rg.Children {
			children = append(children, child)
		}
		sort.Strings(children)

		for _, child := range children {
			if _, visited := seen[child]; !visited {
				seen[child] = struct{}{}
				queue = append(queue, child)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NodesInRiskGroups returns the set of node names carrying any of the
// given risk group names directly (no expansion — callers pass an
// already-expanded set when groups nest).
func (n *Network) NodesInRiskGroups(groupNames map[string]struct{}) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []string
	for _, node := range n.Nodes {
		for rg := range node.RiskGroups {
			if _, ok := groupNames[rg]; ok {
				out = append(out, node.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// LinksInRiskGroups returns the set of link ids carrying any of the given
// risk group names directly.
func (n *Network) LinksInRiskGroups(groupNames map[string]struct{}) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var out []string
	for _, link := range n.Links {
		for rg := range link.RiskGroups {
			if _, ok := groupNames[rg]; ok {
				out = append(out, link.ID)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
