package domain

// Node is a named vertex in a Network. Attrs holds free-form metadata used
// by selector matching and reporting; well-known fields (Disabled,
// RiskGroups) are promoted to struct fields because the engine reads them
// on every analysis call.
type Node struct {
	Name       string
	Disabled   bool
	RiskGroups map[string]struct{}
	Attrs      map[string]any
}

// NewNode creates a Node with initialized maps.
func NewNode(name string) *Node {
	return &Node{
		Name:       name,
		RiskGroups: make(map[string]struct{}),
		Attrs:      make(map[string]any),
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	c := &Node{
		Name:       n.Name,
		Disabled:   n.Disabled,
		RiskGroups: make(map[string]struct{}, len(n.RiskGroups)),
		Attrs:      make(map[string]any, len(n.Attrs)),
	}
	for rg := range n.RiskGroups {
		c.RiskGroups[rg] = struct{}{}
	}
	for k, v := range n.Attrs {
		c.Attrs[k] = v
	}
	return c
}

// Link is a directed edge between two nodes. A Link is always bidirectional
// in the underlying substrate — the substrate constructs a reverse twin
// with the same Capacity and Cost the first time the Network is built.
type Link struct {
	ID         string
	Source     string
	Target     string
	Capacity   float64
	Cost       int64
	Disabled   bool
	RiskGroups map[string]struct{}
	Attrs      map[string]any
}

// NewLink creates a Link with initialized maps.
func NewLink(id, source, target string, capacity float64, cost int64) *Link {
	return &Link{
		ID:         id,
		Source:     source,
		Target:     target,
		Capacity:   capacity,
		Cost:       cost,
		RiskGroups: make(map[string]struct{}),
		Attrs:      make(map[string]any),
	}
}

// Clone returns a deep copy of l.
func (l *Link) Clone() *Link {
	c := &Link{
		ID:         l.ID,
		Source:     l.Source,
		Target:     l.Target,
		Capacity:   l.Capacity,
		Cost:       l.Cost,
		Disabled:   l.Disabled,
		RiskGroups: make(map[string]struct{}, len(l.RiskGroups)),
		Attrs:      make(map[string]any, len(l.Attrs)),
	}
	for rg := range l.RiskGroups {
		c.RiskGroups[rg] = struct{}{}
	}
	for k, v := range l.Attrs {
		c.Attrs[k] = v
	}
	return c
}

// RiskGroup is a named failure domain. Children lets risk groups nest
// (e.g. a site risk group containing per-rack risk groups); a failure
// applied to a parent group recursively disables every descendant.
type RiskGroup struct {
	Name     string
	Disabled bool
	Children map[string]struct{}
	Attrs    map[string]any
}

// NewRiskGroup creates a RiskGroup with initialized maps.
func NewRiskGroup(name string) *RiskGroup {
	return &RiskGroup{
		Name:     name,
		Children: make(map[string]struct{}),
		Attrs:    make(map[string]any),
	}
}

// Clone returns a deep copy of g.
func (g *RiskGroup) Clone() *RiskGroup {
	c := &RiskGroup{
		Name:     g.Name,
		Disabled: g.Disabled,
		Children: make(map[string]struct{}, len(g.Children)),
		Attrs:    make(map[string]any, len(g.Attrs)),
	}
	for ch := range g.Children {
		c.Children[ch] = struct{}{}
	}
	for k, v := range g.Attrs {
		c.Attrs[k] = v
	}
	return c
}
