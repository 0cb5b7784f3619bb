// Package selector evaluates the regex/attribute predicate language used
// by traffic-demand and failure-policy specs to pick nodes and links out
// of a domain.Network.
package selector

import (
	"regexp"
	"sort"
	"strings"

	"netgraph/pkg/apperror"
	"netgraph/pkg/domain"
)

// Selector is a tagged variant: either a bare regex path, or a
// structured selector with an optional group_by override and attribute
// match conditions.
type Selector struct {
	// Path holds the regex when this selector is the Path variant.
	Path string
	// Structured is true when GroupBy/Match should be consulted instead
	// of treating Path as the sole filter.
	Structured bool
	GroupBy    string
	Match      []Condition
}

// ConditionOp is an attribute-match operator.
type ConditionOp string

const (
	OpEquals     ConditionOp = "eq"
	OpNotEquals  ConditionOp = "ne"
	OpIn         ConditionOp = "in"
	OpExists     ConditionOp = "exists"
)

// Condition is one attribute predicate, e.g. `region == "west"` (Attrs
// entries sit at the top level of the flat view, not under an "attrs" key).
// Key supports dot notation (a.b.c) traversing nested maps.
type Condition struct {
	Key   string
	Op    ConditionOp
	Value any
}

// NewPath builds a bare regex-path selector.
func NewPath(pattern string) Selector {
	return Selector{Path: pattern}
}

// NewStructured builds a structured selector.
func NewStructured(pattern, groupBy string, match []Condition) Selector {
	return Selector{Path: pattern, Structured: true, GroupBy: groupBy, Match: match}
}

// Entity is the flat, selector-evaluable view of a node or link: its
// name and a merged attribute view where top-level fields (Disabled,
// Capacity, Cost, ...) win over same-named keys in Attrs.
type Entity struct {
	Name  string
	View  map[string]any
	Group string // regex-capture or group_by derived label; "" if ungrouped
}

// SelectNodes evaluates sel against net's nodes, applying: (a) the regex
// path filter, (b) attribute conditions, (c) the disabled/excluded
// filter (includeDisabled controls whether disabled nodes pass), and (d)
// optional re-grouping by sel.GroupBy (overrides regex-capture grouping).
func SelectNodes(net *domain.Network, sel Selector, includeDisabled bool) ([]Entity, error) {
	re, err := regexp.Compile(sel.Path)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidEnum, "invalid selector regex: "+err.Error())
	}

	var out []Entity
	for _, name := range net.SortedNodeNames() {
		node := net.Nodes[name]
		if !includeDisabled && node.Disabled {
			continue
		}
		match := re.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		view := flatNodeView(node)
		if sel.Structured && !matchConditions(view, sel.Match) {
			continue
		}
		group := captureGroup(re, match)
		if sel.Structured && sel.GroupBy != "" {
			group = attrString(view, sel.GroupBy)
		}
		out = append(out, Entity{Name: name, View: view, Group: group})
	}
	return out, nil
}

// SelectLinks is SelectNodes' link-side equivalent, matching against
// link id.
func SelectLinks(net *domain.Network, sel Selector, includeDisabled bool) ([]Entity, error) {
	re, err := regexp.Compile(sel.Path)
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidEnum, "invalid selector regex: "+err.Error())
	}

	var out []Entity
	for _, id := range net.SortedLinkIDs() {
		link := net.Links[id]
		if !includeDisabled && link.Disabled {
			continue
		}
		match := re.FindStringSubmatch(id)
		if match == nil {
			continue
		}
		view := flatLinkView(link)
		if sel.Structured && !matchConditions(view, sel.Match) {
			continue
		}
		group := captureGroup(re, match)
		if sel.Structured && sel.GroupBy != "" {
			group = attrString(view, sel.GroupBy)
		}
		out = append(out, Entity{Name: id, View: view, Group: group})
	}
	return out, nil
}

func captureGroup(re *regexp.Regexp, match []string) string {
	if len(match) > 1 {
		return strings.Join(match[1:], "|")
	}
	return ""
}

func flatNodeView(n *domain.Node) map[string]any {
	view := make(map[string]any, len(n.Attrs)+2)
	for k, v := range n.Attrs {
		view[k] = v
	}
	view["name"] = n.Name
	view["disabled"] = n.Disabled
	return view
}

func flatLinkView(l *domain.Link) map[string]any {
	view := make(map[string]any, len(l.Attrs)+5)
	for k, v := range l.Attrs {
		view[k] = v
	}
	view["id"] = l.ID
	view["source"] = l.Source
	view["target"] = l.Target
	view["capacity"] = l.Capacity
	view["cost"] = l.Cost
	view["disabled"] = l.Disabled
	return view
}

func matchConditions(view map[string]any, conds []Condition) bool {
	for _, c := range conds {
		if !matchOne(view, c) {
			return false
		}
	}
	return true
}

func matchOne(view map[string]any, c Condition) bool {
	val, ok := lookupDotted(view, c.Key)
	switch c.Op {
	case OpExists:
		return ok
	case OpNotEquals:
		return !ok || val != c.Value
	case OpIn:
		items, isSlice := c.Value.([]any)
		if !isSlice || !ok {
			return false
		}
		for _, item := range items {
			if item == val {
				return true
			}
		}
		return false
	default: // OpEquals
		return ok && val == c.Value
	}
}

// lookupDotted traverses a.b.c through nested map[string]any values.
// Missing or nil at any hop yields ok=false.
func lookupDotted(view map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	var cur any = view
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, present := m[p]
		if !present || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func attrString(view map[string]any, key string) string {
	v, ok := lookupDotted(view, key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// GroupBy buckets entities by their Group label, returning labels in
// sorted order for deterministic iteration.
func GroupBy(entities []Entity) (map[string][]Entity, []string) {
	groups := make(map[string][]Entity)
	for _, e := range entities {
		groups[e.Group] = append(groups[e.Group], e)
	}
	labels := make([]string, 0, len(groups))
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return groups, labels
}
