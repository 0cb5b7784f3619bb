// Package failure implements the FailurePolicy model and the
// FailureManager Monte Carlo driver: per-iteration exclusion derivation,
// deduplication, worker-pool parallelism, and result enrichment.
package failure

import (
	"math"
	"math/rand"
	"sort"

	"netgraph/pkg/domain"
	"netgraph/pkg/selector"
)

// Scope names what kind of entity a Rule selects.
type Scope string

const (
	ScopeNode      Scope = "node"
	ScopeLink      Scope = "link"
	ScopeRiskGroup Scope = "risk_group"
)

// SelectionMode names how a Rule picks among its candidate set.
type SelectionMode string

const (
	SelectAll    SelectionMode = "all"
	SelectRandom SelectionMode = "random"
	SelectChoice SelectionMode = "choice"
)

// Rule is one failure-selection step within a Mode.
type Rule struct {
	Scope      Scope
	Conditions []selector.Condition
	PathRegex  string
	Mode       SelectionMode
	// Probability is used by SelectRandom: each candidate independently
	// fails with this probability (Bernoulli draw).
	Probability float64
	// Count and WeightBy are used by SelectChoice.
	Count    int
	WeightBy string // attribute key to weight by; "" means unweighted.
}

// Mode is one weighted failure mode: a set of rules applied together.
type Mode struct {
	Name   string
	Weight float64
	Rules  []Rule
}

// Policy is a named failure policy: a weighted set of modes plus
// group-expansion flags and a deterministic seed.
type Policy struct {
	Name           string
	Modes          []Mode
	ExpandGroups   bool
	ExpandChildren bool
	Seed           int64
}

// HasEffectiveRules reports whether the policy can ever fail anything —
// used by the FailureManager to force iterations to 0 when not.
func (p Policy) HasEffectiveRules() bool {
	for _, m := range p.Modes {
		if m.Weight > 0 && len(m.Rules) > 0 {
			return true
		}
	}
	return false
}

// Exclusions is the pair of sets compute_exclusions produces for one
// iteration.
type Exclusions struct {
	Nodes map[string]struct{}
	Links map[string]struct{}
}

// SortedNodes returns excluded node names in sorted order.
func (e Exclusions) SortedNodes() []string {
	return sortedKeys(e.Nodes)
}

// SortedLinks returns excluded link ids in sorted order.
func (e Exclusions) SortedLinks() []string {
	return sortedKeys(e.Links)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ComputeExclusions deterministically derives (excluded_nodes,
// excluded_links) for one iteration. seedOffset overrides policy.Seed
// when non-nil. All rules in the selected mode draw sequentially from a
// single RNG instance — never reset per rule — so joint failure
// probabilities across rules are statistically independent.
func ComputeExclusions(net *domain.Network, p Policy, seedOffset *int64) Exclusions {
	excl := Exclusions{Nodes: make(map[string]struct{}), Links: make(map[string]struct{})}
	if len(p.Modes) == 0 {
		return excl
	}

	seed := p.Seed
	if seedOffset != nil {
		seed = *seedOffset
	}
	rng := rand.New(rand.NewSource(seed))

	mode := chooseMode(p.Modes, rng)
	if mode == nil {
		return excl
	}

	failedNodes := make(map[string]struct{})
	failedLinks := make(map[string]struct{})

	for _, rule := range mode.Rules {
		applyRule(net, rule, rng, failedNodes, failedLinks)
	}

	if p.ExpandGroups {
		expandByRiskGroup(net, failedNodes, failedLinks, p.ExpandChildren)
	}

	for n := range failedNodes {
		excl.Nodes[n] = struct{}{}
	}
	for l := range failedLinks {
		excl.Links[l] = struct{}{}
	}
	return excl
}

// chooseMode draws one mode using weighted RNG, modes considered in
// index order (already the declaration order, which is deterministic).
func chooseMode(modes []Mode, rng *rand.Rand) *Mode {
	var total float64
	for _, m := range modes {
		if m.Weight > 0 {
			total += m.Weight
		}
	}
	if total <= domain.Epsilon {
		return nil
	}
	r := rng.Float64() * total
	var cum float64
	for i := range modes {
		if modes[i].Weight <= 0 {
			continue
		}
		cum += modes[i].Weight
		if r <= cum {
			return &modes[i]
		}
	}
	return &modes[len(modes)-1]
}

func applyRule(net *domain.Network, rule Rule, rng *rand.Rand, failedNodes, failedLinks map[string]struct{}) {
	candidates := candidateEntities(net, rule)

	switch rule.Mode {
	case SelectAll:
		for _, name := range candidates {
			addFailure(net, rule.Scope, name, failedNodes, failedLinks)
		}
	case SelectRandom:
		for _, name := range candidates {
			if rng.Float64() < rule.Probability {
				addFailure(net, rule.Scope, name, failedNodes, failedLinks)
			}
		}
	case SelectChoice:
		chosen := weightedChoiceEfraimidisSpirakis(net, rule, candidates, rng)
		for _, name := range chosen {
			addFailure(net, rule.Scope, name, failedNodes, failedLinks)
		}
	}
}

// candidateEntities returns the sorted-id-order candidate names for
// rule's scope, after applying its path regex and attribute conditions.
// For ScopeRiskGroup every risk group is a candidate; PathRegex and
// Conditions are not applied.
func candidateEntities(net *domain.Network, rule Rule) []string {
	sel := selector.Selector{Path: rule.PathRegex}
	if sel.Path == "" {
		sel.Path = ".*"
	}
	if len(rule.Conditions) > 0 {
		sel.Structured = true
		sel.Match = rule.Conditions
	}

	var names []string
	switch rule.Scope {
	case ScopeNode:
		entities, err := selector.SelectNodes(net, sel, true)
		if err != nil {
			return nil
		}
		for _, e := range entities {
			names = append(names, e.Name)
		}
	case ScopeLink:
		entities, err := selector.SelectLinks(net, sel, true)
		if err != nil {
			return nil
		}
		for _, e := range entities {
			names = append(names, e.Name)
		}
	case ScopeRiskGroup:
		names = net.SortedRiskGroupNames()
	}
	return names
}

// weightedChoiceEfraimidisSpirakis picks rule.Count items without
// replacement: positive-weight items draw u ∈ (0,1] and rank by
// u^(1/w); zero-weight items fill any remaining slots uniformly.
// Candidates are iterated in sorted order so the RNG stream is
// reproducible.
func weightedChoiceEfraimidisSpirakis(net *domain.Network, rule Rule, candidates []string, rng *rand.Rand) []string {
	if rule.Count <= 0 || len(candidates) == 0 {
		return nil
	}
	if rule.WeightBy == "" {
		return unweightedChoice(candidates, rule.Count, rng)
	}

	type scored struct {
		name string
		key  float64
		zero bool
	}
	items := make([]scored, 0, len(candidates))
	for _, name := range candidates {
		w := weightOf(net, rule, name)
		u := rng.Float64()
		if u <= 0 {
			u = 1e-12
		}
		if w > domain.Epsilon {
			items = append(items, scored{name: name, key: math.Pow(u, 1.0/w)})
		} else {
			items = append(items, scored{name: name, key: u, zero: true})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].zero != items[j].zero {
			return !items[i].zero // non-zero-weight items rank first
		}
		return items[i].key > items[j].key
	})

	n := rule.Count
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].name)
	}
	return out
}

func unweightedChoice(candidates []string, count int, rng *rand.Rand) []string {
	idx := rng.Perm(len(candidates))
	if count > len(idx) {
		count = len(idx)
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, candidates[idx[i]])
	}
	sort.Strings(out)
	return out
}

func weightOf(net *domain.Network, rule Rule, name string) float64 {
	var view map[string]any
	if node, ok := net.Nodes[name]; ok {
		view = map[string]any{"name": node.Name, "disabled": node.Disabled}
		for k, v := range node.Attrs {
			view[k] = v
		}
	} else if link, ok := net.Links[name]; ok {
		view = map[string]any{"id": link.ID, "capacity": link.Capacity, "cost": link.Cost}
		for k, v := range link.Attrs {
			view[k] = v
		}
	}
	if view == nil {
		return 0
	}
	v, ok := view[rule.WeightBy]
	if !ok {
		return 0
	}
	f, _ := toFloat(v)
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func addFailure(net *domain.Network, scope Scope, name string, failedNodes, failedLinks map[string]struct{}) {
	switch scope {
	case ScopeNode:
		failedNodes[name] = struct{}{}
	case ScopeLink:
		failedLinks[name] = struct{}{}
	case ScopeRiskGroup:
		members := net.ExpandRiskGroup(name)
		memberSet := make(map[string]struct{}, len(members))
		for _, m := range members {
			memberSet[m] = struct{}{}
		}
		for _, n := range net.NodesInRiskGroups(memberSet) {
			failedNodes[n] = struct{}{}
		}
		for _, l := range net.LinksInRiskGroups(memberSet) {
			failedLinks[l] = struct{}{}
		}
	}
}

// expandByRiskGroup applies the expand_groups BFS: any entity sharing a
// risk group with an already-failed entity also fails.
func expandByRiskGroup(net *domain.Network, failedNodes, failedLinks map[string]struct{}, expandChildren bool) {
	groups := make(map[string]struct{})
	for n := range failedNodes {
		if node, ok := net.Nodes[n]; ok {
			for g := range node.RiskGroups {
				groups[g] = struct{}{}
			}
		}
	}
	for l := range failedLinks {
		if link, ok := net.Links[l]; ok {
			for g := range link.RiskGroups {
				groups[g] = struct{}{}
			}
		}
	}
	if expandChildren {
		expanded := make(map[string]struct{})
		for g := range groups {
			for _, child := range net.ExpandRiskGroup(g) {
				expanded[child] = struct{}{}
			}
		}
		groups = expanded
	}
	if len(groups) == 0 {
		return
	}
	for _, n := range net.NodesInRiskGroups(groups) {
		failedNodes[n] = struct{}{}
	}
	for _, l := range net.LinksInRiskGroups(groups) {
		failedLinks[l] = struct{}{}
	}
}
