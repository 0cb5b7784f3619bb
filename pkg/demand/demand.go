// Package demand turns declarative TrafficDemand specs into concrete
// ExpandedDemand placement units, and runs them against a FlowGraph
// through the PlacementEngine.
package demand

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"netgraph/pkg/apperror"
	"netgraph/pkg/domain"
	"netgraph/pkg/flowpolicy"
	"netgraph/pkg/selector"
)

// Mode selects how a demand's source and sink selections are paired.
type Mode string

const (
	ModeCombine  Mode = "combine"
	ModePairwise Mode = "pairwise"
)

// GroupModeKind selects how group labels from source/sink selectors
// interact with expansion.
type GroupModeKind string

const (
	GroupFlatten       GroupModeKind = "flatten"
	GroupPerGroup      GroupModeKind = "per_group"
	GroupGroupPairwise GroupModeKind = "group_pairwise"
)

// TrafficDemand is the declarative input spec for one demand.
type TrafficDemand struct {
	ID         string
	Source     selector.Selector
	Target     selector.Selector
	Volume     float64
	Priority   int
	Mode       Mode
	GroupMode  GroupModeKind
	FlowPolicy flowpolicy.Preset
	Attrs      map[string]any
}

// WithAutoID fills in d.ID from "source|target|<uuid>" when empty,
// matching the stability contract: a regenerated demand with an omitted
// id gets a fresh, non-interchangeable id.
func (d TrafficDemand) WithAutoID() TrafficDemand {
	if d.ID == "" {
		d.ID = fmt.Sprintf("%s|%s|%s", d.Source.Path, d.Target.Path, uuid.NewString())
	}
	return d
}

// ExpandedDemand is a concrete placement unit produced by expansion.
type ExpandedDemand struct {
	ID             string
	SrcName        string
	DstName        string
	Volume         float64
	Priority       int
	PolicyPreset   flowpolicy.Preset
	ParentDemandID string
}

// Expansion is the output of expanding a TrafficDemand list: demands
// sorted by priority (lower first), plus any pseudo-node augmentation
// edges they require.
type Expansion struct {
	Demands      []ExpandedDemand
	Augmentations []AugmentationSpec
}

// AugmentationSpec names one pseudo-source/sink edge a combine-mode
// expansion requires; the caller (AnalysisContext builder) turns this
// into a substrate.AugmentationEdge.
type AugmentationSpec struct {
	Source   string
	Target   string
	Capacity float64
	Cost     int64
}

// Expand runs the two-phase expansion (selector evaluation, then the
// mode x group_mode matrix) over demands against net, falling back to
// defaultPreset when a demand omits FlowPolicy.
func Expand(net *domain.Network, demands []TrafficDemand, defaultPreset flowpolicy.Preset) (Expansion, error) {
	var out Expansion

	for _, d := range demands {
		d = d.WithAutoID()
		preset := d.FlowPolicy
		if preset == "" {
			preset = defaultPreset
		}

		srcEntities, err := selector.SelectNodes(net, d.Source, false)
		if err != nil {
			return Expansion{}, err
		}
		dstEntities, err := selector.SelectNodes(net, d.Target, false)
		if err != nil {
			return Expansion{}, err
		}
		if len(srcEntities) == 0 || len(dstEntities) == 0 {
			return Expansion{}, apperror.New(apperror.CodeEmptySelection,
				fmt.Sprintf("demand %q: source or target selector matched no nodes", d.ID))
		}

		groupMode := d.GroupMode
		if groupMode == "" {
			groupMode = GroupFlatten
		}

		var expanded []ExpandedDemand
		var augs []AugmentationSpec
		var expErr error

		switch groupMode {
		case GroupFlatten:
			expanded, augs, expErr = expandOnePair(d, preset, srcEntities, dstEntities, d.Volume)
		case GroupPerGroup:
			expanded, augs, expErr = expandPerGroup(d, preset, srcEntities, dstEntities, d.Volume, false)
		case GroupGroupPairwise:
			expanded, augs, expErr = expandPerGroup(d, preset, srcEntities, dstEntities, d.Volume, true)
		default:
			expErr = apperror.New(apperror.CodeInvalidMode, "unknown group_mode "+string(groupMode))
		}
		if expErr != nil {
			return Expansion{}, expErr
		}

		out.Demands = append(out.Demands, expanded...)
		out.Augmentations = append(out.Augmentations, augs...)
	}

	if len(out.Demands) == 0 {
		return Expansion{}, apperror.New(apperror.CodeNoDemands, "demand expansion produced no concrete demands")
	}

	sort.SliceStable(out.Demands, func(i, j int) bool {
		return out.Demands[i].Priority < out.Demands[j].Priority
	})

	return out, nil
}

// expandOnePair applies d.Mode to a single (src group, dst group) pair,
// dividing volume evenly across emitted demands under ModePairwise.
func expandOnePair(d TrafficDemand, preset flowpolicy.Preset, srcEntities, dstEntities []selector.Entity, volume float64) ([]ExpandedDemand, []AugmentationSpec, error) {
	switch d.Mode {
	case ModeCombine:
		if overlaps(srcEntities, dstEntities) {
			return nil, nil, nil
		}
		srcPseudo := "_src_" + d.ID
		dstPseudo := "_snk_" + d.ID
		var augs []AugmentationSpec
		for _, e := range srcEntities {
			augs = append(augs, AugmentationSpec{Source: srcPseudo, Target: e.Name, Capacity: domain.PseudoCapacity, Cost: 0})
		}
		for _, e := range dstEntities {
			augs = append(augs, AugmentationSpec{Source: e.Name, Target: dstPseudo, Capacity: domain.PseudoCapacity, Cost: 0})
		}
		return []ExpandedDemand{{
			ID: d.ID, SrcName: srcPseudo, DstName: dstPseudo, Volume: volume,
			Priority: d.Priority, PolicyPreset: preset, ParentDemandID: d.ID,
		}}, augs, nil

	default: // ModePairwise
		var pairs []struct{ src, dst string }
		for _, s := range srcEntities {
			for _, t := range dstEntities {
				if s.Name == t.Name {
					continue
				}
				pairs = append(pairs, struct{ src, dst string }{s.Name, t.Name})
			}
		}
		if len(pairs) == 0 {
			return nil, nil, apperror.New(apperror.CodeEmptySelection,
				fmt.Sprintf("demand %q: pairwise expansion produced no (source, target) pairs", d.ID))
		}
		perPair := volume / float64(len(pairs))
		out := make([]ExpandedDemand, 0, len(pairs))
		for _, pr := range pairs {
			out = append(out, ExpandedDemand{
				ID: d.ID, SrcName: pr.src, DstName: pr.dst, Volume: perPair,
				Priority: d.Priority, PolicyPreset: preset, ParentDemandID: d.ID,
			})
		}
		return out, nil, nil
	}
}

// expandPerGroup iterates distinct (src_group, dst_group) label pairs.
// Under group_pairwise, volume divides evenly across the pairs; under
// per_group, each pair receives the full original volume (spec.md §4.6,
// §9 open question: this asymmetry is intentional).
func expandPerGroup(d TrafficDemand, preset flowpolicy.Preset, srcEntities, dstEntities []selector.Entity, volume float64, dividePerPair bool) ([]ExpandedDemand, []AugmentationSpec, error) {
	srcGroups, srcLabels := selector.GroupBy(srcEntities)
	dstGroups, dstLabels := selector.GroupBy(dstEntities)

	type groupPair struct{ srcLabel, dstLabel string }
	var pairs []groupPair
	for _, sl := range srcLabels {
		for _, dl := range dstLabels {
			pairs = append(pairs, groupPair{sl, dl})
		}
	}
	if len(pairs) == 0 {
		return nil, nil, apperror.New(apperror.CodeEmptySelection,
			fmt.Sprintf("demand %q: no distinct group pairs to expand", d.ID))
	}

	perPairVolume := volume
	if dividePerPair {
		perPairVolume = volume / float64(len(pairs))
	}

	var allExpanded []ExpandedDemand
	var allAugs []AugmentationSpec

	for _, gp := range pairs {
		sub := d
		sub.ID = fmt.Sprintf("%s|%s|%s", d.ID, gp.srcLabel, gp.dstLabel)
		expanded, augs, err := expandOnePair(sub, preset, srcGroups[gp.srcLabel], dstGroups[gp.dstLabel], perPairVolume)
		if err != nil {
			return nil, nil, err
		}
		allExpanded = append(allExpanded, expanded...)
		allAugs = append(allAugs, augs...)
	}
	return allExpanded, allAugs, nil
}

func overlaps(a, b []selector.Entity) bool {
	set := make(map[string]struct{}, len(a))
	for _, e := range a {
		set[e.Name] = struct{}{}
	}
	for _, e := range b {
		if _, ok := set[e.Name]; ok {
			return true
		}
	}
	return false
}
