package policy

import (
	"sort"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// Path is a direct-predicate sequence walked from a focus node to reach
// the value an f:equals/f:contains condition compares against the
// requesting identity.
type Path []iri.SID

// AllowRule is one f:allow entry: the roles it grants access to, an
// optional identity condition, the predicates it scopes to (all
// predicates of the target when empty), and which actions it covers.
type AllowRule struct {
	TargetRole []iri.SID
	Equals     Path
	Contains   Path
	Properties []iri.SID
	Actions    []string
}

// Policy is a materialized f:Policy subject.
type Policy struct {
	ID          iri.SID
	TargetClass []iri.SID
	TargetNode  []iri.SID
	Allows      []AllowRule
}

// DiscoverPolicies returns every subject explicitly typed f:Policy.
func DiscoverPolicies(n *novelty.Novelty) []iri.SID {
	var ids []iri.SID
	for _, f := range n.All() {
		if f.P != vocab.RDFType {
			continue
		}
		if sid, ok := f.ORef(); ok && sid == PolicyClass {
			ids = append(ids, f.S)
		}
	}
	return ids
}

// Materialize reads a policy subject's flakes into a Policy, resolving
// each f:allow reference into a fully materialized AllowRule.
func Materialize(id iri.SID, n *novelty.Novelty) *Policy {
	p := &Policy{ID: id}
	for _, fl := range n.BySubject(id) {
		if fl.IsIRIFlake() {
			continue
		}
		switch fl.P {
		case TargetClass:
			if sid, ok := fl.ORef(); ok {
				p.TargetClass = append(p.TargetClass, sid)
			}
		case TargetNode:
			if sid, ok := fl.ORef(); ok {
				p.TargetNode = append(p.TargetNode, sid)
			}
		case AllowPred:
			if sid, ok := fl.ORef(); ok {
				p.Allows = append(p.Allows, materializeAllow(sid, n))
			}
		}
	}
	return p
}

func materializeAllow(id iri.SID, n *novelty.Novelty) AllowRule {
	a := AllowRule{}
	var rawEquals, rawContains []flake.Flake
	for _, fl := range n.BySubject(id) {
		if fl.IsIRIFlake() {
			continue
		}
		switch fl.P {
		case TargetRole:
			if sid, ok := fl.ORef(); ok {
				a.TargetRole = append(a.TargetRole, sid)
			}
		case EqualsPred:
			rawEquals = append(rawEquals, fl)
		case ContainsPred:
			rawContains = append(rawContains, fl)
		case PropertyPred:
			if sid, ok := fl.ORef(); ok {
				a.Properties = append(a.Properties, sid)
			}
		case ActionPred:
			sid, ok := fl.ORef()
			if !ok {
				continue
			}
			switch sid {
			case ViewAction:
				a.Actions = append(a.Actions, ActionView)
			case ModifyAction:
				a.Actions = append(a.Actions, ActionModify)
			}
		}
	}
	sortByListIndex(rawEquals)
	sortByListIndex(rawContains)
	a.Equals = pathFromFlakes(rawEquals)
	a.Contains = pathFromFlakes(rawContains)
	return a
}

func pathFromFlakes(fs []flake.Flake) Path {
	var p Path
	for _, fl := range fs {
		if sid, ok := fl.ORef(); ok {
			p = append(p, sid)
		}
	}
	return p
}

func sortByListIndex(fs []flake.Flake) {
	sort.SliceStable(fs, func(i, j int) bool {
		ii, iok := fs[i].M.ListIndex()
		jj, jok := fs[j].M.ListIndex()
		if !iok || !jok {
			return false
		}
		return ii < jj
	})
}
