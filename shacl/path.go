package shacl

import (
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
)

// PathSegment is one step of a property path: a direct predicate, an
// inverse predicate, or a set of alternative predicates (sh:path values
// given as a JSON-LD array are sequence paths -- one segment per array
// entry, applied in order).
type PathSegment struct {
	Predicate    iri.SID
	Inverse      bool
	Alternatives []iri.SID
}

// Path is an ordered sequence of path segments.
type Path []PathSegment

// ValueNode is one value reached by resolving a path: either a literal
// (Value holds the Go scalar, Datatype its xsd type, Lang its optional
// language tag) or a reference (Value holds an iri.SID).
type ValueNode struct {
	Value    any
	Datatype iri.SID
	Lang     string
	IsRef    bool
}

// resolvePath converts the raw sh:path flakes on a shape (already
// sorted into list order) into a Path, expanding any path-component
// subject that itself carries sh:inversePath or sh:alternativePath.
func resolvePath(rawPath []flake.Flake, n *novelty.Novelty) Path {
	var segs Path
	for _, f := range rawPath {
		sid, ok := f.ORef()
		if !ok {
			continue
		}
		segs = append(segs, resolvePathSegment(sid, n))
	}
	return segs
}

func resolvePathSegment(sid iri.SID, n *novelty.Novelty) PathSegment {
	if inv := n.BySubjectPredicate(sid, InversePath); len(inv) == 1 {
		if target, ok := inv[0].ORef(); ok {
			return PathSegment{Predicate: target, Inverse: true}
		}
	}
	if alts := n.BySubjectPredicate(sid, AlternativePath); len(alts) > 0 {
		sortByListIndex(alts)
		var segs []iri.SID
		for _, f := range alts {
			if target, ok := f.ORef(); ok {
				segs = append(segs, target)
			}
		}
		if len(segs) > 0 {
			return PathSegment{Alternatives: segs}
		}
	}
	return PathSegment{Predicate: sid}
}

func (seg PathSegment) predicates() []iri.SID {
	if len(seg.Alternatives) > 0 {
		return seg.Alternatives
	}
	return []iri.SID{seg.Predicate}
}

// ResolveValueNodes walks path starting at focus, returning the value
// nodes reached at the final segment. Intermediate segments must
// resolve to reference flakes to continue the walk; a literal reached
// before the final segment is a dead end and contributes nothing.
func ResolveValueNodes(path Path, focus iri.SID, n *novelty.Novelty) []ValueNode {
	if len(path) == 0 {
		return nil
	}
	current := []iri.SID{focus}
	var final []ValueNode
	for i, seg := range path {
		last := i == len(path)-1
		var next []iri.SID
		for _, node := range current {
			for _, p := range seg.predicates() {
				var fs []flake.Flake
				if seg.Inverse {
					fs = n.ByObjectPredicate(node, p)
				} else {
					fs = n.BySubjectPredicate(node, p)
				}
				for _, f := range fs {
					if last {
						final = append(final, valueNodeFromFlake(f, seg.Inverse))
						continue
					}
					if sid, ok := walkTargetSID(f, seg.Inverse); ok {
						next = append(next, sid)
					}
				}
			}
		}
		current = next
	}
	return final
}

// valueNodeFromFlake converts a traversed flake into the ValueNode it
// contributes. Walking an inverse segment to its last hop yields the
// *subject* of the matched flake as the value (the thing doing the
// pointing), not the object (the fixed pivot we searched from).
func valueNodeFromFlake(f flake.Flake, inverse bool) ValueNode {
	if inverse {
		return ValueNode{Value: f.S, IsRef: true}
	}
	if f.IsRef() {
		sid, _ := f.ORef()
		return ValueNode{Value: sid, IsRef: true}
	}
	lang, _ := f.M.Lang()
	return ValueNode{Value: f.O, Datatype: f.Dt, Lang: lang}
}

// walkTargetSID returns the SID an intermediate path hop should
// continue from: the flake's subject when traversing an inverse
// segment, its object (if a reference) otherwise.
func walkTargetSID(f flake.Flake, inverse bool) (iri.SID, bool) {
	if inverse {
		return f.S, true
	}
	return f.ORef()
}
