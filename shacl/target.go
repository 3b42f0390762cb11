package shacl

import (
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// FocusNodes computes the set of focus nodes a shape applies to:
// targetClass (including subclasses), targetNode, targetSubjectsOf,
// targetObjectsOf, plus implicit class targeting for a shape that is
// itself used as an rdf:type value somewhere in the graph.
func FocusNodes(shape *Shape, n *novelty.Novelty, schema *vocab.Schema) []iri.SID {
	seen := make(map[iri.SID]struct{})
	var out []iri.SID
	add := func(s iri.SID) {
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	classes := make(map[iri.SID]struct{}, len(shape.TargetClass))
	for _, c := range shape.TargetClass {
		classes[c] = struct{}{}
		if schema != nil {
			for sub := range schema.Subclasses(c) {
				classes[sub] = struct{}{}
			}
		}
	}
	// implicit targeting: the shape itself behaves as a class when
	// something is typed with it directly.
	classes[shape.ID] = struct{}{}

	for _, f := range n.All() {
		if f.P != vocab.RDFType {
			continue
		}
		sid, ok := f.ORef()
		if !ok {
			continue
		}
		if _, isClass := classes[sid]; isClass {
			add(f.S)
		}
	}
	for _, node := range shape.TargetNode {
		add(node)
	}
	for _, pred := range shape.TargetSubjectsOf {
		for _, f := range n.POST() {
			if f.P == pred {
				add(f.S)
			}
		}
	}
	for _, pred := range shape.TargetObjectsOf {
		for _, f := range n.POST() {
			if f.P != pred {
				continue
			}
			if sid, ok := f.ORef(); ok {
				add(sid)
			}
		}
	}
	return out
}
