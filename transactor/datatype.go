package transactor

import (
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/shacl"
	"github.com/fluree/fluree-core/vocab"
)

// coerceDatatype returns the datatype a literal value for (s, p) should
// carry: the SHACL-declared sh:datatype on any cached property shape
// whose sh:path is p and whose owning node shape targets one of
// classes, if one is found, else the datatype inferred from the
// value's own JSON shape.
func coerceDatatype(n *novelty.Novelty, s, p iri.SID, classes []iri.SID, v any, schema *vocab.Schema, shapes *shacl.Cache) iri.SID {
	if shapes == nil {
		return inferDatatype(v)
	}
	if dt, ok := declaredDatatype(n, p, classes, schema, shapes); ok {
		return dt
	}
	return inferDatatype(v)
}

// declaredDatatype scans every discovered node shape for one whose
// sh:targetClass (including subclasses) covers classes, then checks its
// sh:property shapes for a single-segment direct path matching p that
// carries sh:datatype. The first match wins.
func declaredDatatype(n *novelty.Novelty, p iri.SID, classes []iri.SID, schema *vocab.Schema, shapes *shacl.Cache) (iri.SID, bool) {
	wanted := make(map[iri.SID]bool, len(classes))
	for _, c := range classes {
		wanted[c] = true
	}
	for _, shapeID := range shacl.DiscoverShapes(n) {
		nodeShape := shapes.Get(shapeID)
		if !targetsAny(nodeShape.TargetClass, wanted, schema) {
			continue
		}
		for _, propShapeID := range nodeShape.Refs(shacl.PropertyConstraint) {
			propShape := shapes.Get(propShapeID)
			if !isDirectPathOn(propShape.PathSegs, p) {
				continue
			}
			if dt, ok := propShape.Ref(shacl.Datatype); ok {
				return dt, true
			}
		}
	}
	return iri.SID{}, false
}

func targetsAny(targetClasses []iri.SID, wanted map[iri.SID]bool, schema *vocab.Schema) bool {
	for _, tc := range targetClasses {
		if wanted[tc] {
			return true
		}
		for sub := range schema.Subclasses(tc) {
			if wanted[sub] {
				return true
			}
		}
	}
	return false
}

func isDirectPathOn(path shacl.Path, p iri.SID) bool {
	return len(path) == 1 && !path[0].Inverse && len(path[0].Alternatives) == 0 && path[0].Predicate == p
}
