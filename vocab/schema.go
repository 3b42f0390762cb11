// Package vocab builds and maintains the vocabulary/schema: the
// class/property/subclass graph and cached datatype bindings described
// from newly committed triples. A Schema is immutable per transaction epoch --
// Hydrate always returns a new value rather than mutating its receiver,
// favoring defensive copies before
// returning data out of a locked section (core/ledger.go GetUTXO,
// AllNodeLocations).
package vocab

import (
	"github.com/sirupsen/logrus"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

// Property describes one predicate SID's place in the vocabulary graph.
type Property struct {
	ID          iri.SID
	IRI         string
	SubClassOf  []iri.SID // only meaningful when ID names a class
	ParentProps []iri.SID // rdfs:subPropertyOf / owl:equivalentProperty targets
	ChildProps  []iri.SID // inverse of ParentProps
}

func clonePID(p Property) Property {
	cp := p
	cp.SubClassOf = append([]iri.SID(nil), p.SubClassOf...)
	cp.ParentProps = append([]iri.SID(nil), p.ParentProps...)
	cp.ChildProps = append([]iri.SID(nil), p.ChildProps...)
	return cp
}

// Schema is the immutable-per-t vocabulary snapshot.
type Schema struct {
	Props map[iri.SID]Property
	// closure maps a class SID to the full transitive set of its
	// subclasses (descending), computed by SubclassClosure.
	closure map[iri.SID]map[iri.SID]struct{}
}

// Empty returns a Schema with no known vocabulary.
func Empty() *Schema {
	return &Schema{Props: make(map[iri.SID]Property), closure: make(map[iri.SID]map[iri.SID]struct{})}
}

func (s *Schema) clone() *Schema {
	out := &Schema{Props: make(map[iri.SID]Property, len(s.Props))}
	for k, v := range s.Props {
		out.Props[k] = clonePID(v)
	}
	return out
}

// Reserved vocabulary predicates that mark a flake as schema-affecting.
var (
	RDFType           = iri.SID{Namespace: iri.NamespaceRDF, Name: "type"}
	RDFSSubClassOf    = iri.SID{Namespace: iri.NamespaceRDFS, Name: "subClassOf"}
	RDFSSubPropertyOf = iri.SID{Namespace: iri.NamespaceRDFS, Name: "subPropertyOf"}
	OWLEquivProperty  = iri.SID{Namespace: iri.NamespaceOWL, Name: "equivalentProperty"}
	RDFSClass         = iri.SID{Namespace: iri.NamespaceRDFS, Name: "Class"}
	RDFProperty       = iri.SID{Namespace: iri.NamespaceRDF, Name: "Property"}
)

// IsSHACLPredicate reports whether p belongs to the SHACL namespace,
// making any flake using it a vocabulary-affecting structural flake.
func IsSHACLPredicate(p iri.SID) bool { return p.Namespace == iri.NamespaceSHACL }

// IsVocabPredicate reports whether p is one of the fixed predicates that
// always trigger a schema rebuild when asserted.
func IsVocabPredicate(p iri.SID) bool {
	switch p {
	case RDFType, RDFSSubClassOf, RDFSSubPropertyOf, OWLEquivProperty:
		return true
	}
	return IsSHACLPredicate(p)
}

// AffectsVocab reports whether adding f should trigger a schema rebuild:
// its subject is already a known predicate/class SID, or its predicate
// is one of the fixed vocabulary predicates.
func (s *Schema) AffectsVocab(f flake.Flake) bool {
	if IsVocabPredicate(f.P) {
		return true
	}
	_, known := s.Props[f.S]
	return known
}

// Hydrate applies newly added flakes to produce a new Schema, extracting
// only those whose subject is already a known predicate SID or whose
// predicate belongs to the reference-property set. It
// never mutates s.
func Hydrate(s *Schema, codec *iri.Codec, newFlakes []flake.Flake, log *logrus.Logger) *Schema {
	if log == nil {
		log = logrus.StandardLogger()
	}
	out := s.clone()
	for _, f := range newFlakes {
		if !out.affects(f) {
			continue
		}
		applyFlake(out, codec, f, log)
	}
	out.closure = SubclassClosure(out.Props)
	return out
}

func (s *Schema) affects(f flake.Flake) bool {
	if IsVocabPredicate(f.P) {
		return true
	}
	_, known := s.Props[f.S]
	return known
}

func ensureProp(s *Schema, codec *iri.Codec, id iri.SID) Property {
	if p, ok := s.Props[id]; ok {
		return p
	}
	propIRI, _ := codec.Decode(id)
	p := Property{ID: id, IRI: propIRI}
	s.Props[id] = p
	return p
}

func applyFlake(s *Schema, codec *iri.Codec, f flake.Flake, log *logrus.Logger) {
	switch f.P {
	case RDFType:
		obj, ok := f.ORef()
		if !ok {
			log.WithField("flake", f).Warn("vocab: rdf:type object is not a reference, skipping")
			return
		}
		if obj == RDFSClass || obj == RDFProperty || IsSHACLPredicate(obj) {
			ensureProp(s, codec, f.S)
		}
	case RDFSSubClassOf:
		child, ok := f.ORef()
		parent := f.S
		if !ok {
			log.WithField("flake", f).Warn("vocab: subClassOf object is not a reference, skipping")
			return
		}
		updateRelatedClass(s, codec, parent, child)
	case RDFSSubPropertyOf:
		obj, ok := f.ORef()
		if !ok {
			log.WithField("flake", f).Warn("vocab: subPropertyOf object is not a reference, skipping")
			return
		}
		updateRelatedProperty(s, codec, f.S, obj, false)
	case OWLEquivProperty:
		obj, ok := f.ORef()
		if !ok {
			log.WithField("flake", f).Warn("vocab: equivalentProperty object is not a reference, skipping")
			return
		}
		updateRelatedProperty(s, codec, f.S, obj, true)
	default:
		if IsSHACLPredicate(f.P) {
			ensureProp(s, codec, f.S)
		}
	}
}

// updateRelatedClass records that child is a direct subclass of parent;
// note "subClassOf" points from child -> parent in the object position,
// so the predicate's subject is the child and the object is the parent.
func updateRelatedClass(s *Schema, codec *iri.Codec, child, parent iri.SID) {
	cp := ensureProp(s, codec, child)
	cp.SubClassOf = appendUnique(cp.SubClassOf, parent)
	s.Props[child] = cp
	ensureProp(s, codec, parent)
}

// updateRelatedProperty maintains the property hierarchy: for
// subPropertyOf, child gets parent added to parentProps and parent gets
// child added to childProps. Only these direct links are recorded; no
// transitive closure is computed for properties as SubclassClosure
// does for classes. For equivalentProperty the relationship is applied
// bidirectionally, treating equivalence as symmetric in favour of
// walking both directions.
func updateRelatedProperty(s *Schema, codec *iri.Codec, child, parent iri.SID, equivalent bool) {
	cp := ensureProp(s, codec, child)
	cp.ParentProps = appendUnique(cp.ParentProps, parent)
	s.Props[child] = cp

	pp := ensureProp(s, codec, parent)
	pp.ChildProps = appendUnique(pp.ChildProps, child)
	s.Props[parent] = pp

	if equivalent {
		// bidirectional: parent also gains child as a parent prop and
		// child gains parent as a child prop.
		pp2 := s.Props[parent]
		pp2.ParentProps = appendUnique(pp2.ParentProps, child)
		s.Props[parent] = pp2

		cp2 := s.Props[child]
		cp2.ChildProps = appendUnique(cp2.ChildProps, parent)
		s.Props[child] = cp2
	}
}

func appendUnique(xs []iri.SID, x iri.SID) []iri.SID {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}

// SubclassClosure computes, for every class SID, the least set
// containing it closed under the rdfs:subClassOf inverse relation --
// i.e. the full transitive set of descendants.
func SubclassClosure(props map[iri.SID]Property) map[iri.SID]map[iri.SID]struct{} {
	children := make(map[iri.SID][]iri.SID)
	for id, p := range props {
		for _, parent := range p.SubClassOf {
			children[parent] = append(children[parent], id)
		}
	}
	closure := make(map[iri.SID]map[iri.SID]struct{}, len(props))
	var walk func(class iri.SID) map[iri.SID]struct{}
	visiting := make(map[iri.SID]bool)
	walk = func(class iri.SID) map[iri.SID]struct{} {
		if c, ok := closure[class]; ok {
			return c
		}
		set := map[iri.SID]struct{}{class: {}}
		if visiting[class] {
			return set // break cycles
		}
		visiting[class] = true
		for _, child := range children[class] {
			for d := range walk(child) {
				set[d] = struct{}{}
			}
		}
		visiting[class] = false
		closure[class] = set
		return set
	}
	for id := range props {
		walk(id)
	}
	return closure
}

// Subclasses returns the transitive set of subclasses of class,
// including class itself.
func (s *Schema) Subclasses(class iri.SID) map[iri.SID]struct{} {
	if s.closure == nil {
		return map[iri.SID]struct{}{class: {}}
	}
	if set, ok := s.closure[class]; ok {
		return set
	}
	return map[iri.SID]struct{}{class: {}}
}
