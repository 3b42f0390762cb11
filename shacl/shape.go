package shacl

import (
	"sort"
	"sync"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// Shape is a materialized SHACL node shape or property shape: its
// targets (node shapes only), its resolved property path (property
// shapes only) and a map from constraint predicate to the raw flakes
// that carry that constraint's value(s).
type Shape struct {
	ID         iri.SID
	IsProperty bool

	TargetClass      []iri.SID
	TargetNode       []iri.SID
	TargetSubjectsOf []iri.SID
	TargetObjectsOf  []iri.SID

	PathSegs Path

	values map[iri.SID][]flake.Flake
}

// Materialize reads every flake on subject out of novelty and groups
// the SHACL-relevant ones into a Shape. It is a flat, single-level
// read: nested shape references (sh:node, sh:property, sh:not, ...)
// are resolved lazily by the validator via a Cache, which is what
// bounds recursive shape graphs with a depth guard instead of eagerly
// walking the whole graph up front.
func Materialize(subject iri.SID, n *novelty.Novelty) *Shape {
	s := &Shape{ID: subject, values: make(map[iri.SID][]flake.Flake)}
	var rawPath []flake.Flake
	for _, f := range n.BySubject(subject) {
		if f.IsIRIFlake() {
			continue
		}
		switch f.P {
		case vocab.RDFType:
			if sid, ok := f.ORef(); ok && sid == PropertyShape {
				s.IsProperty = true
			}
		case TargetClass:
			if sid, ok := f.ORef(); ok {
				s.TargetClass = append(s.TargetClass, sid)
			}
		case TargetNode:
			if sid, ok := f.ORef(); ok {
				s.TargetNode = append(s.TargetNode, sid)
			}
		case TargetSubjectsOf:
			if sid, ok := f.ORef(); ok {
				s.TargetSubjectsOf = append(s.TargetSubjectsOf, sid)
			}
		case TargetObjectsOf:
			if sid, ok := f.ORef(); ok {
				s.TargetObjectsOf = append(s.TargetObjectsOf, sid)
			}
		case Path:
			rawPath = append(rawPath, f)
		default:
			s.values[f.P] = append(s.values[f.P], f)
		}
	}
	sortByListIndex(rawPath)
	s.PathSegs = resolvePath(rawPath, n)
	// A shape with an sh:path is a property shape whether or not it is
	// explicitly typed sh:PropertyShape.
	if len(s.PathSegs) > 0 {
		s.IsProperty = true
	}
	return s
}

// DiscoverShapes returns every subject explicitly typed sh:NodeShape in
// the given novelty.
func DiscoverShapes(n *novelty.Novelty) []iri.SID {
	var ids []iri.SID
	for _, f := range n.All() {
		if f.P != vocab.RDFType {
			continue
		}
		if sid, ok := f.ORef(); ok && sid == NodeShape {
			ids = append(ids, f.S)
		}
	}
	return ids
}

// AffectsShapes reports whether f should invalidate the shape cache:
// any flake using a SHACL-namespace predicate changes the shape graph.
func AffectsShapes(f flake.Flake) bool { return f.P.Namespace == iri.NamespaceSHACL }

// Refs returns the SID objects of every flake on predicate p.
func (s *Shape) Refs(p iri.SID) []iri.SID {
	var out []iri.SID
	for _, f := range s.values[p] {
		if sid, ok := f.ORef(); ok {
			out = append(out, sid)
		}
	}
	return out
}

// Ref returns the single SID object of predicate p, if present.
func (s *Shape) Ref(p iri.SID) (iri.SID, bool) {
	refs := s.Refs(p)
	if len(refs) == 0 {
		return iri.SID{}, false
	}
	return refs[0], true
}

// Scalars returns the literal object values of every flake on predicate
// p, in list-index order when present.
func (s *Shape) Scalars(p iri.SID) []any {
	fs := append([]flake.Flake(nil), s.values[p]...)
	sortByListIndex(fs)
	out := make([]any, 0, len(fs))
	for _, f := range fs {
		if !f.IsRef() {
			out = append(out, f.O)
		}
	}
	return out
}

// Int returns predicate p's single value as an int, if present and
// numeric.
func (s *Shape) Int(p iri.SID) (int, bool) {
	for _, v := range s.Scalars(p) {
		switch vv := v.(type) {
		case int64:
			return int(vv), true
		case float64:
			return int(vv), true
		case int:
			return vv, true
		}
	}
	return 0, false
}

// Float returns predicate p's single value as a float64, if present and
// numeric.
func (s *Shape) Float(p iri.SID) (float64, bool) {
	for _, v := range s.Scalars(p) {
		switch vv := v.(type) {
		case int64:
			return float64(vv), true
		case float64:
			return vv, true
		case int:
			return float64(vv), true
		}
	}
	return 0, false
}

// Bool returns predicate p's single value as a bool, defaulting to
// false when absent.
func (s *Shape) Bool(p iri.SID) bool {
	for _, v := range s.Scalars(p) {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// String returns predicate p's single value as a string, if present.
func (s *Shape) String(p iri.SID) (string, bool) {
	for _, v := range s.Scalars(p) {
		if str, ok := v.(string); ok {
			return str, true
		}
	}
	return "", false
}

// Has reports whether the shape carries any value for predicate p.
func (s *Shape) Has(p iri.SID) bool { return len(s.values[p]) > 0 }

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

// Cache holds materialized shapes keyed by subject SID, invalidated in
// bulk whenever a SHACL-namespace predicate is asserted (shape
// materialization is cheap relative to validation, so a coarse
// invalidate-everything policy is simpler than tracking per-shape
// dependency sets).
type Cache struct {
	mu    sync.RWMutex
	byID  map[iri.SID]*Shape
	novel *novelty.Novelty
}

// NewCache returns a Cache that lazily materializes shapes from n.
func NewCache(n *novelty.Novelty) *Cache {
	return &Cache{byID: make(map[iri.SID]*Shape), novel: n}
}

// Get returns the materialized shape for id, materializing and caching
// it on first access.
func (c *Cache) Get(id iri.SID) *Shape {
	c.mu.RLock()
	s, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.byID[id]; ok {
		return s
	}
	s = Materialize(id, c.novel)
	c.byID[id] = s
	return s
}

// Invalidate drops every cached shape, forcing the next Get to
// re-materialize from novelty.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[iri.SID]*Shape)
}
