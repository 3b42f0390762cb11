// Package flake implements the atomic fact record -- the (s, p, o, dt, t,
// op, m) tuple -- along with its total orderings
// and deterministic size accounting.
package flake

import (
	"fmt"

	"github.com/fluree/fluree-core/iri"
)

// Meta carries optional per-flake metadata: `i` preserves @list index
// order, `lang` carries a language tag.
type Meta map[string]any

// ListIndex returns the `i` metadata entry, if present.
func (m Meta) ListIndex() (int, bool) {
	if m == nil {
		return 0, false
	}
	v, ok := m["i"]
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// Lang returns the `lang` metadata entry, if present.
func (m Meta) Lang() (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m["lang"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Flake is the atomic fact: subject, predicate, object, datatype,
// transaction epoch, assertion/retraction marker, and optional metadata.
type Flake struct {
	S  iri.SID
	P  iri.SID
	O  any
	Dt iri.SID
	T  int64
	Op bool
	M  Meta
}

// IsRef reports whether the object is a subject reference rather than a
// scalar literal (datatype == the anyURI sentinel).
func (f Flake) IsRef() bool { return f.Dt == iri.AnyURI }

// ORef returns the object as a SID when IsRef is true.
func (f Flake) ORef() (iri.SID, bool) {
	if !f.IsRef() {
		return iri.SID{}, false
	}
	sid, ok := f.O.(iri.SID)
	return sid, ok
}

// NewIRIFlake builds the mandatory IRI flake that accompanies subject
// creation: (s, anyURI, "<iri>", xsd:string, t,
// true, nil). Note the IRI flake's own datatype is xsd:string -- it is
// the *predicate* anyURI position, not a reference flake, per the
// reserved `anyURI` predicate SID used by the reification loader to
// recognise subject-naming flakes.
func NewIRIFlake(s iri.SID, iriStr string, t int64) Flake {
	return Flake{
		S:  s,
		P:  AnyURIPredicate,
		O:  iriStr,
		Dt: iri.SID{Namespace: iri.NamespaceXSD, Name: "string"},
		T:  t,
		Op: true,
	}
}

// AnyURIPredicate is the reserved predicate SID used for a subject's own
// IRI flake (distinct from iri.AnyURI, which marks a *datatype*).
var AnyURIPredicate = iri.SID{Namespace: iri.NamespaceFlureeDB, Name: "iri"}

// IsIRIFlake reports whether f is a subject's own IRI flake.
func (f Flake) IsIRIFlake() bool { return f.P == AnyURIPredicate }

// Key identifies a flake for the (s,p,o,t,op) uniqueness invariant.
type Key struct {
	S, P iri.SID
	O    any
	T    int64
	Op   bool
}

// Key returns the uniqueness key for the flake.
func (f Flake) Key() Key {
	return Key{S: f.S, P: f.P, O: normalizeObject(f.O), T: f.T, Op: f.Op}
}

// normalizeObject makes object values comparable map keys: SIDs and
// primitive scalars already are; everything else falls back to its
// %v representation so the key remains hashable.
func normalizeObject(o any) any {
	switch o.(type) {
	case iri.SID, string, bool, int64, float64:
		return o
	default:
		return fmt.Sprintf("%v", o)
	}
}

// Retracts reports whether retraction g cancels assertion f: same
// (s,p,o,dt), g.Op == false, f.Op == true, and f.T is strictly earlier.
// t grows more negative moving forward in time, so "earlier" means
// f.T > g.T.
func (f Flake) Retracts(g Flake) bool {
	return f.Op && !g.Op && f.S == g.S && f.P == g.P &&
		normalizeObject(f.O) == normalizeObject(g.O) && f.Dt == g.Dt && f.T > g.T
}
