package novelty

import (
	"testing"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

func sid(ns int, name string) iri.SID { return iri.SID{Namespace: ns, Name: name} }

func TestAddRejectsDuplicateKey(t *testing.T) {
	n := New()
	f := flake.Flake{S: sid(101, "a"), P: sid(101, "name"), O: "Alice", Dt: sid(iri.NamespaceXSD, "string"), T: -1, Op: true}
	if !n.Add(f) {
		t.Fatalf("first add should succeed")
	}
	if n.Add(f) {
		t.Fatalf("duplicate (s,p,o,t,op) must be rejected")
	}
}

func TestSizeMatchesSumOfFlakes(t *testing.T) {
	n := New()
	f1 := flake.Flake{S: sid(101, "a"), P: sid(101, "name"), O: "Alice", Dt: sid(iri.NamespaceXSD, "string"), T: -1, Op: true}
	f2 := flake.Flake{S: sid(101, "a"), P: sid(101, "age"), O: int64(30), Dt: sid(iri.NamespaceXSD, "integer"), T: -1, Op: true}
	n.Add(f1)
	n.Add(f2)
	if n.Size() != f1.Size()+f2.Size() {
		t.Fatalf("novelty size must equal sum of flake sizes")
	}
}

func TestOPSTOnlyHoldsReferenceFlakes(t *testing.T) {
	n := New()
	lit := flake.Flake{S: sid(101, "a"), P: sid(101, "name"), O: "Alice", Dt: sid(iri.NamespaceXSD, "string"), T: -1, Op: true}
	ref := flake.Flake{S: sid(101, "a"), P: sid(101, "knows"), O: sid(101, "b"), Dt: iri.AnyURI, T: -1, Op: true}
	n.Add(lit)
	n.Add(ref)
	opst := n.OPST()
	if len(opst) != 1 || opst[0].Key() != ref.Key() {
		t.Fatalf("expected only the reference flake in OPST, got %+v", opst)
	}
}

func TestCancelRemovesFromAllOrders(t *testing.T) {
	n := New()
	f := flake.Flake{S: sid(101, "a"), P: sid(101, "knows"), O: sid(101, "b"), Dt: iri.AnyURI, T: -1, Op: true}
	n.Add(f)
	if !n.Cancel(f) {
		t.Fatalf("cancel should find the previously staged flake")
	}
	if n.Has(f.Key()) {
		t.Fatalf("flake should be gone after cancel")
	}
	if len(n.SPOT()) != 0 || len(n.OPST()) != 0 {
		t.Fatalf("cancel must remove from every order")
	}
}

func TestBySubjectPredicate(t *testing.T) {
	n := New()
	a := sid(101, "a")
	name := sid(101, "name")
	n.Add(flake.Flake{S: a, P: name, O: "old", Dt: sid(iri.NamespaceXSD, "string"), T: -1, Op: true})
	n.Add(flake.Flake{S: a, P: sid(101, "age"), O: int64(1), Dt: sid(iri.NamespaceXSD, "integer"), T: -1, Op: true})
	got := n.BySubjectPredicate(a, name)
	if len(got) != 1 || got[0].O != "old" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestByObjectPredicateFindsInverseReferences(t *testing.T) {
	n := New()
	a := sid(101, "a")
	b := sid(101, "b")
	c := sid(101, "c")
	knows := sid(101, "knows")
	n.Add(flake.Flake{S: a, P: knows, O: b, Dt: iri.AnyURI, T: -1, Op: true})
	n.Add(flake.Flake{S: c, P: knows, O: b, Dt: iri.AnyURI, T: -1, Op: true})

	got := n.ByObjectPredicate(b, knows)
	if len(got) != 2 {
		t.Fatalf("expected 2 inverse references to %v, got %d", b, len(got))
	}
	for _, f := range got {
		if f.S != a && f.S != c {
			t.Fatalf("unexpected subject in inverse lookup: %v", f.S)
		}
	}
	if len(n.ByObjectPredicate(b, sid(101, "other"))) != 0 {
		t.Fatalf("expected no matches for unrelated predicate")
	}
}
