package vocab

import (
	"testing"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

func TestSubclassClosure(t *testing.T) {
	codec := iri.NewCodec()
	animal := codec.Encode("http://ex/#Animal")
	mammal := codec.Encode("http://ex/#Mammal")
	dog := codec.Encode("http://ex/#Dog")

	flakes := []flake.Flake{
		{S: mammal, P: RDFSSubClassOf, O: animal, Dt: iri.AnyURI, T: -1, Op: true},
		{S: dog, P: RDFSSubClassOf, O: mammal, Dt: iri.AnyURI, T: -1, Op: true},
	}
	s := Hydrate(Empty(), codec, flakes, nil)
	subs := s.Subclasses(animal)
	for _, want := range []iri.SID{animal, mammal, dog} {
		if _, ok := subs[want]; !ok {
			t.Fatalf("expected %v in subclass closure of Animal, got %v", want, subs)
		}
	}
}

func TestEquivalentPropertyBidirectional(t *testing.T) {
	codec := iri.NewCodec()
	a := codec.Encode("http://ex/#a")
	b := codec.Encode("http://ex/#b")
	flakes := []flake.Flake{
		{S: a, P: OWLEquivProperty, O: b, Dt: iri.AnyURI, T: -1, Op: true},
	}
	s := Hydrate(Empty(), codec, flakes, nil)
	pa := s.Props[a]
	pb := s.Props[b]
	found := false
	for _, x := range pa.ChildProps {
		if x == b {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a.ChildProps to include b for equivalentProperty, got %+v", pa)
	}
	found = false
	for _, x := range pb.ChildProps {
		if x == a {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected b.ChildProps to include a (bidirectional), got %+v", pb)
	}
}

func TestHydrateSkipsUnknownReferenceObject(t *testing.T) {
	codec := iri.NewCodec()
	a := codec.Encode("http://ex/#a")
	flakes := []flake.Flake{
		{S: a, P: RDFSSubClassOf, O: "not-a-sid", Dt: iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}, T: -1, Op: true},
	}
	// must not panic; unresolvable reference is logged and skipped.
	_ = Hydrate(Empty(), codec, flakes, nil)
}
