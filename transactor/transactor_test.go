package transactor

import (
	"testing"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/shacl"
	"github.com/fluree/fluree-core/vocab"
)

func xsd(name string) iri.SID { return iri.SID{Namespace: iri.NamespaceXSD, Name: name} }

func flakeKey(s, p iri.SID, o any, dt iri.SID, t int64, op bool) flake.Key {
	return flake.Flake{S: s, P: p, O: o, Dt: dt, T: t, Op: op}.Key()
}

func flakeLit(s, p iri.SID, o any, dt iri.SID, t int64, op bool) flake.Flake {
	return flake.Flake{S: s, P: p, O: o, Dt: dt, T: t, Op: op}
}

func flakeRef(s, p, o iri.SID, t int64) flake.Flake {
	return flake.Flake{S: s, P: p, O: o, Dt: iri.AnyURI, T: t, Op: true}
}

func TestStageInsertSynthesizesNewNode(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()

	doc := map[string]any{
		"@id":                     "http://ex/#alice",
		"@type":                   "http://ex/#Person",
		"http://ex/#name":         "Alice",
		"http://ex/#age":          float64(30),
		"http://ex/#activeMember": true,
	}

	res, err := Stage(n, doc, Options{Codec: codec})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if res.T != -1 {
		t.Fatalf("expected first stage to get t=-1, got %d", res.T)
	}

	alice := codec.Encode("http://ex/#alice")
	name := codec.Encode("http://ex/#name")
	age := codec.Encode("http://ex/#age")
	active := codec.Encode("http://ex/#activeMember")
	person := codec.Encode("http://ex/#Person")

	if !n.Has(flakeKey(alice, name, "Alice", xsd("string"), -1, true)) {
		t.Fatalf("expected name flake, got %+v", n.All())
	}
	if !n.Has(flakeKey(alice, age, int64(30), xsd("integer"), -1, true)) {
		t.Fatalf("expected age flake coerced to integer, got %+v", n.All())
	}
	if !n.Has(flakeKey(alice, active, true, xsd("boolean"), -1, true)) {
		t.Fatalf("expected boolean flake, got %+v", n.All())
	}
	if !n.Has(flakeKey(alice, vocab.RDFType, person, iri.AnyURI, -1, true)) {
		t.Fatalf("expected rdf:type flake, got %+v", n.All())
	}
}

func TestStageInsertLinksNestedNodeByReference(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()

	doc := map[string]any{
		"@id":             "http://ex/#alice",
		"http://ex/#home": map[string]any{"@id": "http://ex/#wonderland", "http://ex/#name": "Wonderland"},
	}
	if _, err := Stage(n, doc, Options{Codec: codec}); err != nil {
		t.Fatalf("stage: %v", err)
	}

	alice := codec.Encode("http://ex/#alice")
	home := codec.Encode("http://ex/#home")
	wonderland := codec.Encode("http://ex/#wonderland")
	name := codec.Encode("http://ex/#name")

	if !n.Has(flakeKey(alice, home, wonderland, iri.AnyURI, -1, true)) {
		t.Fatalf("expected reference flake to nested node, got %+v", n.All())
	}
	if !n.Has(flakeKey(wonderland, name, "Wonderland", xsd("string"), -1, true)) {
		t.Fatalf("expected nested node's own property to be staged, got %+v", n.All())
	}
}

func TestStagePreservesListIndexOrder(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()

	doc := map[string]any{
		"@id": "http://ex/#alice",
		"http://ex/#favorites": map[string]any{
			"@list": []any{"b", "a"},
		},
	}
	res, err := Stage(n, doc, Options{Codec: codec})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	favorites := codec.Encode("http://ex/#favorites")
	var saw0, saw1 bool
	for _, f := range res.Flakes {
		if f.P != favorites {
			continue
		}
		idx, ok := f.M.ListIndex()
		if !ok {
			t.Fatalf("expected list index metadata on %+v", f)
		}
		if idx == 0 && f.O == "b" {
			saw0 = true
		}
		if idx == 1 && f.O == "a" {
			saw1 = true
		}
	}
	if !saw0 || !saw1 {
		t.Fatalf("expected list order preserved: %+v", res.Flakes)
	}
}

func TestStageRetractsPriorValueOfReassertedPredicate(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()
	alloc := iri.NewAllocator(codec, nil)
	alice := alloc.Allocate("http://ex/#alice")
	name := alloc.Allocate("http://ex/#name")
	n.Add(flakeLit(alice, name, "Alice", xsd("string"), -1, true))

	doc := map[string]any{"@id": "http://ex/#alice", "http://ex/#name": "Alicia"}
	res, err := Stage(n, doc, Options{Codec: codec, CommittedT: -1})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if res.T != -2 {
		t.Fatalf("expected second stage to get t=-2, got %d", res.T)
	}

	if !n.Has(flakeKey(alice, name, "Alice", xsd("string"), -2, false)) {
		t.Fatalf("expected a real retraction flake (stamped with the retracting t) for the committed prior value, got %+v", n.All())
	}
	if !n.Has(flakeKey(alice, name, "Alicia", xsd("string"), -2, true)) {
		t.Fatalf("expected the new value asserted, got %+v", n.All())
	}
}

func TestStageUpdateInPlaceDoesNotReemitIRIOrTypeFlakes(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()
	alloc := iri.NewAllocator(codec, nil)
	alice := alloc.Allocate("http://ex/#alice")
	person := alloc.Allocate("http://ex/#Person")
	name := alloc.Allocate("http://ex/#name")
	n.Add(flake.NewIRIFlake(alice, "http://ex/#alice", -1))
	n.Add(flakeRef(alice, vocab.RDFType, person, -1))
	n.Add(flakeLit(alice, name, "Alice", xsd("string"), -1, true))

	doc := map[string]any{"@id": "http://ex/#alice", "http://ex/#name": "Alicia"}
	res, err := Stage(n, doc, Options{Codec: codec, CommittedT: -1})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	var asserted, retracted int
	for _, f := range res.Flakes {
		if f.IsIRIFlake() || (f.P == vocab.RDFType) {
			t.Fatalf("expected no re-emitted IRI/type flake for an already-known subject, got %+v", f)
		}
		if f.Op {
			asserted++
		} else {
			retracted++
		}
	}
	if asserted != 1 || retracted != 1 {
		t.Fatalf("expected exactly one assertion and one retraction, got %d assertions and %d retractions: %+v", asserted, retracted, res.Flakes)
	}
}

func TestStageCancelsUncommittedAssertionOnRestage(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()

	// Stage once (committedT=0: nothing committed yet), then stage again
	// with the same committedT: the second stage's retraction of the
	// first stage's still-uncommitted assertion should cancel it outright.
	first := map[string]any{"@id": "http://ex/#alice", "http://ex/#name": "Alice"}
	if _, err := Stage(n, first, Options{Codec: codec}); err != nil {
		t.Fatalf("first stage: %v", err)
	}
	second := map[string]any{"@id": "http://ex/#alice", "http://ex/#name": "Alicia"}
	if _, err := Stage(n, second, Options{Codec: codec}); err != nil {
		t.Fatalf("second stage: %v", err)
	}

	alice := codec.Encode("http://ex/#alice")
	name := codec.Encode("http://ex/#name")
	if n.Has(flakeKey(alice, name, "Alice", xsd("string"), -1, true)) {
		t.Fatalf("expected the first stage's uncommitted assertion to be cancelled, not retracted")
	}
	if n.Has(flakeKey(alice, name, "Alice", xsd("string"), -1, false)) {
		t.Fatalf("expected no flipped retraction flake, got one")
	}
	if !n.Has(flakeKey(alice, name, "Alicia", xsd("string"), -2, true)) {
		t.Fatalf("expected the new value asserted at t=-2")
	}
}

func TestStageRejectsNodeWithNoProperties(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()
	doc := map[string]any{"@id": "http://ex/#alice"}
	if _, err := Stage(n, doc, Options{Codec: codec}); err == nil {
		t.Fatalf("expected an error for a node with no properties")
	}
}

func TestStageCoercesDatatypeFromSHACLPropertyShape(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()
	alloc := iri.NewAllocator(codec, nil)

	personClass := alloc.Allocate("http://ex/#Person")
	ageProp := alloc.Allocate("http://ex/#age")
	shapeID := alloc.Allocate("http://ex/#PersonShape")
	propShapeID := alloc.AllocateBlank(true)

	n.Add(flakeRef(shapeID, vocab.RDFType, shacl.NodeShape, -1))
	n.Add(flakeRef(shapeID, shacl.TargetClass, personClass, -1))
	n.Add(flakeRef(shapeID, shacl.PropertyConstraint, propShapeID, -1))
	n.Add(flakeRef(propShapeID, shacl.Path, ageProp, -1))
	n.Add(flakeRef(propShapeID, shacl.Datatype, xsd("decimal"), -1))

	shapes := shacl.NewCache(n)
	doc := map[string]any{
		"@id":             "http://ex/#bob",
		"@type":           "http://ex/#Person",
		"http://ex/#age":  float64(42),
	}
	if _, err := Stage(n, doc, Options{Codec: codec, Schema: vocab.Empty(), Shapes: shapes}); err != nil {
		t.Fatalf("stage: %v", err)
	}

	bob := codec.Encode("http://ex/#bob")
	if !n.Has(flakeKey(bob, ageProp, float64(42), xsd("decimal"), -1, true)) {
		t.Fatalf("expected age coerced to the shape's declared xsd:decimal, got %+v", n.All())
	}
}

type staticSolver struct {
	solutions []Binding
}

func (s staticSolver) Solve(where any) ([]Binding, error) { return s.solutions, nil }

func TestStageModifyBindsDeleteAndInsertTemplates(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()
	alloc := iri.NewAllocator(codec, nil)
	alice := alloc.Allocate("http://ex/#alice")
	age := alloc.Allocate("http://ex/#age")
	n.Add(flakeLit(alice, age, int64(30), xsd("integer"), -1, true))

	solver := staticSolver{solutions: []Binding{{"person": "http://ex/#alice", "oldAge": int64(30)}}}
	doc := map[string]any{
		"@delete": map[string]any{"@id": "?person", "http://ex/#age": "?oldAge"},
		"@insert": map[string]any{"@id": "?person", "http://ex/#age": float64(31)},
		"@where":  []any{},
	}
	res, err := Stage(n, doc, Options{Codec: codec, CommittedT: -1, Solver: solver})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if res.T != -2 {
		t.Fatalf("expected modify to run at t=-2, got %d", res.T)
	}

	if !n.Has(flakeKey(alice, age, int64(30), xsd("integer"), -2, false)) {
		t.Fatalf("expected bound @delete retraction stamped with the modify's t, got %+v", n.All())
	}
	if !n.Has(flakeKey(alice, age, int64(31), xsd("integer"), -2, true)) {
		t.Fatalf("expected bound @insert assertion, got %+v", n.All())
	}
}

func TestStageModifyRequiresSolver(t *testing.T) {
	n := novelty.New()
	codec := iri.NewCodec()
	doc := map[string]any{"@where": []any{}, "@insert": map[string]any{}}
	if _, err := Stage(n, doc, Options{Codec: codec}); err == nil {
		t.Fatalf("expected an error when no solver is configured for a modify transaction")
	}
}
