package commitchain

import (
	"sort"
	"testing"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

func TestFlakesToNodesGroupsBySubjectAndRendersRefsAndLiterals(t *testing.T) {
	codec := iri.NewCodec()
	alice := codec.Encode("http://ex/#alice")
	bob := codec.Encode("http://ex/#bob")
	name := codec.Encode("http://ex/#name")
	knows := codec.Encode("http://ex/#knows")
	xsdString := iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}

	fs := []flake.Flake{
		flake.NewIRIFlake(alice, "http://ex/#alice", 1),
		{S: alice, P: name, O: "Alice", Dt: xsdString, T: 1, Op: true},
		{S: alice, P: knows, O: bob, Dt: iri.AnyURI, T: 1, Op: true},
	}

	nodes, err := FlakesToNodes(codec, fs)
	if err != nil {
		t.Fatalf("FlakesToNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(nodes))
	}
	node := nodes[0]
	if node["@id"] != "http://ex/#alice" {
		t.Fatalf("unexpected @id: %v", node["@id"])
	}
	if node["http://ex/#name"] != "Alice" {
		t.Fatalf("unexpected name value: %v", node["http://ex/#name"])
	}
	ref, ok := node["http://ex/#knows"].(map[string]any)
	if !ok || ref["@id"] != "http://ex/#bob" {
		t.Fatalf("unexpected knows value: %v", node["http://ex/#knows"])
	}
}

func TestFlakesToNodesRendersListsInIndexOrder(t *testing.T) {
	codec := iri.NewCodec()
	alice := codec.Encode("http://ex/#alice")
	favorites := codec.Encode("http://ex/#favorites")
	xsdString := iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}

	fs := []flake.Flake{
		flake.NewIRIFlake(alice, "http://ex/#alice", 1),
		{S: alice, P: favorites, O: "b", Dt: xsdString, T: 1, Op: true, M: flake.Meta{"i": 1}},
		{S: alice, P: favorites, O: "a", Dt: xsdString, T: 1, Op: true, M: flake.Meta{"i": 0}},
	}
	nodes, err := FlakesToNodes(codec, fs)
	if err != nil {
		t.Fatalf("FlakesToNodes: %v", err)
	}
	list, ok := nodes[0]["http://ex/#favorites"].(map[string]any)
	if !ok {
		t.Fatalf("expected @list wrapper, got %v", nodes[0]["http://ex/#favorites"])
	}
	items := list["@list"].([]any)
	if items[0] != "a" || items[1] != "b" {
		t.Fatalf("expected [a b] in index order, got %v", items)
	}
}

func TestNodesToFlakesRoundTripsThroughFlakesToNodes(t *testing.T) {
	codec := iri.NewCodec()
	alice := codec.Encode("http://ex/#alice")
	bob := codec.Encode("http://ex/#bob")
	name := codec.Encode("http://ex/#name")
	knows := codec.Encode("http://ex/#knows")
	xsdString := iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}

	original := []flake.Flake{
		flake.NewIRIFlake(alice, "http://ex/#alice", 1),
		flake.NewIRIFlake(bob, "http://ex/#bob", 1),
		{S: alice, P: name, O: "Alice", Dt: xsdString, T: 1, Op: true},
		{S: alice, P: knows, O: bob, Dt: iri.AnyURI, T: 1, Op: true},
	}

	nodes, err := FlakesToNodes(codec, original)
	if err != nil {
		t.Fatalf("FlakesToNodes: %v", err)
	}

	alloc := iri.NewAllocator(codec, nil)
	rebuilt, err := NodesToFlakes(alloc, nodes, 1, true, make(map[iri.SID]bool))
	if err != nil {
		t.Fatalf("NodesToFlakes: %v", err)
	}

	if len(rebuilt) != len(original) {
		t.Fatalf("expected %d flakes, got %d", len(original), len(rebuilt))
	}

	sortByKey := func(fs []flake.Flake) {
		sort.Slice(fs, func(i, j int) bool { return flake.CompareSPOT(fs[i], fs[j]) < 0 })
	}
	sortByKey(original)
	sortByKey(rebuilt)
	for i := range original {
		if original[i].S != rebuilt[i].S || original[i].P != rebuilt[i].P || original[i].Dt != rebuilt[i].Dt {
			t.Fatalf("flake %d mismatch:\n  want %+v\n  got  %+v", i, original[i], rebuilt[i])
		}
		if original[i].O != rebuilt[i].O {
			t.Fatalf("flake %d object mismatch: want %v got %v", i, original[i].O, rebuilt[i].O)
		}
	}
}

func TestNodesToFlakesInfersIntegerDatatypeFromFloat64(t *testing.T) {
	codec := iri.NewCodec()
	alloc := iri.NewAllocator(codec, nil)
	nodes := []map[string]any{
		{"@id": "http://ex/#alice", "http://ex/#age": float64(42)},
	}
	fs, err := NodesToFlakes(alloc, nodes, 1, true, make(map[iri.SID]bool))
	if err != nil {
		t.Fatalf("NodesToFlakes: %v", err)
	}
	var age *flake.Flake
	for i := range fs {
		if !fs[i].IsIRIFlake() {
			age = &fs[i]
		}
	}
	if age == nil {
		t.Fatalf("expected an age flake")
	}
	if age.Dt.Name != "integer" {
		t.Fatalf("expected xsd:integer, got %v", age.Dt)
	}
	if v, ok := age.O.(int64); !ok || v != 42 {
		t.Fatalf("expected int64(42), got %#v", age.O)
	}
}
