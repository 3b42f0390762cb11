package iri

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewCodec()
	iris := []string{
		"http://ex/#alice",
		"http://ex/#bob",
		"http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
		"https://schema.org/name",
	}
	for _, in := range iris {
		sid := c.Encode(in)
		out, err := c.Decode(sid)
		if err != nil {
			t.Fatalf("decode(%v): %v", sid, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: got %q want %q", out, in)
		}
	}
}

func TestEncodeIdempotent(t *testing.T) {
	c := NewCodec()
	a := c.Encode("http://ex/#alice")
	b := c.Encode("http://ex/#alice")
	if a != b {
		t.Fatalf("encode not idempotent: %v != %v", a, b)
	}
}

func TestEncodeNewNamespaceStartsAt101(t *testing.T) {
	c := NewCodec()
	sid := c.Encode("http://ex/#alice")
	if sid.Namespace < FirstUserNamespace {
		t.Fatalf("expected user namespace >= %d, got %d", FirstUserNamespace, sid.Namespace)
	}
}

func TestSentinelExpansion(t *testing.T) {
	c := NewCodec()
	typeSID := c.Encode("@type")
	rdfType := c.Encode("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")
	if typeSID != rdfType {
		t.Fatalf("@type should expand to rdf:type, got %v vs %v", typeSID, rdfType)
	}
}

func TestBlankNodeNamespace(t *testing.T) {
	c := NewCodec()
	alloc := NewAllocator(c, nil)
	b := alloc.AllocateBlank(false)
	if !b.IsBlank() {
		t.Fatalf("expected blank node SID, got %v", b)
	}
}

func TestSIDOrdering(t *testing.T) {
	a := SID{Namespace: 1, Name: "a"}
	b := SID{Namespace: 1, Name: "b"}
	c := SID{Namespace: 2, Name: "a"}
	if !Less(a, b) {
		t.Fatalf("expected %v < %v", a, b)
	}
	if !Less(b, c) {
		t.Fatalf("expected %v < %v", b, c)
	}
}
