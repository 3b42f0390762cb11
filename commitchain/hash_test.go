package commitchain

import "testing"

func TestCanonicalizeSortsMapKeysButPreservesArrayOrder(t *testing.T) {
	a, err := Canonicalize(map[string]any{"b": 1, "a": 2, "c": []any{3, 2, 1}})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	b, err := Canonicalize(map[string]any{"c": []any{3, 2, 1}, "a": 2, "b": 1})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected key-order-independent output, got %s vs %s", a, b)
	}
	want := `{"a":2,"b":1,"c":[3,2,1]}`
	if string(a) != want {
		t.Fatalf("want %s, got %s", want, a)
	}
}

func TestDataHashIsDeterministicAndIgnoresID(t *testing.T) {
	d := Data{Type: []string{"DB"}, T: 1, V: 0, Assert: []map[string]any{{"@id": "http://ex/#alice"}}, Flakes: 1, Size: 64}
	h1, err := DataHash(d)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	d.ID = "fluree:db:sha256:bSOMETHINGELSE"
	h2, err := DataHash(d)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected id-independent hash, got %q vs %q", h1, h2)
	}
	if h1[:len(dataHashScheme)] != dataHashScheme {
		t.Fatalf("expected scheme prefix %q, got %q", dataHashScheme, h1)
	}
}

func TestCommitHashChangesWithMessage(t *testing.T) {
	base := Commit{Context: contextURI, V: 0, Type: []string{"Commit"}, Alias: "main", Branch: "main", Time: "2024-01-01T00:00:00Z"}
	h1, err := CommitHash(base)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	base.Message = "changed"
	h2, err := CommitHash(base)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected hash to change with message")
	}
}
