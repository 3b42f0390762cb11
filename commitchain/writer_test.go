package commitchain

import (
	"context"
	"testing"
	"time"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/storage"
)

func fixedClock(ts string) func() time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestWriteCommitThenReifyRoundTrips(t *testing.T) {
	ctx := context.Background()
	codec := iri.NewCodec()
	store := storage.NewMemoryStore()
	naming := storage.NewMemoryNaming()

	alice := codec.Encode("http://ex/#alice")
	name := codec.Encode("http://ex/#name")
	xsdString := iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}

	assert1 := []flake.Flake{
		flake.NewIRIFlake(alice, "http://ex/#alice", -1),
		{S: alice, P: name, O: "Alice", Dt: xsdString, T: -1, Op: true},
	}

	opts := WriteOptions{
		Alias:  "main",
		Branch: "main",
		Store:  store,
		Naming: naming,
		Codec:  codec,
		Clock:  fixedClock("2024-01-01T00:00:00Z"),
	}

	commit1, err := WriteCommit(ctx, nil, assert1, nil, []string{"http://ex/#"}, opts)
	if err != nil {
		t.Fatalf("write genesis commit: %v", err)
	}
	if commit1.Data.T != -1 {
		t.Fatalf("expected genesis t=-1, got %d", commit1.Data.T)
	}
	if commit1.Previous != nil {
		t.Fatalf("expected genesis commit to have no previous, got %+v", commit1.Previous)
	}

	bob := codec.Encode("http://ex/#bob")
	knows := codec.Encode("http://ex/#knows")
	assert2 := []flake.Flake{
		flake.NewIRIFlake(bob, "http://ex/#bob", -2),
		{S: alice, P: knows, O: bob, Dt: iri.AnyURI, T: -2, Op: true},
	}
	opts.Clock = fixedClock("2024-01-01T01:00:00Z")
	commit2, err := WriteCommit(ctx, commit1, assert2, nil, nil, opts)
	if err != nil {
		t.Fatalf("write second commit: %v", err)
	}
	if commit2.Data.T != -2 {
		t.Fatalf("expected second commit t=-2, got %d", commit2.Data.T)
	}
	if commit2.Previous == nil || commit2.Previous.ID != commit1.ID {
		t.Fatalf("expected commit2.previous to point at commit1, got %+v", commit2.Previous)
	}

	reified, err := Reify(ctx, "main", ReifyOptions{Store: store, Naming: naming, Codec: iri.NewCodec()})
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	if reified.Head.ID != commit2.ID {
		t.Fatalf("expected head %q, got %q", commit2.ID, reified.Head.ID)
	}
	if reified.Novelty.Size() == 0 {
		t.Fatalf("expected replayed novelty to be non-empty")
	}
	if !reified.Novelty.Has(flake.Flake{S: alice, P: name, O: "Alice", Dt: xsdString, T: -1, Op: true}.Key()) {
		t.Fatalf("expected replayed novelty to contain alice's name flake")
	}
	if !reified.Novelty.Has(flake.Flake{S: alice, P: knows, O: bob, Dt: iri.AnyURI, T: -2, Op: true}.Key()) {
		t.Fatalf("expected replayed novelty to contain alice-knows-bob flake")
	}
	if reified.Novelty.T() != -2 {
		t.Fatalf("expected reified novelty t to be -2 (most recent), got %d", reified.Novelty.T())
	}
}

func TestReifyDoesNotDuplicateIRIFlakeAcrossUpdateInPlaceCommit(t *testing.T) {
	ctx := context.Background()
	codec := iri.NewCodec()
	store := storage.NewMemoryStore()
	naming := storage.NewMemoryNaming()

	alice := codec.Encode("http://ex/#alice")
	name := codec.Encode("http://ex/#name")
	xsdString := iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}

	assert1 := []flake.Flake{
		flake.NewIRIFlake(alice, "http://ex/#alice", -1),
		{S: alice, P: name, O: "Alice", Dt: xsdString, T: -1, Op: true},
	}
	opts := WriteOptions{
		Alias: "main", Branch: "main", Store: store, Naming: naming, Codec: codec,
		Clock: fixedClock("2024-01-01T00:00:00Z"),
	}
	commit1, err := WriteCommit(ctx, nil, assert1, nil, []string{"http://ex/#"}, opts)
	if err != nil {
		t.Fatalf("write genesis commit: %v", err)
	}

	// An update-in-place: the second commit re-lists alice (same subject,
	// new value) without asserting a fresh IRI flake, since alice already
	// exists. Only the new value and its retraction are staged.
	assert2 := []flake.Flake{{S: alice, P: name, O: "Alicia", Dt: xsdString, T: -2, Op: true}}
	retract2 := []flake.Flake{{S: alice, P: name, O: "Alice", Dt: xsdString, T: -2, Op: false}}
	opts.Clock = fixedClock("2024-01-01T01:00:00Z")
	if _, err := WriteCommit(ctx, commit1, assert2, retract2, nil, opts); err != nil {
		t.Fatalf("write second commit: %v", err)
	}

	reified, err := Reify(ctx, "main", ReifyOptions{Store: store, Naming: naming, Codec: iri.NewCodec()})
	if err != nil {
		t.Fatalf("reify: %v", err)
	}

	var iriFlakes int
	for _, f := range reified.Novelty.All() {
		if f.IsIRIFlake() && f.S == alice {
			iriFlakes++
		}
	}
	if iriFlakes != 1 {
		t.Fatalf("expected exactly one IRI flake for alice across the replayed chain, got %d", iriFlakes)
	}
	if !reified.Novelty.Has(flake.Flake{S: alice, P: name, O: "Alicia", Dt: xsdString, T: -2, Op: true}.Key()) {
		t.Fatalf("expected replayed novelty to contain alice's updated name")
	}
}

func TestReifyRejectsACommitWhoseStoredHashDoesNotMatchItsContent(t *testing.T) {
	ctx := context.Background()
	codec := iri.NewCodec()
	store := storage.NewMemoryStore()
	naming := storage.NewMemoryNaming()

	alice := codec.Encode("http://ex/#alice")
	assert1 := []flake.Flake{flake.NewIRIFlake(alice, "http://ex/#alice", 1)}
	opts := WriteOptions{Alias: "main", Store: store, Naming: naming, Codec: codec, Clock: fixedClock("2024-01-01T00:00:00Z")}
	commit, err := WriteCommit(ctx, nil, assert1, nil, nil, opts)
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	tampered := *commit
	tampered.Message = "tampered after hashing"
	tamperedBytes, err := marshalCommitWire(tampered)
	if err != nil {
		t.Fatalf("marshal tampered commit: %v", err)
	}
	res, err := store.Write(ctx, "commit", tamperedBytes, storage.WriteOptions{ContentAddress: true})
	if err != nil {
		t.Fatalf("write tampered commit: %v", err)
	}
	if err := naming.Publish(ctx, "main", res.Address); err != nil {
		t.Fatalf("publish tampered commit: %v", err)
	}

	if _, err := Reify(ctx, "main", ReifyOptions{Store: store, Naming: naming, Codec: iri.NewCodec()}); err == nil {
		t.Fatalf("expected reify to reject a tampered commit")
	}
}
