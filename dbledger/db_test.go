package dbledger

import (
	"context"
	"testing"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/shacl"
	"github.com/fluree/fluree-core/storage"
	"github.com/fluree/fluree-core/vocab"
)

func newTestDB(t *testing.T) (*DB, Options) {
	t.Helper()
	opts := Options{
		Store:  storage.NewMemoryStore(),
		Naming: storage.NewMemoryNaming(),
		Codec:  iri.NewCodec(),
	}
	db, err := Open(context.Background(), "fluree:test/ledger", "main", opts)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return db, opts
}

func TestOpenWithNoPublishedCommitStartsEmpty(t *testing.T) {
	db, _ := newTestDB(t)
	if db.Head != nil {
		t.Fatalf("expected no head commit, got %+v", db.Head)
	}
	if db.Novelty.T() != 0 {
		t.Fatalf("expected empty novelty, t=%d", db.Novelty.T())
	}
}

func TestStageThenCommitThenReopenReplays(t *testing.T) {
	db, opts := newTestDB(t)

	doc := map[string]any{
		"@id":             "http://ex/#alice",
		"@type":           "http://ex/#Person",
		"http://ex/#name": "Alice",
	}
	res, err := db.Stage(doc, StageOptions{})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if res.T != -1 {
		t.Fatalf("expected first stage at t=-1, got %d", res.T)
	}

	commit, err := db.Commit(context.Background(), CommitOptions{Message: "add alice"})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if commit.Data.T != -1 {
		t.Fatalf("expected commit t=-1, got %d", commit.Data.T)
	}

	reopened, err := Open(context.Background(), "fluree:test/ledger", "main", opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	alice := opts.Codec.Encode("http://ex/#alice")
	name := opts.Codec.Encode("http://ex/#name")
	if !reopened.Novelty.Has(flake.Flake{S: alice, P: name, O: "Alice", Dt: iri.SID{Namespace: iri.NamespaceXSD, Name: "string"}, T: -1, Op: true}.Key()) {
		t.Fatalf("expected reopened ledger to contain alice's name flake, got %+v", reopened.Novelty.All())
	}
	if reopened.committedT != -1 {
		t.Fatalf("expected reopened committedT=-1, got %d", reopened.committedT)
	}
}

func TestCommitWithNothingStagedFails(t *testing.T) {
	db, _ := newTestDB(t)
	if _, err := db.Commit(context.Background(), CommitOptions{}); err == nil {
		t.Fatalf("expected an error committing an empty stage")
	}
}

func TestStageRollsBackOnSHACLViolation(t *testing.T) {
	db, _ := newTestDB(t)
	alloc := iri.NewAllocator(db.Codec, nil)

	personClass := alloc.Allocate("http://ex/#Person")
	emailProp := alloc.Allocate("http://ex/#email")
	shapeID := alloc.Allocate("http://ex/#PersonShape")
	propShapeID := alloc.AllocateBlank(true)

	add := func(s, p, o iri.SID) {
		db.Novelty.Add(flake.Flake{S: s, P: p, O: o, Dt: iri.AnyURI, T: -1, Op: true})
	}
	add(shapeID, vocab.RDFType, shacl.NodeShape)
	add(shapeID, shacl.TargetClass, personClass)
	add(shapeID, shacl.PropertyConstraint, propShapeID)
	add(propShapeID, shacl.Path, emailProp)
	db.Novelty.Add(flake.Flake{S: propShapeID, P: shacl.MinCount, O: int64(1), Dt: iri.SID{Namespace: iri.NamespaceXSD, Name: "integer"}, T: -1, Op: true})
	db.committedT = -1
	db.Shapes.Invalidate()

	doc := map[string]any{
		"@id":   "http://ex/#bob",
		"@type": "http://ex/#Person",
		"http://ex/#name": "Bob",
	}
	before := len(db.Novelty.All())
	if _, err := db.Stage(doc, StageOptions{}); err == nil {
		t.Fatalf("expected a SHACL violation error")
	}
	if len(db.Novelty.All()) != before {
		t.Fatalf("expected staged flakes to be rolled back, novelty grew from %d to %d", before, len(db.Novelty.All()))
	}
}
