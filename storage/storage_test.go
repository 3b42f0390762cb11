package storage

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	res, err := s.Write(ctx, "commit", []byte("hello"), WriteOptions{ContentAddress: true})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.Read(ctx, res.Address)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestMemoryNamingPublishResolve(t *testing.T) {
	n := NewMemoryNaming()
	ctx := context.Background()
	if _, err := n.Resolve(ctx, "main"); err == nil {
		t.Fatalf("expected error resolving unpublished alias")
	}
	if err := n.Publish(ctx, "main", "fluree:memory://commit/abc"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	addr, err := n.Resolve(ctx, "main")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if addr != "fluree:memory://commit/abc" {
		t.Fatalf("got %q", addr)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()
	res, err := s.Write(ctx, "db", []byte("payload"), WriteOptions{ContentAddress: true})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := s.Read(ctx, res.Address)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}
}

func TestFileNamingPersists(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/naming.json"
	n, err := NewFileNaming(path)
	if err != nil {
		t.Fatalf("new file naming: %v", err)
	}
	ctx := context.Background()
	if err := n.Publish(ctx, "main", "fluree:file://commit/xyz"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	reopened, err := NewFileNaming(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	addr, err := reopened.Resolve(ctx, "main")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if addr != "fluree:file://commit/xyz" {
		t.Fatalf("got %q", addr)
	}
}
