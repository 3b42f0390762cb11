// Package storage defines the injected blob-storage and naming-service
// collaborators. The transactional core never
// interprets a storage address's scheme -- it only calls through these
// two interfaces -- but this package ships reference backends (memory,
// file, IPFS-gateway) adapted from a content-addressed storage subsystem
// (core/storage.go) so the module is runnable end to end.
package storage

import "context"

// WriteOptions controls how Write computes the returned address.
type WriteOptions struct {
	// ContentAddress, when true, asks the backend to derive the address
	// from a hash of data rather than assigning an opaque key.
	ContentAddress bool
}

// WriteResult is returned by a successful Write.
type WriteResult struct {
	Address string
	Key     string
}

// BlobStore is the injected blob-storage collaborator.
// Supported schemes in this repo: fluree:memory://, fluree:file://...,
// fluree:ipfs://...
type BlobStore interface {
	Write(ctx context.Context, prefix string, data []byte, opts WriteOptions) (WriteResult, error)
	Read(ctx context.Context, address string) ([]byte, error)
}

// NamingService is the injected naming-service collaborator (alias-to-
// 6.2). Single-writer per alias; the core performs no coordination of
// its own.
type NamingService interface {
	Publish(ctx context.Context, alias, commitAddress string) error
	Resolve(ctx context.Context, alias string) (string, error)
}
