package storage

import (
	"context"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// MemoryStore is an in-process BlobStore keyed by address, used in tests
// and for the fluree:memory:// scheme.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Write stores data under a content-addressed or opaque key depending on
// opts, returning a fluree:memory:// address.
func (m *MemoryStore) Write(_ context.Context, prefix string, data []byte, opts WriteOptions) (WriteResult, error) {
	var key string
	if opts.ContentAddress {
		sum := sha256.Sum256(data)
		key = "b" + b32.EncodeToString(sum[:])
	} else {
		key = uuid.New().String()
	}
	addr := fmt.Sprintf("fluree:memory://%s/%s", prefix, key)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[addr] = append([]byte(nil), data...)
	return WriteResult{Address: addr, Key: key}, nil
}

// Read returns the bytes written at address.
func (m *MemoryStore) Read(_ context.Context, address string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[address]
	if !ok {
		return nil, fmt.Errorf("storage: no blob at %s", address)
	}
	return append([]byte(nil), data...), nil
}

// MemoryNaming is an in-process NamingService: a single map from alias
// to the latest published commit address, guarded by a mutex (mirrors
// a mutex-protected map for shared state, e.g.
// core.Ledger.NodeLocations).
type MemoryNaming struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewMemoryNaming returns an empty MemoryNaming.
func NewMemoryNaming() *MemoryNaming {
	return &MemoryNaming{aliases: make(map[string]string)}
}

// Publish advances alias to point at commitAddress.
func (n *MemoryNaming) Publish(_ context.Context, alias, commitAddress string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.aliases[alias] = commitAddress
	return nil
}

// Resolve returns the commit address alias currently points at.
func (n *MemoryNaming) Resolve(_ context.Context, alias string) (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	addr, ok := n.aliases[alias]
	if !ok {
		return "", fmt.Errorf("storage: alias %q not published", alias)
	}
	return addr, nil
}
