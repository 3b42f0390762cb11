package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// FileStore is a BlobStore backed by a directory tree, one file per blob,
// used for the fluree:file:// scheme.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &FileStore{root: dir}, nil
}

func (f *FileStore) Write(_ context.Context, prefix string, data []byte, opts WriteOptions) (WriteResult, error) {
	var key string
	if opts.ContentAddress {
		sum := sha256.Sum256(data)
		key = "b" + b32.EncodeToString(sum[:])
	} else {
		key = uuid.New().String()
	}
	dir := filepath.Join(f.root, prefix)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return WriteResult{}, fmt.Errorf("storage: mkdir: %w", err)
	}
	path := filepath.Join(dir, key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WriteResult{}, fmt.Errorf("storage: write: %w", err)
	}
	addr := fmt.Sprintf("fluree:file://%s/%s", prefix, key)
	return WriteResult{Address: addr, Key: key}, nil
}

func (f *FileStore) Read(_ context.Context, address string) ([]byte, error) {
	rel, err := addressPath(address, "fluree:file://")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(f.root, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", address, err)
	}
	return data, nil
}

func addressPath(address, scheme string) (string, error) {
	if len(address) <= len(scheme) || address[:len(scheme)] != scheme {
		return "", fmt.Errorf("storage: address %q missing scheme %q", address, scheme)
	}
	return address[len(scheme):], nil
}

// FileNaming persists a single alias->address map as JSON, matching
// single-writer-per-alias contract with no external
// coordination.
type FileNaming struct {
	path string
	mu   sync.Mutex
}

// NewFileNaming returns a FileNaming backed by path, creating an empty
// map file if one does not already exist.
func NewFileNaming(path string) (*FileNaming, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("storage: init naming file: %w", err)
		}
	}
	return &FileNaming{path: path}, nil
}

func (n *FileNaming) load() (map[string]string, error) {
	data, err := os.ReadFile(n.path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *FileNaming) Publish(_ context.Context, alias, commitAddress string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	aliases, err := n.load()
	if err != nil {
		return fmt.Errorf("storage: load naming file: %w", err)
	}
	aliases[alias] = commitAddress
	data, err := json.Marshal(aliases)
	if err != nil {
		return err
	}
	return os.WriteFile(n.path, data, 0o644)
}

func (n *FileNaming) Resolve(_ context.Context, alias string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	aliases, err := n.load()
	if err != nil {
		return "", fmt.Errorf("storage: load naming file: %w", err)
	}
	addr, ok := aliases[alias]
	if !ok {
		return "", fmt.Errorf("storage: alias %q not published", alias)
	}
	return addr, nil
}
