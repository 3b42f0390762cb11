package storage

// IPFSStore is a BlobStore backed by an IPFS HTTP gateway with an
// on-disk LRU cache, adapted from a content-addressed storage subsystem
// (core/storage.go NewStorage/Pin/Retrieve/newDiskLRU) for the
// fluree:ipfs:// scheme: content addresses are computed locally with
// go-multihash/go-cid before the gateway round-trip, and the cache
// avoids re-fetching blobs already pinned.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
)

type diskEntry struct {
	path string
	size int64
	at   time.Time
}

type diskLRU struct {
	mu    sync.Mutex
	dir   string
	max   int
	index map[string]*diskEntry
	order []*diskEntry
}

const defaultCacheEntries = 10_000

func newDiskLRU(dir string, maxEntries int) (*diskLRU, error) {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &diskLRU{dir: dir, max: maxEntries, index: make(map[string]*diskEntry)}, nil
}

func (l *diskLRU) put(key string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.index[key]; ok {
		ent.at = time.Now()
		return nil
	}
	if len(l.index) >= l.max && len(l.order) > 0 {
		lru := 0
		for i, e := range l.order {
			if e.at.Before(l.order[lru].at) {
				lru = i
			}
		}
		oldest := l.order[lru]
		_ = os.Remove(oldest.path)
		delete(l.index, filepath.Base(oldest.path))
		l.order = append(l.order[:lru], l.order[lru+1:]...)
	}
	p := filepath.Join(l.dir, key)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	ent := &diskEntry{path: p, size: int64(len(data)), at: time.Now()}
	l.index[key] = ent
	l.order = append(l.order, ent)
	return nil
}

func (l *diskLRU) get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ent, ok := l.index[key]
	if !ok {
		return nil, false
	}
	ent.at = time.Now()
	b, err := os.ReadFile(ent.path)
	if err != nil {
		return nil, false
	}
	return b, true
}

// IPFSConfig configures an IPFSStore.
type IPFSConfig struct {
	Gateway          string
	CacheDir         string
	CacheSizeEntries int
	GatewayTimeout   time.Duration
}

// IPFSStore implements BlobStore over an IPFS HTTP gateway.
type IPFSStore struct {
	cfg    IPFSConfig
	log    *logrus.Logger
	client *http.Client
	cache  *diskLRU

	pinEndpoint string
	getEndpoint string
}

// NewIPFSStore wires an IPFSStore against cfg, matching the
// NewStorage constructor shape (config + logger, cache built eagerly).
func NewIPFSStore(cfg IPFSConfig, log *logrus.Logger) (*IPFSStore, error) {
	if cfg.Gateway == "" {
		return nil, errors.New("storage: ipfs gateway required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.GatewayTimeout == 0 {
		cfg.GatewayTimeout = 30 * time.Second
	}
	cache, err := newDiskLRU(cfg.CacheDir, cfg.CacheSizeEntries)
	if err != nil {
		return nil, fmt.Errorf("storage: cache: %w", err)
	}
	s := &IPFSStore{
		cfg:         cfg,
		log:         log,
		client:      &http.Client{Timeout: cfg.GatewayTimeout},
		cache:       cache,
		pinEndpoint: cfg.Gateway + "/api/v0/add?pin=true",
		getEndpoint: cfg.Gateway + "/ipfs/",
	}
	log.WithFields(logrus.Fields{"gateway": cfg.Gateway, "cache": cfg.CacheDir}).Info("storage: ipfs backend ready")
	return s, nil
}

// Write pins data to the gateway and returns a fluree:ipfs:// address.
// prefix is informational only (IPFS addressing is fully content-based).
func (s *IPFSStore) Write(ctx context.Context, prefix string, data []byte, _ WriteOptions) (WriteResult, error) {
	encodedMH, err := mh.Sum(data, mh.SHA2_256, -1)
	if err != nil {
		return WriteResult{}, err
	}
	c := cid.NewCidV1(cid.Raw, encodedMH)
	cidStr := c.String()

	if _, ok := s.cache.get(cidStr); ok {
		return WriteResult{Address: "fluree:ipfs://" + cidStr, Key: cidStr}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinEndpoint, bytes.NewReader(data))
	if err != nil {
		return WriteResult{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return WriteResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return WriteResult{}, fmt.Errorf("storage: gateway pin %d: %s", resp.StatusCode, string(b))
	}

	var meta struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return WriteResult{}, fmt.Errorf("storage: decode pin response: %w", err)
	}
	if meta.Hash != cidStr {
		return WriteResult{}, errors.New("storage: cid mismatch between local and gateway computation")
	}

	_ = s.cache.put(cidStr, data)
	s.log.WithFields(logrus.Fields{"cid": cidStr, "bytes": len(data)}).Info("storage: pinned blob")
	return WriteResult{Address: "fluree:ipfs://" + cidStr, Key: cidStr}, nil
}

// Read fetches data for address (cache first, gateway fallback).
func (s *IPFSStore) Read(ctx context.Context, address string) ([]byte, error) {
	cidStr, err := addressPath(address, "fluree:ipfs://")
	if err != nil {
		return nil, err
	}
	if b, ok := s.cache.get(cidStr); ok {
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.getEndpoint+cidStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 128))
		return nil, fmt.Errorf("storage: gateway fetch %d: %s", resp.StatusCode, string(b))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	_ = s.cache.put(cidStr, data)
	s.log.WithFields(logrus.Fields{"cid": cidStr, "bytes": len(data)}).Info("storage: retrieved blob")
	return data, nil
}
