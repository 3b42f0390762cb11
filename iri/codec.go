package iri

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// splitChars are the delimiters that separate an IRI's namespace prefix
// from its local name; the codec splits at the last occurrence of any of
// them.
const splitChars = "#?/:"

// sentinelExpansions maps JSON-LD keyword sentinels to the IRIs they
// expand to.
var sentinelExpansions = map[string]string{
	"@type": "http://www.w3.org/1999/02/22-rdf-syntax-ns#type",
	"@json": "http://www.w3.org/1999/02/22-rdf-syntax-ns#JSON",
}

// Codec is the process-wide namespace table: a bidirectional map between
// namespace codes and prefixes, append-only and safe for concurrent use
// (teacher's shape cache/namespace table are modeled the same way, see
// across the database).
type Codec struct {
	mu       sync.RWMutex
	prefixes map[string]int // prefix -> namespace code
	codes    map[int]string // namespace code -> prefix
	next     int
}

// NewCodec returns a Codec seeded with the default reserved namespaces.
func NewCodec() *Codec {
	c := &Codec{
		prefixes: make(map[string]int, len(defaultNamespaces)+8),
		codes:    make(map[int]string, len(defaultNamespaces)+8),
		next:     FirstUserNamespace,
	}
	for code, prefix := range defaultNamespaces {
		c.prefixes[prefix] = code
		c.codes[code] = prefix
	}
	return c
}

// split divides iri into (prefix, localName) at the last splitChar.
func split(iri string) (prefix, local string) {
	idx := strings.LastIndexAny(iri, splitChars)
	if idx < 0 {
		return "", iri
	}
	return iri[:idx+1], iri[idx+1:]
}

// Encode idempotently maps iri to its SID, allocating a fresh namespace
// code (>= FirstUserNamespace) the first time a prefix is seen.
func (c *Codec) Encode(iriStr string) SID {
	if expanded, ok := sentinelExpansions[iriStr]; ok {
		iriStr = expanded
	}
	prefix, local := split(iriStr)
	if prefix == "" {
		prefix = iriStr
		local = ""
	}

	c.mu.RLock()
	code, ok := c.prefixes[prefix]
	c.mu.RUnlock()
	if ok {
		return SID{Namespace: code, Name: local}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// re-check under write lock in case of a racing allocation
	if code, ok := c.prefixes[prefix]; ok {
		return SID{Namespace: code, Name: local}
	}
	code = c.next
	c.next++
	c.prefixes[prefix] = code
	c.codes[code] = prefix
	return SID{Namespace: code, Name: local}
}

// Decode reverses Encode via the namespace-code -> prefix inverse map.
func (c *Codec) Decode(sid SID) (string, error) {
	c.mu.RLock()
	prefix, ok := c.codes[sid.Namespace]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("iri: unknown namespace code %d", sid.Namespace)
	}
	return prefix + sid.Name, nil
}

// MustDecode panics on an unknown namespace; reserved for call sites that
// have already validated the SID came from this Codec.
func (c *Codec) MustDecode(sid SID) string {
	s, err := c.Decode(sid)
	if err != nil {
		panic(err)
	}
	return s
}

// Namespaces returns the full code -> prefix table, used when rendering
// the `ns` array shipped with every commit.
func (c *Codec) Namespaces() map[int]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int]string, len(c.codes))
	for k, v := range c.codes {
		out[k] = v
	}
	return out
}

// RegisterNamespace installs a known code/prefix pair and moves the next
// free code past it. The reification loader does not call it: replay
// re-derives namespace codes through Encode in chain order.
func (c *Codec) RegisterNamespace(code int, prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixes[prefix] = code
	c.codes[code] = prefix
	if code >= c.next {
		c.next = code + 1
	}
}

// NewBlankNode allocates a fresh blank-node SID with local name
// `fdb-<epoch-ms>-<8 char id>`.
func NewBlankNode(now time.Time) SID {
	id := uuid.New().String()
	local := fmt.Sprintf("fdb-%d-%s", now.UnixMilli(), id[:8])
	return SID{Namespace: NamespaceBlankNode, Name: local}
}
