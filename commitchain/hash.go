package commitchain

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/json"
	"fmt"
	"sort"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// Canonicalize returns a deterministic JSON encoding of v: object keys
// sorted recursively, arrays left in their given order. Grounded on the
// RFC8785-style canonicalizer in the pack (certenIO commitment package):
// decode to generic interface{}, sort map keys, re-encode.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("commitchain: marshal for canonicalization: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("commitchain: unmarshal for canonicalization: %w", err)
	}
	return json.Marshal(canonicalValue(generic))
}

func canonicalValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, kv{k, canonicalValue(vv[k])})
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = canonicalValue(e)
		}
		return out
	default:
		return vv
	}
}

// kv/orderedMap provide a stable-iteration-order substitute for
// map[string]any so json.Marshal emits keys in the sorted order we
// computed rather than Go's own (already-sorted, but let's be explicit)
// map iteration.
type kv struct {
	Key   string
	Value any
}
type orderedMap []kv

func (o orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, pair := range o {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyJSON, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		valJSON, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyJSON...)
		buf = append(buf, ':')
		buf = append(buf, valJSON...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// HashDocument computes the scheme-prefixed SHA-256/base32 hash of a
// JSON-LD document.
func HashDocument(scheme string, v any) (string, error) {
	canon, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return scheme + b32.EncodeToString(sum[:]), nil
}

// DataHash computes data.id for a Data payload with ID and Address
// blanked (address is backend-assigned after hashing and must not affect
// the hash).
func DataHash(d Data) (string, error) {
	d.ID = ""
	d.Address = ""
	return HashDocument(dataHashScheme, d)
}

// CommitHash computes commit.id for a Commit with ID and Address blanked
// (address is backend-assigned after hashing and must not affect the
// hash).
func CommitHash(c Commit) (string, error) {
	c.ID = ""
	c.Address = ""
	return HashDocument(commitHashScheme, c)
}
