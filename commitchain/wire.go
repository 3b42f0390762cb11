package commitchain

import (
	"encoding/json"
	"fmt"
)

// marshalCommitWire serializes a commit for blob storage. Commit.JWS
// carries json:"-" so it never enters hash computation, but a signed
// commit's envelope still needs to persist the signature alongside the
// body it covers; this splices `jws` back in as an ordinary top-level
// field before writing.
func marshalCommitWire(c Commit) ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("commitchain: marshal commit: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("commitchain: unmarshal commit for wire encoding: %w", err)
	}
	if c.JWS != "" {
		m["jws"] = c.JWS
	}
	return json.Marshal(canonicalValue(m))
}

// unmarshalCommitWire reverses marshalCommitWire: it pulls `jws` out of
// the raw envelope before decoding the rest into a Commit, so the
// signature survives a read even though the struct tag excludes it from
// ordinary JSON (un)marshaling.
func unmarshalCommitWire(raw []byte) (Commit, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return Commit{}, fmt.Errorf("commitchain: unmarshal commit envelope: %w", err)
	}
	jws, _ := m["jws"].(string)
	delete(m, "jws")

	body, err := json.Marshal(m)
	if err != nil {
		return Commit{}, fmt.Errorf("commitchain: re-marshal commit body: %w", err)
	}
	var c Commit
	if err := json.Unmarshal(body, &c); err != nil {
		return Commit{}, fmt.Errorf("commitchain: unmarshal commit: %w", err)
	}
	c.JWS = jws
	return c, nil
}
