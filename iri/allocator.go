package iri

import "time"

// Allocator assigns SIDs to IRIs encountered while staging a single
// transaction. It owns no shared mutable state
// beyond the Codec it wraps -- callers
// construct one Allocator per staged transaction and discard it when
// staging completes or fails.
type Allocator struct {
	codec *Codec
	clock func() time.Time
}

// NewAllocator wraps codec for use during a single staging pass. clock is
// injectable so blank-node ids are deterministic in tests.
func NewAllocator(codec *Codec, clock func() time.Time) *Allocator {
	if clock == nil {
		clock = time.Now
	}
	return &Allocator{codec: codec, clock: clock}
}

// Allocate returns the SID for an explicit IRI, minting a namespace code
// on first sight. Safe to call repeatedly with the same IRI: Encode is
// idempotent.
func (a *Allocator) Allocate(iriStr string) SID {
	return a.codec.Encode(iriStr)
}

// AllocateBlank mints a fresh blank-node SID for a node with no @id.
// isSchema distinguishes the property range (rdfs:Class / rdf:Property /
// SHACL shape subjects) from the default range (ordinary individuals) as
// required to keep model and instance blank nodes from colliding; the distinction is encoded as a local-name
// prefix ("P-" for the property range, "i-" for individuals) so
// property-range blank nodes sort before individual ones within the
// blank-node namespace.
func (a *Allocator) AllocateBlank(isSchema bool) SID {
	blank := NewBlankNode(a.clock())
	if isSchema {
		blank.Name = "P-" + blank.Name
	} else {
		blank.Name = "i-" + blank.Name
	}
	return blank
}

// Codec exposes the underlying namespace table for callers that need to
// decode SIDs back to IRIs (e.g. the SHACL engine rendering a violation
// report).
func (a *Allocator) Codec() *Codec { return a.codec }
