package policy

import (
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
)

// resolvePathValues walks a direct-predicate path from focus, returning
// the reference values reached at its last segment. A literal or
// missing hop before the final segment is a dead end and contributes
// nothing, matching the SHACL property-path walk's semantics.
func resolvePathValues(n *novelty.Novelty, focus iri.SID, path Path) []iri.SID {
	current := []iri.SID{focus}
	for _, pred := range path {
		var next []iri.SID
		for _, node := range current {
			for _, fl := range n.BySubjectPredicate(node, pred) {
				if sid, ok := fl.ORef(); ok {
					next = append(next, sid)
				}
			}
		}
		current = next
	}
	return current
}
