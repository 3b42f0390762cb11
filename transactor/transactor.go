// Package transactor stages a JSON-LD document into a Novelty overlay:
// it classifies the document as an insert or a modify, synthesizes
// flakes (allocating SIDs and inferring or coercing datatypes along the
// way), retracts a predicate's prior values when it already held them,
// and merges the result into the target overlay per the re-staging
// cancellation rule used to keep a staged DB minimal.
package transactor

import (
	"sort"
	"time"

	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/shacl"
	"github.com/fluree/fluree-core/vocab"
)

// Options carries the collaborators a staging pass needs.
type Options struct {
	Codec  *iri.Codec
	Schema *vocab.Schema
	Shapes *shacl.Cache // optional; enables sh:datatype coercion
	Clock  func() time.Time

	// Solver resolves a @where clause into variable-binding solutions
	// for a modify transaction. Required only when staging a modify.
	Solver WhereSolver

	// Author is recorded on the document's did, if present inside a
	// verifiable-credential envelope (informational only; the caller
	// decides whether the recovered identity may write).
	Author string

	// CommittedT is the t of the most recent commit already written to
	// the chain (0 if none). Flakes in n with a t strictly more negative
	// than CommittedT belong to a staged-but-uncommitted transaction
	// from an earlier call to Stage against this same overlay, and are
	// cancelled rather than flipped when superseded; flakes at or before
	// CommittedT are committed history and always get a real retraction.
	CommittedT int64
}

// Result reports what a staging pass produced.
type Result struct {
	T      int64
	Flakes []flake.Flake // every flake added to the overlay (assert and retract)
}

// Stage classifies doc and stages it into n, returning the new flakes
// and the t assigned to this transaction. t is one less (more negative)
// than n's current t, continuing the descending sequence novelty and
// the commit chain both use.
func Stage(n *novelty.Novelty, doc map[string]any, opts Options) (*Result, error) {
	if opts.Codec == nil {
		return nil, ferrors.New(ferrors.UnexpectedError, "transactor: codec is required")
	}
	schema := opts.Schema
	if schema == nil {
		schema = vocab.Empty()
	}

	subject, issuerDID, wrapped := unwrapCredential(doc)
	if wrapped {
		opts.Author = issuerDID
	}

	t := n.T() - 1
	alloc := iri.NewAllocator(opts.Codec, opts.Clock)

	var flakes []flake.Flake
	var err error
	if isModify(subject) {
		flakes, err = stageModify(n, subject, alloc, schema, opts, t)
	} else {
		flakes, err = stageInsert(n, subject, alloc, schema, opts.Shapes, t)
	}
	if err != nil {
		return nil, err
	}

	added := mergeStaged(n, flakes, opts.CommittedT)
	return &Result{T: t, Flakes: added}, nil
}

// unwrapCredential extracts the credentialSubject from a verifiable
// credential envelope, if doc carries one, returning the inner document,
// the issuer's did (if present) and whether unwrapping occurred.
func unwrapCredential(doc map[string]any) (map[string]any, string, bool) {
	subj, ok := doc["credentialSubject"].(map[string]any)
	if !ok {
		return doc, "", false
	}
	did, _ := doc["issuer"].(string)
	if did == "" {
		if iss, ok := doc["issuer"].(map[string]any); ok {
			did, _ = iss["id"].(string)
		}
	}
	return subj, did, true
}

// isModify reports whether doc is an update clause rather than a set of
// nodes to insert.
func isModify(doc map[string]any) bool {
	_, hasDelete := doc["@delete"]
	_, hasInsert := doc["@insert"]
	_, hasWhere := doc["@where"]
	return hasDelete || hasInsert || hasWhere
}

// mergeStaged adds new into n, applying the staged-DB cancellation
// rule: a retraction that would cancel an assertion already staged (not
// yet committed) at an earlier t removes that assertion outright instead
// of adding a flipped flake, keeping novelty minimal across re-stages.
func mergeStaged(n *novelty.Novelty, newFlakes []flake.Flake, committedT int64) []flake.Flake {
	added := make([]flake.Flake, 0, len(newFlakes))
	for _, f := range newFlakes {
		if !f.Op {
			if cancelled := cancelStagedAssertion(n, f, committedT); cancelled {
				continue
			}
		}
		if n.Add(f) {
			added = append(added, f)
		}
	}
	return added
}

// cancelStagedAssertion looks for an assertion that f (a retraction)
// would cancel and that was itself only staged -- not yet committed --
// in an earlier call to Stage against this same overlay (t strictly
// more negative than committedT). It removes that assertion directly
// rather than letting f flip it, keeping the staged DB minimal.
// Assertions at or before committedT are committed history: f still
// retracts them, just as a normal flipped flake.
func cancelStagedAssertion(n *novelty.Novelty, retraction flake.Flake, committedT int64) bool {
	for _, existing := range n.BySubjectPredicate(retraction.S, retraction.P) {
		if existing.T < committedT && existing.Retracts(retraction) {
			return n.Cancel(existing)
		}
	}
	return false
}

// sortedKeys returns a map's string keys in sorted order, used
// throughout staging to keep flake emission order deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
