package commitchain

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/storage"
	"github.com/fluree/fluree-core/vocab"
)

// ReifyOptions names the collaborators Reify needs to walk a commit
// chain back into in-memory state.
type ReifyOptions struct {
	Store  storage.BlobStore
	Naming storage.NamingService
	Codec  *iri.Codec
	Log    *logrus.Logger

	// RequireSignature rejects any commit in the chain that lacks a JWS
	// envelope. Off by default: most ledgers run unsigned.
	RequireSignature bool
}

// Reified is the state rebuilt by replaying a commit chain.
type Reified struct {
	Head    *Commit
	Novelty *novelty.Novelty
	Schema  *vocab.Schema
}

// Reify resolves alias to its head commit, walks the `previous` chain
// back to genesis verifying hash and t-contiguity at every link, then
// replays the chain oldest-to-newest: each commit's assert/retract
// nodes are converted back into flakes and merged into a Novelty
// overlay, and the vocabulary schema is rehydrated after every commit
// so later commits see the predicates earlier ones declared.
func Reify(ctx context.Context, alias string, opts ReifyOptions) (*Reified, error) {
	if opts.Store == nil || opts.Naming == nil || opts.Codec == nil {
		return nil, ferrors.New(ferrors.UnexpectedError, "commitchain: store, naming and codec are required")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	headAddr, err := opts.Naming.Resolve(ctx, alias)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.InvalidCommit, fmt.Sprintf("commitchain: resolve alias %q", alias), err)
	}

	var chain []Commit
	addr := headAddr
	for addr != "" {
		c, err := fetchCommit(ctx, opts.Store, addr)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.InvalidCommit, fmt.Sprintf("commitchain: fetch commit at %q", addr), err)
		}
		if err := verifyCommit(c, opts); err != nil {
			return nil, err
		}
		chain = append(chain, c)
		if c.Previous == nil {
			break
		}
		addr = c.Previous.Address
	}
	if len(chain) == 0 {
		return nil, ferrors.New(ferrors.InvalidCommit, fmt.Sprintf("commitchain: alias %q has no commits", alias))
	}

	// chain is newest-first; t decreases (grows more negative) moving
	// forward in time, so verify strict t-contiguity walking backward
	// from the head, then replay oldest-first.
	for i := 0; i < len(chain)-1; i++ {
		newer, older := chain[i], chain[i+1]
		if newer.Data.T != older.Data.T-1 {
			return nil, ferrors.New(ferrors.InvalidCommit, fmt.Sprintf(
				"commitchain: t-contiguity broken between %q (t=%d) and %q (t=%d)",
				newer.ID, newer.Data.T, older.ID, older.Data.T))
		}
	}

	n := novelty.New()
	schema := vocab.Empty()
	alloc := iri.NewAllocator(opts.Codec, nil)
	knownSubjects := make(map[iri.SID]bool)

	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]

		assertFlakes, err := NodesToFlakes(alloc, c.Data.Assert, c.Data.T, true, knownSubjects)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.InvalidCommit, fmt.Sprintf("commitchain: decode assert nodes at t=%d", c.Data.T), err)
		}
		retractFlakes, err := NodesToFlakes(alloc, c.Data.Retract, c.Data.T, false, knownSubjects)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.InvalidCommit, fmt.Sprintf("commitchain: decode retract nodes at t=%d", c.Data.T), err)
		}

		newFlakes := make([]flake.Flake, 0, len(assertFlakes)+len(retractFlakes))
		for _, f := range assertFlakes {
			if n.Add(f) {
				newFlakes = append(newFlakes, f)
			}
		}
		for _, f := range retractFlakes {
			if n.Add(f) {
				newFlakes = append(newFlakes, f)
			}
		}
		schema = vocab.Hydrate(schema, opts.Codec, newFlakes, log)
		log.WithFields(logrus.Fields{"alias": alias, "t": c.Data.T, "commit": c.ID}).Debug("commitchain: replayed commit")
	}

	head := chain[0]
	return &Reified{Head: &head, Novelty: n, Schema: schema}, nil
}

// History resolves alias to its head commit and walks the `previous`
// chain back to genesis, verifying hash and t-contiguity exactly as
// Reify does, but returns the raw commits newest-first instead of
// replaying them into novelty. Used by read-only chain inspection
// (the commit log view) that has no need to reconstruct state.
func History(ctx context.Context, alias string, opts ReifyOptions) ([]Commit, error) {
	if opts.Store == nil || opts.Naming == nil {
		return nil, ferrors.New(ferrors.UnexpectedError, "commitchain: store and naming are required")
	}

	headAddr, err := opts.Naming.Resolve(ctx, alias)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.InvalidCommit, fmt.Sprintf("commitchain: resolve alias %q", alias), err)
	}

	var chain []Commit
	addr := headAddr
	for addr != "" {
		c, err := fetchCommit(ctx, opts.Store, addr)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.InvalidCommit, fmt.Sprintf("commitchain: fetch commit at %q", addr), err)
		}
		if err := verifyCommit(c, opts); err != nil {
			return nil, err
		}
		chain = append(chain, c)
		if c.Previous == nil {
			break
		}
		addr = c.Previous.Address
	}
	for i := 0; i < len(chain)-1; i++ {
		newer, older := chain[i], chain[i+1]
		if newer.Data.T != older.Data.T-1 {
			return nil, ferrors.New(ferrors.InvalidCommit, fmt.Sprintf(
				"commitchain: t-contiguity broken between %q (t=%d) and %q (t=%d)",
				newer.ID, newer.Data.T, older.ID, older.Data.T))
		}
	}
	return chain, nil
}

func fetchCommit(ctx context.Context, store storage.BlobStore, address string) (Commit, error) {
	raw, err := store.Read(ctx, address)
	if err != nil {
		return Commit{}, err
	}
	return unmarshalCommitWire(raw)
}

func verifyCommit(c Commit, opts ReifyOptions) error {
	gotID, err := CommitHash(c)
	if err != nil {
		return ferrors.Wrap(ferrors.UnexpectedError, "commitchain: hash commit for verification", err)
	}
	if gotID != c.ID {
		return ferrors.New(ferrors.InvalidCommit, fmt.Sprintf("commitchain: commit hash mismatch: have %q, computed %q", c.ID, gotID))
	}

	gotDataID, err := DataHash(c.Data)
	if err != nil {
		return ferrors.Wrap(ferrors.UnexpectedError, "commitchain: hash data payload for verification", err)
	}
	if gotDataID != c.Data.ID {
		return ferrors.New(ferrors.InvalidCommit, fmt.Sprintf("commitchain: data hash mismatch: have %q, computed %q", c.Data.ID, gotDataID))
	}

	if c.JWS != "" {
		if _, err := VerifyCommitJWS(c.JWS, c); err != nil {
			return ferrors.Wrap(ferrors.InvalidCommit, "commitchain: verify jws", err)
		}
	} else if opts.RequireSignature {
		return ferrors.New(ferrors.InvalidCommit, fmt.Sprintf("commitchain: commit %q is unsigned", c.ID))
	}
	return nil
}
