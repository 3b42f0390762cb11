// Package dbledger wires the flake, novelty, commit-chain, transactor,
// SHACL and policy packages into the top-level stage/commit!/load
// entry points a ledger branch exposes, mirroring the role
// core.Ledger/core.NewLedger/core.OpenLedger play for a WAL-backed
// chain: Open replays persisted state, Stage applies one transaction
// pipeline pass (synthesize, validate, authorize, rehydrate schema),
// and Commit packages the accumulated diff into a chained commit and
// advances the naming service.
package dbledger

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fluree/fluree-core/commitchain"
	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/policy"
	"github.com/fluree/fluree-core/shacl"
	"github.com/fluree/fluree-core/storage"
	"github.com/fluree/fluree-core/transactor"
	"github.com/fluree/fluree-core/vocab"
)

// Options carries the collaborators a ledger branch needs for its
// entire lifetime: storage, naming, the process-wide IRI codec, and
// the ambient logger/clock/fuel meter.
type Options struct {
	Store  storage.BlobStore
	Naming storage.NamingService
	Codec  *iri.Codec
	Clock  func() time.Time
	Log    *logrus.Logger
	Fuel   *FuelMeter

	// RequireSignature rejects any commit in the reified chain that
	// lacks a JWS envelope.
	RequireSignature bool
}

// DB is one ledger branch's in-memory state: the accumulated novelty
// overlay (committed history plus anything staged but not yet
// committed), the schema rehydrated from it, and the pointer needed to
// package the next commit.
type DB struct {
	Alias  string
	Branch string

	Novelty *novelty.Novelty
	Schema  *vocab.Schema
	Shapes  *shacl.Cache

	Head *commitchain.Commit // nil until the first commit

	Store  storage.BlobStore
	Naming storage.NamingService
	Codec  *iri.Codec
	Clock  func() time.Time
	Log    *logrus.Logger
	Fuel   *FuelMeter

	RequireSignature bool

	// committedT is Head's t, or 0 before any commit has been written.
	// Stage passes it through as transactor.Options.CommittedT so a
	// retraction of a still-uncommitted assertion cancels it outright.
	committedT int64

	// namespacesAtBaseline snapshots the codec's namespace table as of
	// Open/the last Commit, so Commit can report only the prefixes
	// introduced by the flakes it is about to write.
	namespacesAtBaseline map[int]string
}

// Open resolves alias's head commit via the naming service and
// replays its chain into a fresh DB. An alias with no published commit
// yet is not an error: Open returns an empty DB ready for its first
// Stage/Commit, the same way core.NewLedger treats a missing WAL as a
// fresh ledger rather than a failure.
func Open(ctx context.Context, alias, branch string, opts Options) (*DB, error) {
	if opts.Store == nil || opts.Naming == nil || opts.Codec == nil {
		return nil, ferrors.New(ferrors.UnexpectedError, "dbledger: store, naming and codec are required")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	db := &DB{
		Alias:            alias,
		Branch:           branch,
		Store:            opts.Store,
		Naming:           opts.Naming,
		Codec:            opts.Codec,
		Clock:            opts.Clock,
		Log:              log,
		Fuel:             opts.Fuel,
		RequireSignature: opts.RequireSignature,
	}

	if _, err := opts.Naming.Resolve(ctx, alias); err != nil {
		log.WithFields(logrus.Fields{"alias": alias}).Debug("dbledger: no published commit yet, starting a new ledger")
		db.Novelty = novelty.New()
		db.Schema = vocab.Empty()
		db.Shapes = shacl.NewCache(db.Novelty)
		db.namespacesAtBaseline = opts.Codec.Namespaces()
		return db, nil
	}

	reified, err := commitchain.Reify(ctx, alias, commitchain.ReifyOptions{
		Store:            opts.Store,
		Naming:           opts.Naming,
		Codec:            opts.Codec,
		Log:              log,
		RequireSignature: opts.RequireSignature,
	})
	if err != nil {
		return nil, err
	}

	db.Novelty = reified.Novelty
	db.Schema = reified.Schema
	db.Shapes = shacl.NewCache(db.Novelty)
	db.Head = reified.Head
	db.committedT = reified.Head.Data.T
	db.namespacesAtBaseline = opts.Codec.Namespaces()
	return db, nil
}

// StageOptions carries the per-transaction collaborators Stage needs
// beyond what the DB already holds.
type StageOptions struct {
	// Solver resolves a @where clause for a modify transaction; required
	// only when staging one.
	Solver transactor.WhereSolver
	Author string

	// Policy, when set, rejects the whole transaction if any flake it
	// produces fails the compiled modify policy.
	Policy *policy.Enforcer
}

// Stage runs the full write-path pipeline against db.Novelty: expand
// and synthesize flakes, validate every focus node in the overlay (not
// only the subjects this transaction modified) against every
// discovered SHACL shape, run the write policy if one is configured,
// then rehydrate the schema with any vocabulary flakes produced. A
// failure at any step leaves db.Novelty exactly as it was before the
// call -- the newly staged flakes are rolled back rather than left
// dangling, matching the "no partial commit" guarantee extended one
// step earlier to staging.
func (db *DB) Stage(doc map[string]any, opts StageOptions) (*transactor.Result, error) {
	res, err := transactor.Stage(db.Novelty, doc, transactor.Options{
		Codec:      db.Codec,
		Schema:     db.Schema,
		Shapes:     db.Shapes,
		Clock:      db.Clock,
		Solver:     opts.Solver,
		Author:     opts.Author,
		CommittedT: db.committedT,
	})
	if err != nil {
		return nil, err
	}

	for _, f := range res.Flakes {
		if shacl.AffectsShapes(f) {
			db.Shapes.Invalidate()
			break
		}
	}

	if report := shacl.NewValidator(db.Novelty, db.Schema).ValidateAll(); !report.Conforms() {
		db.rollback(res.Flakes)
		return nil, ferrors.New(ferrors.SHACLViolation, "dbledger: staged transaction violates a SHACL shape").WithDetails(report)
	}

	if opts.Policy != nil {
		if err := opts.Policy.CheckWrite(db.Novelty, res.Flakes); err != nil {
			db.rollback(res.Flakes)
			return nil, err
		}
	}

	db.Schema = vocab.Hydrate(db.Schema, db.Codec, res.Flakes, db.Log)

	if db.Fuel != nil {
		if err := db.Fuel.Spend(int64(len(res.Flakes))); err != nil {
			db.rollback(res.Flakes)
			return nil, err
		}
	}

	return res, nil
}

// rollback undoes exactly the flakes a failed Stage call added to
// db.Novelty. Every one of them carries the t this call just assigned
// (one step past the last commit), so cancelling them outright -- not
// flipping a retraction -- is always correct: nothing else in the
// overlay depends on a flake db.Novelty has never reported staged.
func (db *DB) rollback(added []flake.Flake) {
	for _, f := range added {
		db.Novelty.Cancel(f)
	}
}

// CommitOptions carries the commit map fields a caller may set; Store,
// Naming and Codec always come from the DB itself.
type CommitOptions struct {
	Message    string
	Tag        []string
	Author     string
	Txn        string
	Annotation string
	Issuer     string
	Signer     commitchain.Signer
}

// Commit packages every flake staged since the last commit -- those
// whose t equals committedT-1, the single step Stage just advanced
// to -- into a chained commit, writes it to blob storage, and advances
// the naming service. It rejects a DB with nothing new to commit, and
// a DB staged more than one step past its last commit (multiple Stage
// calls queued without an intervening Commit): each must be committed
// in turn so every written commit's t is exactly one less than its
// predecessor's.
func (db *DB) Commit(ctx context.Context, opts CommitOptions) (*commitchain.Commit, error) {
	newT := db.committedT - 1
	assert, retract := splitStaged(db.Novelty, newT)
	if len(assert) == 0 && len(retract) == 0 {
		return nil, ferrors.New(ferrors.InvalidTransaction, "dbledger: nothing staged to commit")
	}
	for _, f := range db.Novelty.TSPO() {
		if f.T < newT {
			return nil, ferrors.New(ferrors.InvalidTransaction, "dbledger: more than one Stage pending since the last commit")
		}
	}

	commit, err := commitchain.WriteCommit(ctx, db.Head, assert, retract, db.newNamespacesSince(), commitchain.WriteOptions{
		Alias:      db.Alias,
		Branch:     db.Branch,
		Message:    opts.Message,
		Tag:        opts.Tag,
		Author:     opts.Author,
		Txn:        opts.Txn,
		Annotation: opts.Annotation,
		Issuer:     opts.Issuer,
		Signer:     opts.Signer,
		Store:      db.Store,
		Naming:     db.Naming,
		Codec:      db.Codec,
		Clock:      db.Clock,
	})
	if err != nil {
		return nil, err
	}

	db.Head = commit
	db.committedT = commit.Data.T
	db.namespacesAtBaseline = db.Codec.Namespaces()
	return commit, nil
}

// splitStaged partitions every flake in n whose t equals newT into
// assertions and retractions, the shape commitchain.WriteCommit wants.
func splitStaged(n *novelty.Novelty, newT int64) (assert, retract []flake.Flake) {
	for _, f := range n.TSPO() {
		if f.T != newT {
			continue
		}
		if f.Op {
			assert = append(assert, f)
		} else {
			retract = append(retract, f)
		}
	}
	return assert, retract
}

// newNamespacesSince diffs the codec's current namespace table against
// the baseline captured at Open/the last Commit, returning the
// prefixes introduced since then in a deterministic order.
func (db *DB) newNamespacesSince() []string {
	current := db.Codec.Namespaces()
	var out []string
	for code, prefix := range current {
		if _, known := db.namespacesAtBaseline[code]; !known {
			out = append(out, prefix)
		}
	}
	sort.Strings(out)
	return out
}
