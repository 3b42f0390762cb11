package commitchain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/storage"
)

// WriteOptions carries the optional commit fields plus collaborators
// needed to package a staged diff into a chained commit, grounded on
// the ledger's applyBlock/snapshot pipeline: serialize, hash, persist,
// then advance the pointer.
type WriteOptions struct {
	Alias      string
	Branch     string
	Message    string
	Tag        []string
	Author     string
	Txn        string
	Annotation string
	Issuer     string
	Signer     Signer // optional; wraps the commit in a JWS envelope

	Store  storage.BlobStore
	Naming storage.NamingService
	Codec  *iri.Codec
	Clock  func() time.Time
}

// WriteCommit builds the data payload from assert/retract flakes,
// writes it to blob storage, builds the commit map from prev (nil for
// genesis), hashes and writes the commit, then advances the naming
// service. It returns the new Commit, which becomes `prev` for the next
// call.
func WriteCommit(ctx context.Context, prev *Commit, assert, retract []flake.Flake, newNamespaces []string, opts WriteOptions) (*Commit, error) {
	if opts.Store == nil || opts.Naming == nil || opts.Codec == nil {
		return nil, ferrors.New(ferrors.UnexpectedError, "commitchain: store, naming and codec are required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	assertNodes, err := FlakesToNodes(opts.Codec, assert)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.InvalidTransaction, "commitchain: render assert nodes", err)
	}
	retractNodes, err := FlakesToNodes(opts.Codec, retract)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.InvalidTransaction, "commitchain: render retract nodes", err)
	}

	t := int64(-1)
	var prevDataRef *Ref
	if prev != nil {
		t = prev.Data.T - 1
		prevDataRef = &Ref{ID: prev.Data.ID, Type: []string{"DB"}, Address: prev.Data.Address}
	}

	size := 0
	for _, f := range assert {
		size += f.Size()
	}
	for _, f := range retract {
		size += f.Size()
	}

	sortedNamespaces := append([]string(nil), newNamespaces...)
	sort.Strings(sortedNamespaces)

	data := Data{
		Type:       []string{"DB"},
		T:          t,
		V:          0,
		Previous:   prevDataRef,
		Assert:     assertNodes,
		Retract:    retractNodes,
		Namespaces: sortedNamespaces,
		Flakes:     len(assert) + len(retract),
		Size:       size,
	}
	dataID, err := DataHash(data)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: hash data payload", err)
	}
	data.ID = dataID

	dataBytes, err := Canonicalize(data)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: canonicalize data payload", err)
	}
	dataWrite, err := opts.Store.Write(ctx, "db", dataBytes, storage.WriteOptions{ContentAddress: true})
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: write data payload", err)
	}
	data.Address = dataWrite.Address

	commit := Commit{
		Context: contextURI,
		V:       0,
		Type:    []string{"Commit"},
		Alias:   opts.Alias,
		Branch:  opts.Branch,
		Time:    clock().UTC().Format(time.RFC3339),
		Tag:     opts.Tag,
		Message: opts.Message,
		Author:  opts.Author,
		Txn:     opts.Txn,
		Data:    data,
	}
	commit.Annotation = opts.Annotation
	if opts.Issuer != "" {
		commit.Issuer = &IDRef{ID: opts.Issuer}
	}
	if prev != nil {
		commit.Previous = &Ref{ID: prev.ID, Type: []string{"Commit"}, Address: prev.Address}
	}
	for _, ns := range sortedNamespaces {
		commit.NS = append(commit.NS, IDRef{ID: ns})
	}

	commitID, err := CommitHash(commit)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: hash commit", err)
	}
	commit.ID = commitID

	if opts.Signer != nil {
		jws, err := SignCommit(opts.Signer, commit)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: sign commit", err)
		}
		commit.JWS = jws
	}

	commitBytes, err := marshalCommitWire(commit)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: marshal commit envelope", err)
	}
	commitWrite, err := opts.Store.Write(ctx, "commit", commitBytes, storage.WriteOptions{ContentAddress: true})
	if err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, "commitchain: write commit", err)
	}
	commit.Address = commitWrite.Address

	if err := opts.Naming.Publish(ctx, opts.Alias, commit.Address); err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedError, fmt.Sprintf("commitchain: publish alias %q", opts.Alias), err)
	}

	return &commit, nil
}
