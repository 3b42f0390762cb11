// Package commitchain implements the commit map data model, its
// canonical hashing, the commit writer, and the chain-reification
// loader that replays commits back into flakes.
//
// The write/read pipeline is grounded on a WAL-backed ledger
// in core/ledger.go: NewLedger/OpenLedger replay a log of blocks to
// reconstruct state the same way Reify replays a chain of commits, and
// applyBlock's height/hash bookkeeping is the model for this package's
// t-contiguity and hash-mismatch checks.
package commitchain

// Ref is a content-addressed pointer embedded in a commit or data
// document: {id, type, address}.
type Ref struct {
	ID      string   `json:"id"`
	Type    []string `json:"type,omitempty"`
	Address string   `json:"address,omitempty"`
}

// IDRef is a bare {id} reference, used for `issuer` and `ns` entries.
type IDRef struct {
	ID string `json:"id"`
}

// Data is the DB payload JSON-LD document referenced by a commit's
// `data` field: the assert/retract diff plus bookkeeping (t, size,
// flake count, new namespaces) for a single transaction.
type Data struct {
	Context    any              `json:"@context,omitempty"`
	ID         string           `json:"id"`
	Type       []string         `json:"type"`
	T          int64            `json:"t"`
	V          int              `json:"v"`
	Address    string           `json:"address,omitempty"`
	Previous   *Ref             `json:"previous,omitempty"`
	Assert     []map[string]any `json:"assert"`
	Retract    []map[string]any `json:"retract"`
	Namespaces []string         `json:"namespaces,omitempty"`
	Flakes     int              `json:"flakes"`
	Size       int              `json:"size"`
}

// IndexData points at an index snapshot rather than a transaction diff;
// it carries only the snapshot's ID and Address.
type IndexData struct {
	ID      string `json:"id"`
	Address string `json:"address,omitempty"`
}

// Index describes the optional async-indexing pointer attached to a
// commit once indexing has completed through some t.
type Index struct {
	ID      string    `json:"id"`
	Type    []string  `json:"type,omitempty"`
	Address string    `json:"address,omitempty"`
	Data    IndexData `json:"data"`
}

// Commit is the canonical in-memory representation of a commit map:
// the signed, content-addressed, chain-linked envelope around a Data
// payload that anchors one transaction in a ledger's history.
type Commit struct {
	Context    string   `json:"@context"`
	ID         string   `json:"id"`
	V          int      `json:"v"`
	Address    string   `json:"address,omitempty"`
	Type       []string `json:"type"`
	Alias      string   `json:"alias"`
	Branch     string   `json:"branch"`
	Time       string   `json:"time"`
	Tag        []string `json:"tag,omitempty"`
	Message    string   `json:"message,omitempty"`
	Author     string   `json:"author,omitempty"`
	Txn        string   `json:"txn,omitempty"`
	Annotation string   `json:"annotation,omitempty"`
	Issuer     *IDRef   `json:"issuer,omitempty"`
	Previous   *Ref     `json:"previous,omitempty"`
	Data       Data     `json:"data"`
	NS         []IDRef  `json:"ns,omitempty"`
	Index      *Index   `json:"index,omitempty"`

	// JWS holds the verifiable-credential envelope when the commit was
	// signed; empty for unsigned commits.
	JWS string `json:"-"`
}

const (
	contextURI = "https://ns.flur.ee/ledger/v1"
	commitHashScheme = "fluree:commit:sha256:b"
	dataHashScheme   = "fluree:db:sha256:b"
)
