// Package iri implements the subject-identifier allocator: bidirectional
// IRI <-> compact subject-id (SID) mapping backed by a namespace table,
// grounded on the namespace/address bookkeeping pattern common to
// core/address_zero.go and core/common_structs.go (small integer-coded
// identifiers guarded by a mutex-protected table).
package iri

import "fmt"

// SID is a compact namespace-coded identifier for an IRI. Namespace codes
// 0-100 are reserved for the default vocabulary; user namespaces start at
// FirstUserNamespace. SIDs are totally ordered first by Namespace then by
// Name.
type SID struct {
	Namespace int
	Name      string
}

// FirstUserNamespace is the first namespace code available for IRIs seen
// at runtime.
const FirstUserNamespace = 101

// Reserved default namespace codes.
const (
	NamespaceXSD          = 0
	NamespaceRDF          = 1
	NamespaceRDFS         = 2
	NamespaceSHACL        = 3
	NamespaceOWL          = 4
	NamespaceFlureeCommit = 5
	NamespaceFlureeDB     = 6
	NamespaceBlankNode    = 7
	NamespaceFlureePolicy = 8
)

// defaultNamespaces seeds the namespace table shipped with every commit.
var defaultNamespaces = map[int]string{
	NamespaceXSD:          "http://www.w3.org/2001/XMLSchema#",
	NamespaceRDF:          "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	NamespaceRDFS:         "http://www.w3.org/2000/01/rdf-schema#",
	NamespaceSHACL:        "http://www.w3.org/ns/shacl#",
	NamespaceOWL:          "http://www.w3.org/2002/07/owl#",
	NamespaceFlureeCommit: "fluree:commit:sha256:",
	NamespaceFlureeDB:     "fluree:db:sha256:",
	NamespaceBlankNode:    "_:",
	NamespaceFlureePolicy: "https://ns.flur.ee/policy#",
}

// Sentinel datatype SID marking an object value as a reference (a SID
// encoded in the object position rather than a literal).
var AnyURI = SID{Namespace: NamespaceXSD, Name: "anyURI"}

// Compare orders SIDs first by Namespace then by Name, establishing the
// total order flakes rely on for sorted-set novelty indexes.
func Compare(a, b SID) int {
	if a.Namespace != b.Namespace {
		if a.Namespace < b.Namespace {
			return -1
		}
		return 1
	}
	if a.Name == b.Name {
		return 0
	}
	if a.Name < b.Name {
		return -1
	}
	return 1
}

// Less reports whether a sorts before b.
func Less(a, b SID) bool { return Compare(a, b) < 0 }

func (s SID) String() string {
	return fmt.Sprintf("%d/%s", s.Namespace, s.Name)
}

// IsBlank reports whether s identifies a blank node.
func (s SID) IsBlank() bool { return s.Namespace == NamespaceBlankNode }
