// Package novelty implements the in-memory sorted-set overlays that hold
// flakes added since the last persisted index. Four access
// orders are maintained -- SPOT, POST, OPST (reference flakes only) and
// TSPO -- mirroring an in-memory state map kept alongside a persisted log
// (Ledger.State) but kept as ordered slices so range scans over any of
// the four orders are a binary search plus a linear walk.
package novelty

import (
	"sort"
	"sync"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

// Set is one sorted-set overlay under a single comparator.
type set struct {
	cmp    flake.Comparator
	flakes []flake.Flake
}

func (s *set) insert(f flake.Flake) {
	i := sort.Search(len(s.flakes), func(i int) bool { return s.cmp(s.flakes[i], f) >= 0 })
	s.flakes = append(s.flakes, flake.Flake{})
	copy(s.flakes[i+1:], s.flakes[i:])
	s.flakes[i] = f
}

func (s *set) remove(key flake.Key) bool {
	for i, f := range s.flakes {
		if f.Key() == key {
			s.flakes = append(s.flakes[:i], s.flakes[i+1:]...)
			return true
		}
	}
	return false
}

func (s *set) all() []flake.Flake {
	out := make([]flake.Flake, len(s.flakes))
	copy(out, s.flakes)
	return out
}

// Novelty holds the four ordered overlays plus running size/t bookkeeping
// for a staged or loaded DB. It is owned by exactly one staged-DB value
// at a time, but guards its own mutex so
// concurrent readers (policy filtering, SHACL target scans) never race
// with a concurrent Add during the same staging pass.
type Novelty struct {
	mu sync.RWMutex

	spot *set
	post *set
	opst *set
	tspo *set

	byKey map[flake.Key]flake.Flake

	size int
	t    int64 // most recent transaction epoch represented in this overlay
}

// New returns an empty Novelty overlay.
func New() *Novelty {
	return &Novelty{
		spot:  &set{cmp: flake.CompareSPOT},
		post:  &set{cmp: flake.ComparePOST},
		opst:  &set{cmp: flake.CompareOPST},
		tspo:  &set{cmp: flake.CompareTSPO},
		byKey: make(map[flake.Key]flake.Flake),
	}
}

// Add inserts f into all applicable orders (OPST only receives reference
// flakes) and updates running size/t. Returns false if the flake's
// (s,p,o,t,op) key is already present, enforcing the
// uniqueness invariant.
func (n *Novelty) Add(f flake.Flake) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := f.Key()
	if _, exists := n.byKey[key]; exists {
		return false
	}
	n.byKey[key] = f
	n.spot.insert(f)
	n.post.insert(f)
	if f.IsRef() {
		n.opst.insert(f)
	}
	n.tspo.insert(f)
	n.size += f.Size()
	if f.T < n.t || n.t == 0 {
		n.t = f.T
	}
	return true
}

// Cancel removes a previously staged flake entirely (rather than adding a
// flipped retraction), used when re-staging a DB whose new retraction
// would simply cancel a not-yet-committed assertion ("staged
// DB construction").
func (n *Novelty) Cancel(f flake.Flake) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := f.Key()
	if _, ok := n.byKey[key]; !ok {
		return false
	}
	delete(n.byKey, key)
	n.spot.remove(key)
	n.post.remove(key)
	if f.IsRef() {
		n.opst.remove(key)
	}
	n.tspo.remove(key)
	n.size -= f.Size()
	if f.T == n.t {
		n.t = 0
		for _, g := range n.byKey {
			if g.T < n.t || n.t == 0 {
				n.t = g.T
			}
		}
	}
	return true
}

// Has reports whether a flake with the given key is present.
func (n *Novelty) Has(key flake.Key) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.byKey[key]
	return ok
}

// Size returns the running byte size of every flake currently held.
func (n *Novelty) Size() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.size
}

// T returns the most negative (i.e. most recent) transaction epoch
// represented in the overlay, or 0 if empty.
func (n *Novelty) T() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.t
}

// SPOT returns a snapshot of the subject-first order.
func (n *Novelty) SPOT() []flake.Flake { n.mu.RLock(); defer n.mu.RUnlock(); return n.spot.all() }

// POST returns a snapshot of the predicate-first order.
func (n *Novelty) POST() []flake.Flake { n.mu.RLock(); defer n.mu.RUnlock(); return n.post.all() }

// OPST returns a snapshot of the object-first order (reference flakes only).
func (n *Novelty) OPST() []flake.Flake { n.mu.RLock(); defer n.mu.RUnlock(); return n.opst.all() }

// TSPO returns a snapshot of the transaction-first order.
func (n *Novelty) TSPO() []flake.Flake { n.mu.RLock(); defer n.mu.RUnlock(); return n.tspo.all() }

// All returns every flake currently held, in SPOT order.
func (n *Novelty) All() []flake.Flake { return n.SPOT() }

// BySubject returns every flake for subject s, scanning the SPOT overlay
// (already sorted subject-first so matches are contiguous).
func (n *Novelty) BySubject(s iri.SID) []flake.Flake {
	n.mu.RLock()
	defer n.mu.RUnlock()
	lo := sort.Search(len(n.spot.flakes), func(i int) bool {
		return iri.Compare(n.spot.flakes[i].S, s) >= 0
	})
	var out []flake.Flake
	for i := lo; i < len(n.spot.flakes) && n.spot.flakes[i].S == s; i++ {
		out = append(out, n.spot.flakes[i])
	}
	return out
}

// BySubjectPredicate returns every flake for (s,p), used when staging
// retracts a predicate's prior values.
func (n *Novelty) BySubjectPredicate(s, p iri.SID) []flake.Flake {
	var out []flake.Flake
	for _, f := range n.BySubject(s) {
		if f.P == p {
			out = append(out, f)
		}
	}
	return out
}

// ByObject returns every reference flake pointing at o, scanning the
// OPST overlay (object-first, so matches are contiguous). Used for
// inverse-path traversal in shape validation.
func (n *Novelty) ByObject(o iri.SID) []flake.Flake {
	n.mu.RLock()
	defer n.mu.RUnlock()
	lo := sort.Search(len(n.opst.flakes), func(i int) bool {
		return iri.Compare(n.opst.flakes[i].O.(iri.SID), o) >= 0
	})
	var out []flake.Flake
	for i := lo; i < len(n.opst.flakes); i++ {
		if n.opst.flakes[i].O.(iri.SID) != o {
			break
		}
		out = append(out, n.opst.flakes[i])
	}
	return out
}

// ByObjectPredicate returns every flake (s, p, o) with o == target and
// predicate == p, used to walk an inverse path segment backward from a
// value node to the subjects that reference it.
func (n *Novelty) ByObjectPredicate(o, p iri.SID) []flake.Flake {
	var out []flake.Flake
	for _, f := range n.ByObject(o) {
		if f.P == p {
			out = append(out, f)
		}
	}
	return out
}
