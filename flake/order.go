package flake

import (
	"fmt"

	"github.com/fluree/fluree-core/iri"
)

// Comparator orders two flakes for one of the four novelty access orders
// below.
type Comparator func(a, b Flake) int

func cmpSID(a, b iri.SID) int { return iri.Compare(a, b) }

func cmpObject(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	as, aIsSID := a.(iri.SID)
	bs, bIsSID := b.(iri.SID)
	if aIsSID && bIsSID {
		return cmpSID(as, bs)
	}
	af, bf := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// chain evaluates comparators in order, short-circuiting at the first
// non-zero result.
func chain(results ...int) int {
	for _, r := range results {
		if r != 0 {
			return r
		}
	}
	return 0
}

// CompareSPOT orders by (s, p, o, t desc, op).
func CompareSPOT(a, b Flake) int {
	return chain(
		cmpSID(a.S, b.S),
		cmpSID(a.P, b.P),
		cmpObject(a.O, b.O),
		cmpInt64(b.T, a.T),
		cmpBool(a.Op, b.Op),
	)
}

// ComparePOST orders by (p, o, s, t desc, op).
func ComparePOST(a, b Flake) int {
	return chain(
		cmpSID(a.P, b.P),
		cmpObject(a.O, b.O),
		cmpSID(a.S, b.S),
		cmpInt64(b.T, a.T),
		cmpBool(a.Op, b.Op),
	)
}

// CompareOPST orders by (o, p, s, t desc, op); only meaningful for
// reference flakes since object values are ordered as SIDs.
func CompareOPST(a, b Flake) int {
	return chain(
		cmpObject(a.O, b.O),
		cmpSID(a.P, b.P),
		cmpSID(a.S, b.S),
		cmpInt64(b.T, a.T),
		cmpBool(a.Op, b.Op),
	)
}

// CompareTSPO orders by (t desc, s, p, o, op).
func CompareTSPO(a, b Flake) int {
	return chain(
		cmpInt64(b.T, a.T),
		cmpSID(a.S, b.S),
		cmpSID(a.P, b.P),
		cmpObject(a.O, b.O),
		cmpBool(a.Op, b.Op),
	)
}
