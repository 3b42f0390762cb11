package flake

import "fmt"

func fallbackFmt(v any) string { return fmt.Sprint(v) }

// header is the fixed per-flake overhead: two SID fields plus the
// datatype SID, the t/op fields, and bookkeeping slop. This estimate leaves
// the exact formula to the implementation ("fix a canonical size formula
// (sum of fixed header + object byte length)"); this mirrors the fixed
// struct-slot accounting a ledger uses for its own byte
// counters (core/storage.go StorageDeal/Escrow records are similarly
// sized as header + payload).
const header = 64

// Size returns the deterministic byte size of f: the fixed header plus
// the byte length of its object value and of its metadata. Sizes are additive across a
// novelty set ("Novelty size is equal to the sum of per-flake
// sizes").
func (f Flake) Size() int {
	return header + objectByteLen(f.O) + metaByteLen(f.M)
}

func objectByteLen(o any) int {
	switch v := o.(type) {
	case string:
		return len(v)
	case []byte:
		return len(v)
	case bool:
		return 1
	case int, int32, int64:
		return 8
	case float32, float64:
		return 8
	default:
		return len(fallbackFmt(v))
	}
}

func metaByteLen(m Meta) int {
	if len(m) == 0 {
		return 0
	}
	n := 0
	for k, v := range m {
		n += len(k) + len(fallbackFmt(v))
	}
	return n
}
