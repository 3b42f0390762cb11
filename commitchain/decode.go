package commitchain

import (
	"fmt"
	"math"
	"sort"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

// NodesToFlakes is the inverse of FlakesToNodes: it walks a Data
// payload's assert/retract node array and synthesizes one flake per
// predicate value, allocating SIDs for any IRI the allocator's codec has
// not yet seen. Every produced flake carries t as given, and op as given
// except a synthesized IRI flake, which is always an assertion; callers
// emit assert nodes with op=true and retract nodes with op=false.
//
// knownSubjects tracks every subject that has already had its IRI flake
// emitted somewhere in the replay this call is part of (shared across
// every commit, not just this one): a commit's assert array re-lists a
// subject for each of its new property values, and an update-in-place
// commit re-lists a subject that an earlier commit already introduced,
// so NodesToFlakes only synthesizes a fresh IRI flake the first time a
// subject is seen across the whole chain, never again after.
func NodesToFlakes(alloc *iri.Allocator, nodes []map[string]any, t int64, op bool, knownSubjects map[iri.SID]bool) ([]flake.Flake, error) {
	var out []flake.Flake
	for _, node := range nodes {
		idVal, _ := node["@id"].(string)
		var s iri.SID
		if idVal != "" {
			s = alloc.Allocate(idVal)
		} else {
			s = alloc.AllocateBlank(false)
			idVal = alloc.Codec().MustDecode(s)
		}
		if !knownSubjects[s] {
			knownSubjects[s] = true
			out = append(out, flake.NewIRIFlake(s, idVal, t))
		}

		keys := make([]string, 0, len(node))
		for k := range node {
			if k == "@id" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p := alloc.Allocate(k)
			fs, err := valuesFromJSONLD(alloc, s, p, node[k], t, op)
			if err != nil {
				return nil, fmt.Errorf("commitchain: node %q predicate %q: %w", idVal, k, err)
			}
			out = append(out, fs...)
		}
	}
	return out, nil
}

// valuesFromJSONLD expands a single predicate's value -- a scalar, an
// {"@id"|"@value"} object, an {"@list"} object, or an array of any of
// those -- into one flake per value.
func valuesFromJSONLD(alloc *iri.Allocator, s, p iri.SID, v any, t int64, op bool) ([]flake.Flake, error) {
	if m, ok := v.(map[string]any); ok {
		if list, ok := m["@list"]; ok {
			items, ok := list.([]any)
			if !ok {
				return nil, fmt.Errorf("@list value is not an array")
			}
			out := make([]flake.Flake, 0, len(items))
			for i, item := range items {
				f, err := scalarOrRefFromJSONLD(alloc, s, p, item, t, op)
				if err != nil {
					return nil, err
				}
				if f.M == nil {
					f.M = flake.Meta{}
				}
				f.M["i"] = i
				out = append(out, f)
			}
			return out, nil
		}
		f, err := scalarOrRefFromJSONLD(alloc, s, p, m, t, op)
		if err != nil {
			return nil, err
		}
		return []flake.Flake{f}, nil
	}

	if arr, ok := v.([]any); ok {
		out := make([]flake.Flake, 0, len(arr))
		for _, item := range arr {
			f, err := scalarOrRefFromJSONLD(alloc, s, p, item, t, op)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	}

	f, err := scalarOrRefFromJSONLD(alloc, s, p, v, t, op)
	if err != nil {
		return nil, err
	}
	return []flake.Flake{f}, nil
}

// scalarOrRefFromJSONLD converts one JSON-LD value term into a flake:
// a {"@id": ...} map becomes a reference flake, a {"@value", "@language"}
// map becomes a language-tagged literal, and a bare scalar becomes a
// literal with an inferred xsd datatype.
func scalarOrRefFromJSONLD(alloc *iri.Allocator, s, p iri.SID, v any, t int64, op bool) (flake.Flake, error) {
	if m, ok := v.(map[string]any); ok {
		if idVal, ok := m["@id"].(string); ok {
			o := alloc.Allocate(idVal)
			return flake.Flake{S: s, P: p, O: o, Dt: iri.AnyURI, T: t, Op: op}, nil
		}
		if val, ok := m["@value"]; ok {
			dt := inferDatatype(val)
			f := flake.Flake{S: s, P: p, O: normalizeScalar(val, dt), Dt: dt, T: t, Op: op}
			if lang, ok := m["@language"].(string); ok {
				f.M = flake.Meta{"lang": lang}
			}
			return f, nil
		}
		return flake.Flake{}, fmt.Errorf("unsupported node value shape: %v", m)
	}
	dt := inferDatatype(v)
	return flake.Flake{S: s, P: p, O: normalizeScalar(v, dt), Dt: dt, T: t, Op: op}, nil
}

// inferDatatype assigns an xsd datatype to a bare JSON scalar. JSON has
// no int/float distinction, so a float64 with no fractional part is
// treated as xsd:integer and anything else as xsd:decimal.
func inferDatatype(v any) iri.SID {
	xsd := func(name string) iri.SID { return iri.SID{Namespace: iri.NamespaceXSD, Name: name} }
	switch vv := v.(type) {
	case string:
		return xsd("string")
	case bool:
		return xsd("boolean")
	case int, int64:
		return xsd("integer")
	case float64:
		if vv == math.Trunc(vv) && !math.IsInf(vv, 0) {
			return xsd("integer")
		}
		return xsd("decimal")
	default:
		return xsd("string")
	}
}

// normalizeScalar narrows a decoded JSON number to Go's int64 when its
// inferred datatype is xsd:integer, so novelty keys and comparisons see
// a stable concrete type regardless of whether the value arrived fresh
// from a transaction or round-tripped through JSON.
func normalizeScalar(v any, dt iri.SID) any {
	if dt.Name != "integer" {
		return v
	}
	switch vv := v.(type) {
	case float64:
		return int64(vv)
	case int:
		return int64(vv)
	default:
		return v
	}
}
