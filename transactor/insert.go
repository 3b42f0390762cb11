package transactor

import (
	"fmt"
	"math"

	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/shacl"
	"github.com/fluree/fluree-core/vocab"
)

// schemaTypeIRIs names the types that put a blank node in the
// property range rather than the default individual range.
var schemaTypeIRIs = map[string]bool{
	"http://www.w3.org/2000/01/rdf-schema#Class":          true,
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#Property": true,
	"http://www.w3.org/ns/shacl#NodeShape":                true,
	"http://www.w3.org/ns/shacl#PropertyShape":            true,
}

// stageCtx bundles the collaborators threaded through every recursive
// call of one insert's node walk, so adding a new dependency doesn't
// mean touching every function signature in the chain.
type stageCtx struct {
	novelty *novelty.Novelty
	alloc   *iri.Allocator
	schema  *vocab.Schema
	shapes  *shacl.Cache
	t       int64
	seen    map[iri.SID]bool
}

// stageInsert walks doc -- a single top-level node, or a document whose
// "@graph" key holds an array of nodes -- and recursively synthesizes
// flakes for it.
func stageInsert(n *novelty.Novelty, doc map[string]any, alloc *iri.Allocator, schema *vocab.Schema, shapes *shacl.Cache, t int64) ([]flake.Flake, error) {
	nodes, err := topLevelNodes(doc)
	if err != nil {
		return nil, err
	}
	ctx := &stageCtx{novelty: n, alloc: alloc, schema: schema, shapes: shapes, t: t, seen: make(map[iri.SID]bool)}
	var out []flake.Flake
	for _, node := range nodes {
		fs, err := stageNode(ctx, node)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

func topLevelNodes(doc map[string]any) ([]map[string]any, error) {
	if graph, ok := doc["@graph"]; ok {
		arr, ok := graph.([]any)
		if !ok {
			return nil, ferrors.New(ferrors.InvalidTransaction, "transactor: @graph value is not an array")
		}
		nodes := make([]map[string]any, 0, len(arr))
		for _, item := range arr {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, ferrors.New(ferrors.InvalidTransaction, "transactor: @graph entry is not a node")
			}
			nodes = append(nodes, m)
		}
		return nodes, nil
	}
	return []map[string]any{doc}, nil
}

// knowsSubject reports whether s already has flakes -- either staged
// earlier in this same call (ctx.seen) or already asserted in novelty
// from a prior, already-committed-or-staged transaction. Re-staging an
// existing subject (an update-in-place) must not re-emit its IRI/type
// flakes: only knowsSubject, not ctx.seen alone, decides that.
func (ctx *stageCtx) knowsSubject(s iri.SID) bool {
	if ctx.seen[s] {
		return true
	}
	return len(ctx.novelty.BySubjectPredicate(s, flake.AnyURIPredicate)) > 0
}

// stageNode recursively synthesizes the IRI flake, rdf:type flakes and
// property-value flakes for one JSON-LD node, returning every flake
// produced for it and its nested node values. knowsSubject guards
// against re-emitting a subject's IRI/type flakes if it is referenced
// from more than one place in the same document, or if it already
// exists in novelty from an earlier transaction.
func stageNode(ctx *stageCtx, node map[string]any) ([]flake.Flake, error) {
	idVal, hasID := node["@id"].(string)
	typeStrs := typeIRIs(node)

	if len(node) == 0 || (hasID && len(node) == 1) {
		return nil, ferrors.New(ferrors.InvalidTransaction, "transactor: node has no properties")
	}

	var s iri.SID
	if hasID {
		s = ctx.alloc.Allocate(idVal)
	} else {
		s = ctx.alloc.AllocateBlank(isSchemaNode(typeStrs))
		idVal = ctx.alloc.Codec().MustDecode(s)
	}

	classes := make([]iri.SID, 0, len(typeStrs))
	var out []flake.Flake
	if !ctx.knowsSubject(s) {
		ctx.seen[s] = true
		out = append(out, flake.NewIRIFlake(s, idVal, ctx.t))
		for _, typeIRI := range typeStrs {
			classSID := ctx.alloc.Allocate(typeIRI)
			classes = append(classes, classSID)
			out = append(out, flake.Flake{S: s, P: vocab.RDFType, O: classSID, Dt: iri.AnyURI, T: ctx.t, Op: true})
		}
	}
	for _, f := range ctx.novelty.BySubjectPredicate(s, vocab.RDFType) {
		if sid, ok := f.ORef(); ok {
			classes = append(classes, sid)
		}
	}

	for _, key := range sortedKeys(node) {
		if key == "@id" || key == "@type" {
			continue
		}
		p := ctx.alloc.Allocate(key)
		fs, err := stageValue(ctx, s, p, classes, node[key])
		if err != nil {
			return nil, fmt.Errorf("transactor: node %q predicate %q: %w", idVal, key, err)
		}
		out = append(out, retractPriorValues(ctx.novelty, s, p, ctx.t)...)
		out = append(out, fs...)
	}
	return out, nil
}

func typeIRIs(node map[string]any) []string {
	switch v := node["@type"].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func isSchemaNode(types []string) bool {
	for _, t := range types {
		if schemaTypeIRIs[t] {
			return true
		}
	}
	return false
}

// retractPriorValues emits flipped retraction flakes for every value the
// predicate already holds for s.
func retractPriorValues(n *novelty.Novelty, s, p iri.SID, t int64) []flake.Flake {
	prior := n.BySubjectPredicate(s, p)
	if len(prior) == 0 {
		return nil
	}
	out := make([]flake.Flake, 0, len(prior))
	for _, f := range prior {
		if !f.Op {
			continue
		}
		retraction := f
		retraction.T = t
		retraction.Op = false
		out = append(out, retraction)
	}
	return out
}

// stageValue expands a single predicate's JSON-LD value -- a nested
// node, a node reference, a scalar, a language-tagged literal, an
// @list, or an array of any of those -- into flakes, coercing to a
// SHACL-declared datatype where one is known for (subject's classes, p).
func stageValue(ctx *stageCtx, s, p iri.SID, classes []iri.SID, v any) ([]flake.Flake, error) {
	if m, ok := v.(map[string]any); ok {
		if list, ok := m["@list"]; ok {
			items, ok := list.([]any)
			if !ok {
				return nil, ferrors.New(ferrors.InvalidTransaction, "@list value is not an array")
			}
			var out []flake.Flake
			for i, item := range items {
				f, nested, err := scalarOrNode(ctx, s, p, classes, item)
				if err != nil {
					return nil, err
				}
				if f.M == nil {
					f.M = flake.Meta{}
				}
				f.M["i"] = i
				out = append(out, f)
				out = append(out, nested...)
			}
			return out, nil
		}
		f, nested, err := scalarOrNode(ctx, s, p, classes, m)
		if err != nil {
			return nil, err
		}
		return append([]flake.Flake{f}, nested...), nil
	}

	if arr, ok := v.([]any); ok {
		var out []flake.Flake
		for _, item := range arr {
			f, nested, err := scalarOrNode(ctx, s, p, classes, item)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
			out = append(out, nested...)
		}
		return out, nil
	}

	f, nested, err := scalarOrNode(ctx, s, p, classes, v)
	if err != nil {
		return nil, err
	}
	return append([]flake.Flake{f}, nested...), nil
}

// scalarOrNode converts one value term. A map with "@id" or other
// properties is a nested node reference: it recurses via stageNode and
// returns a reference flake plus whatever flakes the nested node itself
// produced. Anything else is a literal, datatype-coerced against the
// shape cache when sh:datatype is declared for this (class, p) pair.
func scalarOrNode(ctx *stageCtx, s, p iri.SID, classes []iri.SID, v any) (flake.Flake, []flake.Flake, error) {
	if m, ok := v.(map[string]any); ok {
		if _, hasID := m["@id"]; hasID || len(m) > 1 || (len(m) == 1 && !hasLiteralKeys(m)) {
			nested, err := stageNode(ctx, m)
			if err != nil {
				return flake.Flake{}, nil, err
			}
			oVal, _ := m["@id"].(string)
			var o iri.SID
			if oVal != "" {
				o = ctx.alloc.Allocate(oVal)
			} else if len(nested) > 0 {
				o = nested[0].S
			}
			return flake.Flake{S: s, P: p, O: o, Dt: iri.AnyURI, T: ctx.t, Op: true}, nested, nil
		}
		if val, ok := m["@value"]; ok {
			dt := coerceDatatype(ctx.novelty, s, p, classes, val, ctx.schema, ctx.shapes)
			f := flake.Flake{S: s, P: p, O: normalizeScalar(val, dt), Dt: dt, T: ctx.t, Op: true}
			if lang, ok := m["@language"].(string); ok {
				f.M = flake.Meta{"lang": lang}
			}
			return f, nil, nil
		}
		return flake.Flake{}, nil, ferrors.New(ferrors.InvalidTransaction, fmt.Sprintf("unsupported value shape: %v", m))
	}
	dt := coerceDatatype(ctx.novelty, s, p, classes, v, ctx.schema, ctx.shapes)
	return flake.Flake{S: s, P: p, O: normalizeScalar(v, dt), Dt: dt, T: ctx.t, Op: true}, nil, nil
}

func hasLiteralKeys(m map[string]any) bool {
	_, hasValue := m["@value"]
	return hasValue
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
