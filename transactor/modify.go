package transactor

import (
	"fmt"

	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// Binding maps a @where variable name (without its leading "?") to the
// term it resolved to: a string IRI, a blank-node identifier, or a Go
// scalar.
type Binding map[string]any

// WhereSolver resolves a @where clause into every solution it matches.
// The query engine that implements it is out of this package's scope;
// Stage only binds solutions to a @delete/@insert template.
type WhereSolver interface {
	Solve(where any) ([]Binding, error)
}

// stageModify binds doc's @where solutions into its @delete/@insert
// templates, emitting one retraction per bound @delete value and one
// assertion per bound @insert value, all sharing the transaction's t.
func stageModify(n *novelty.Novelty, doc map[string]any, alloc *iri.Allocator, schema *vocab.Schema, opts Options, t int64) ([]flake.Flake, error) {
	if opts.Solver == nil {
		return nil, ferrors.New(ferrors.InvalidTransaction, "transactor: modify transaction requires a where solver")
	}
	solutions, err := opts.Solver.Solve(doc["@where"])
	if err != nil {
		return nil, ferrors.Wrap(ferrors.InvalidTransaction, "transactor: solve @where clause", err)
	}

	deleteTemplates := templateNodes(doc["@delete"])
	insertTemplates := templateNodes(doc["@insert"])

	var out []flake.Flake
	for _, binding := range solutions {
		for _, tmpl := range deleteTemplates {
			fs, err := stageDelete(n, substituteVars(tmpl, binding), alloc, t)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
		ctx := &stageCtx{novelty: n, alloc: alloc, schema: schema, shapes: opts.Shapes, t: t, seen: make(map[iri.SID]bool)}
		for _, tmpl := range insertTemplates {
			fs, err := stageNode(ctx, substituteVars(tmpl, binding))
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
	}
	return out, nil
}

func templateNodes(v any) []map[string]any {
	switch vv := v.(type) {
	case map[string]any:
		return []map[string]any{vv}
	case []any:
		out := make([]map[string]any, 0, len(vv))
		for _, item := range vv {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}

// substituteVars deep-copies node, replacing every string value of the
// form "?name" with binding["name"]. Keys are never substituted: a
// template's predicate and @id positions that need to vary are bound
// through their *value*, matching the rest of this document's shape.
func substituteVars(node map[string]any, binding Binding) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		out[k] = substituteValue(v, binding)
	}
	return out
}

func substituteValue(v any, binding Binding) any {
	switch vv := v.(type) {
	case string:
		if name, ok := varName(vv); ok {
			if bound, ok := binding[name]; ok {
				return bound
			}
		}
		return vv
	case map[string]any:
		return substituteVars(vv, binding)
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = substituteValue(item, binding)
		}
		return out
	default:
		return v
	}
}

func varName(s string) (string, bool) {
	if len(s) > 1 && s[0] == '?' {
		return s[1:], true
	}
	return "", false
}

// stageDelete resolves a bound @delete template node -- whose subject
// must already exist -- into retraction flakes for each property value
// that matches a flake currently asserted in n.
func stageDelete(n *novelty.Novelty, node map[string]any, alloc *iri.Allocator, t int64) ([]flake.Flake, error) {
	idVal, ok := node["@id"].(string)
	if !ok || idVal == "" {
		return nil, ferrors.New(ferrors.InvalidTransaction, "transactor: @delete template node has no bound @id")
	}
	s := alloc.Allocate(idVal)

	var out []flake.Flake
	for _, key := range sortedKeys(node) {
		if key == "@id" || key == "@type" {
			continue
		}
		p := alloc.Allocate(key)
		for _, val := range flattenValues(node[key]) {
			f, ok := matchExisting(n, alloc, s, p, val)
			if !ok {
				continue
			}
			retraction := f
			retraction.T = t
			retraction.Op = false
			out = append(out, retraction)
		}
	}
	return out, nil
}

func flattenValues(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	return []any{v}
}

// matchExisting finds the currently-asserted flake on (s, p) whose
// object equals val, resolving a {"@id": ...} map to its SID first.
func matchExisting(n *novelty.Novelty, alloc *iri.Allocator, s, p iri.SID, val any) (flake.Flake, bool) {
	var want any
	if m, ok := val.(map[string]any); ok {
		if idVal, ok := m["@id"].(string); ok {
			want = alloc.Allocate(idVal)
		} else if raw, ok := m["@value"]; ok {
			want = raw
		}
	} else {
		want = val
	}
	for _, f := range n.BySubjectPredicate(s, p) {
		if !f.Op {
			continue
		}
		if fmt.Sprint(f.O) == fmt.Sprint(want) {
			return f, true
		}
	}
	return flake.Flake{}, false
}
