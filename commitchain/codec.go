package commitchain

import (
	"fmt"
	"sort"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
)

// FlakesToNodes groups flakes by subject into the `assert`/`retract`
// JSON-LD node shape used in a Data payload: one map per subject with
// `@id` plus one entry per predicate (a scalar, an `{"@id": ...}` node
// reference, or an array of either when the predicate is multi-valued).
func FlakesToNodes(codec *iri.Codec, flakes []flake.Flake) ([]map[string]any, error) {
	bySubject := make(map[iri.SID][]flake.Flake)
	var order []iri.SID
	for _, f := range flakes {
		if _, ok := bySubject[f.S]; !ok {
			order = append(order, f.S)
		}
		bySubject[f.S] = append(bySubject[f.S], f)
	}
	sort.Slice(order, func(i, j int) bool { return iri.Compare(order[i], order[j]) < 0 })

	nodes := make([]map[string]any, 0, len(order))
	for _, s := range order {
		subjectIRI, err := codec.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("commitchain: decode subject %v: %w", s, err)
		}
		node := map[string]any{"@id": subjectIRI}
		byPred := make(map[string][]flake.Flake)
		var predOrder []string
		for _, f := range bySubject[s] {
			if f.IsIRIFlake() {
				continue // the node's own @id already carries this
			}
			predIRI, err := codec.Decode(f.P)
			if err != nil {
				return nil, fmt.Errorf("commitchain: decode predicate %v: %w", f.P, err)
			}
			if _, ok := byPred[predIRI]; !ok {
				predOrder = append(predOrder, predIRI)
			}
			byPred[predIRI] = append(byPred[predIRI], f)
		}
		sort.Strings(predOrder)
		for _, p := range predOrder {
			val, err := valuesToJSONLD(codec, byPred[p])
			if err != nil {
				return nil, err
			}
			node[p] = val
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func valuesToJSONLD(codec *iri.Codec, fs []flake.Flake) (any, error) {
	// RDF-list preservation: if every flake carries a list index, render
	// as {"@list": [...]} in index order.
	if allHaveListIndex(fs) {
		sort.Slice(fs, func(i, j int) bool {
			ii, _ := fs[i].M.ListIndex()
			jj, _ := fs[j].M.ListIndex()
			return ii < jj
		})
		items := make([]any, len(fs))
		for i, f := range fs {
			v, err := scalarOrRef(codec, f)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return map[string]any{"@list": items}, nil
	}

	values := make([]any, 0, len(fs))
	for _, f := range fs {
		v, err := scalarOrRef(codec, f)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if len(values) == 1 {
		return values[0], nil
	}
	return values, nil
}

func allHaveListIndex(fs []flake.Flake) bool {
	if len(fs) == 0 {
		return false
	}
	for _, f := range fs {
		if _, ok := f.M.ListIndex(); !ok {
			return false
		}
	}
	return true
}

func scalarOrRef(codec *iri.Codec, f flake.Flake) (any, error) {
	if f.IsRef() {
		sid, _ := f.ORef()
		objIRI, err := codec.Decode(sid)
		if err != nil {
			return nil, fmt.Errorf("commitchain: decode object %v: %w", sid, err)
		}
		return map[string]any{"@id": objIRI}, nil
	}
	if lang, ok := f.M.Lang(); ok {
		return map[string]any{"@value": f.O, "@language": lang}, nil
	}
	return f.O, nil
}
