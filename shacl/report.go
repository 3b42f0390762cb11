package shacl

import (
	"fmt"

	"github.com/fluree/fluree-core/iri"
)

// Severity mirrors the SHACL severity vocabulary; this engine only ever
// produces sh:Violation (sh:Warning/sh:Info are not modeled).
type Severity string

const SeverityViolation Severity = "Violation"

// ViolationResult is one failed constraint check.
type ViolationResult struct {
	Subject    iri.SID
	Shape      iri.SID
	Constraint iri.SID
	Path       Path
	Expect     any
	Value      any
	Message    string
	Severity   Severity
}

// Report collects every violation found while validating a transaction.
type Report struct {
	Results []ViolationResult
}

// Conforms reports whether the transaction produced zero violations.
func (r *Report) Conforms() bool { return r == nil || len(r.Results) == 0 }

// Add appends a violation to the report.
func (r *Report) Add(v ViolationResult) { r.Results = append(r.Results, v) }

// ToJSONLD renders the report as a sh:ValidationReport document with one
// sh:result entry per violation, decoding SIDs back to IRIs via codec.
func (r *Report) ToJSONLD(codec *iri.Codec) (map[string]any, error) {
	results := make([]map[string]any, 0, len(r.Results))
	for _, v := range r.Results {
		subjectIRI, err := codec.Decode(v.Subject)
		if err != nil {
			return nil, fmt.Errorf("shacl: decode violation subject: %w", err)
		}
		shapeIRI, err := codec.Decode(v.Shape)
		if err != nil {
			return nil, fmt.Errorf("shacl: decode violation shape: %w", err)
		}
		constraintIRI, err := codec.Decode(v.Constraint)
		if err != nil {
			return nil, fmt.Errorf("shacl: decode violation constraint: %w", err)
		}
		result := map[string]any{
			"type":                      []string{ValidationResult.Name},
			"focusNode":                 map[string]any{"@id": subjectIRI},
			"sourceShape":               map[string]any{"@id": shapeIRI},
			"sourceConstraintComponent": map[string]any{"@id": constraintIRI},
			"resultSeverity":            string(v.Severity),
			"resultMessage":             v.Message,
		}
		if len(v.Path) > 0 {
			pathIRI, err := renderPath(codec, v.Path)
			if err != nil {
				return nil, err
			}
			result["resultPath"] = pathIRI
		}
		if v.Value != nil {
			val, err := renderTerm(codec, v.Value)
			if err != nil {
				return nil, err
			}
			result["value"] = val
		}
		results = append(results, result)
	}
	return map[string]any{
		"type":     []string{ValidationReport.Name},
		"conforms": r.Conforms(),
		"result":   results,
	}, nil
}

func renderTerm(codec *iri.Codec, v any) (any, error) {
	if sid, ok := v.(iri.SID); ok {
		decoded, err := codec.Decode(sid)
		if err != nil {
			return nil, fmt.Errorf("shacl: decode term: %w", err)
		}
		return map[string]any{"@id": decoded}, nil
	}
	return v, nil
}

func renderPath(codec *iri.Codec, path Path) (any, error) {
	if len(path) == 1 && len(path[0].Alternatives) == 0 && !path[0].Inverse {
		return codec.Decode(path[0].Predicate)
	}
	out := make([]any, 0, len(path))
	for _, seg := range path {
		if len(seg.Alternatives) > 0 {
			alts := make([]any, 0, len(seg.Alternatives))
			for _, p := range seg.Alternatives {
				decoded, err := codec.Decode(p)
				if err != nil {
					return nil, fmt.Errorf("shacl: decode alternative path segment: %w", err)
				}
				alts = append(alts, decoded)
			}
			out = append(out, map[string]any{"alternativePath": alts})
			continue
		}
		decoded, err := codec.Decode(seg.Predicate)
		if err != nil {
			return nil, fmt.Errorf("shacl: decode path segment: %w", err)
		}
		if seg.Inverse {
			out = append(out, map[string]any{"inversePath": decoded})
		} else {
			out = append(out, decoded)
		}
	}
	return out, nil
}
