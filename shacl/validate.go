package shacl

import (
	"fmt"
	"regexp"

	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// maxDepth bounds recursive shape references (sh:node, sh:property,
// sh:not/and/or/xone, sh:qualifiedValueShape) so a cyclic shape graph
// cannot recurse forever.
const maxDepth = 32

// Validator evaluates the SHACL shapes declared in a novelty overlay
// against that same overlay's data, producing a Report.
type Validator struct {
	Cache   *Cache
	Novelty *novelty.Novelty
	Schema  *vocab.Schema
}

// NewValidator returns a Validator backed by a fresh shape cache.
func NewValidator(n *novelty.Novelty, schema *vocab.Schema) *Validator {
	return &Validator{Cache: NewCache(n), Novelty: n, Schema: schema}
}

// ValidateAll discovers every sh:NodeShape in the overlay, computes its
// focus nodes and validates each against the shape, returning the
// aggregate report. An empty report means the data conforms.
func (v *Validator) ValidateAll() *Report {
	report := &Report{}
	for _, shapeID := range DiscoverShapes(v.Novelty) {
		shape := v.Cache.Get(shapeID)
		for _, focus := range FocusNodes(shape, v.Novelty, v.Schema) {
			v.validateShape(shape, focus, 0, report)
		}
	}
	return report
}

// validateShape validates one shape against one focus node: a property
// shape first resolves its path to a value-node set, a node shape (or a
// sub-shape reached via sh:node/sh:not/sh:and/sh:or/sh:xone) treats the
// focus node itself as the sole value node.
func (v *Validator) validateShape(shape *Shape, focus iri.SID, depth int, report *Report) {
	if depth > maxDepth {
		return
	}
	var values []ValueNode
	if shape.IsProperty && len(shape.PathSegs) > 0 {
		values = ResolveValueNodes(shape.PathSegs, focus, v.Novelty)
	} else {
		values = []ValueNode{{Value: focus, IsRef: true}}
	}
	v.checkConstraints(shape, focus, values, depth, report)
}

// checkConstraints dispatches every constraint predicate present on
// shape against the value-node set resolved for focus.
func (v *Validator) checkConstraints(shape *Shape, focus iri.SID, values []ValueNode, depth int, report *Report) {
	path := shape.PathSegs

	if mc, ok := shape.Int(MinCount); ok && len(values) < mc {
		report.Add(ViolationResult{
			Subject: focus, Shape: shape.ID, Constraint: MinCount, Path: path,
			Expect: mc, Value: len(values), Severity: SeverityViolation,
			Message: fmt.Sprintf("expected at least %d value(s), found %d", mc, len(values)),
		})
	}
	if mc, ok := shape.Int(MaxCount); ok && len(values) > mc {
		report.Add(ViolationResult{
			Subject: focus, Shape: shape.ID, Constraint: MaxCount, Path: path,
			Expect: mc, Value: len(values), Severity: SeverityViolation,
			Message: fmt.Sprintf("expected at most %d value(s), found %d", mc, len(values)),
		})
	}

	v.checkSetConstraints(shape, focus, values, report)

	for _, vn := range values {
		v.checkValueConstraints(shape, focus, vn, report)
	}

	if shape.Has(Closed) && shape.Bool(Closed) {
		v.checkClosed(shape, focus, report)
	}

	for _, id := range shape.Refs(Not) {
		sub := v.Cache.Get(id)
		subReport := &Report{}
		v.validateShape(sub, focus, depth+1, subReport)
		if subReport.Conforms() {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Not, Path: path,
				Severity: SeverityViolation,
				Message:  "value conforms to the sh:not shape but must not",
			})
		}
	}
	for _, id := range shape.Refs(And) {
		sub := v.Cache.Get(id)
		v.validateShape(sub, focus, depth+1, report)
	}
	if orIDs := shape.Refs(Or); len(orIDs) > 0 {
		conformed := false
		for _, id := range orIDs {
			sub := v.Cache.Get(id)
			subReport := &Report{}
			v.validateShape(sub, focus, depth+1, subReport)
			if subReport.Conforms() {
				conformed = true
			}
		}
		if !conformed {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Or, Path: path,
				Severity: SeverityViolation,
				Message:  "value conforms to none of the sh:or shapes",
			})
		}
	}
	if xoneIDs := shape.Refs(Xone); len(xoneIDs) > 0 {
		conformCount := 0
		for _, id := range xoneIDs {
			sub := v.Cache.Get(id)
			subReport := &Report{}
			v.validateShape(sub, focus, depth+1, subReport)
			if subReport.Conforms() {
				conformCount++
			}
		}
		if conformCount != 1 {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Xone, Path: path,
				Expect: 1, Value: conformCount, Severity: SeverityViolation,
				Message: fmt.Sprintf("expected exactly one sh:xone branch to conform, got %d", conformCount),
			})
		}
	}

	for _, id := range shape.Refs(PropertyConstraint) {
		propShape := v.Cache.Get(id)
		v.validateShape(propShape, focus, depth+1, report)
	}

	for _, id := range shape.Refs(Node) {
		nodeShape := v.Cache.Get(id)
		for _, vn := range values {
			sid, ok := vn.Value.(iri.SID)
			if !vn.IsRef || !ok {
				report.Add(ViolationResult{
					Subject: focus, Shape: shape.ID, Constraint: Node, Path: path,
					Value: vn.Value, Severity: SeverityViolation,
					Message: "sh:node requires a reference value",
				})
				continue
			}
			v.validateShape(nodeShape, sid, depth+1, report)
		}
	}

	if shape.Has(QualifiedValueShape) {
		v.checkQualified(shape, focus, values, depth, report)
	}
}

// checkSetConstraints evaluates constraints whose truth depends on the
// whole value-node set rather than any single value: cardinality lives
// in checkConstraints, the rest (uniqueLang, hasValue, equals, disjoint,
// lessThan, lessThanOrEquals) here.
func (v *Validator) checkSetConstraints(shape *Shape, focus iri.SID, values []ValueNode, report *Report) {
	path := shape.PathSegs

	if shape.Has(UniqueLang) && shape.Bool(UniqueLang) {
		counts := make(map[string]int)
		for _, vn := range values {
			if vn.Lang != "" {
				counts[vn.Lang]++
			}
		}
		for lang, count := range counts {
			if count > 1 {
				report.Add(ViolationResult{
					Subject: focus, Shape: shape.ID, Constraint: UniqueLang, Path: path,
					Value: lang, Severity: SeverityViolation,
					Message: fmt.Sprintf("language tag %q used by %d values, expected at most 1", lang, count),
				})
			}
		}
	}

	for _, wantFlake := range shape.values[HasValue] {
		want := termOfFlake(wantFlake)
		found := false
		for _, vn := range values {
			if valueEquals(vn, want) {
				found = true
				break
			}
		}
		if !found {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: HasValue, Path: path,
				Expect: want, Severity: SeverityViolation,
				Message: "required value is not present",
			})
		}
	}

	for _, companion := range shape.Refs(Equals) {
		companionValues := companionSet(v.Novelty, focus, companion)
		if !sameValueSet(values, companionValues) {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Equals, Path: path,
				Expect: companion, Severity: SeverityViolation,
				Message: "value set does not equal sh:equals companion's value set",
			})
		}
	}
	for _, companion := range shape.Refs(Disjoint) {
		companionValues := companionSet(v.Novelty, focus, companion)
		if valueSetsOverlap(values, companionValues) {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Disjoint, Path: path,
				Expect: companion, Severity: SeverityViolation,
				Message: "value set overlaps sh:disjoint companion's value set",
			})
		}
	}
	for _, companion := range shape.Refs(LessThan) {
		companionValues := companionSet(v.Novelty, focus, companion)
		if !allLessThan(values, companionValues, false) {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: LessThan, Path: path,
				Expect: companion, Severity: SeverityViolation,
				Message: "value is not less than sh:lessThan companion's value",
			})
		}
	}
	for _, companion := range shape.Refs(LessThanOrEquals) {
		companionValues := companionSet(v.Novelty, focus, companion)
		if !allLessThan(values, companionValues, true) {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: LessThanOrEquals, Path: path,
				Expect: companion, Severity: SeverityViolation,
				Message: "value is not less than or equal to sh:lessThanOrEquals companion's value",
			})
		}
	}
}

// checkValueConstraints evaluates the per-value constraints (class,
// datatype, nodeKind, length, pattern, languageIn, numeric bounds, in)
// against a single resolved value node.
func (v *Validator) checkValueConstraints(shape *Shape, focus iri.SID, vn ValueNode, report *Report) {
	path := shape.PathSegs

	if classes := shape.Refs(Class); len(classes) > 0 {
		sid, ok := vn.Value.(iri.SID)
		if !vn.IsRef || !ok {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Class, Path: path,
				Value: vn.Value, Severity: SeverityViolation,
				Message: "sh:class requires a reference value",
			})
		} else {
			types := typesOf(v.Novelty, sid)
			for _, want := range classes {
				if !hasClass(types, want, v.Schema) {
					report.Add(ViolationResult{
						Subject: focus, Shape: shape.ID, Constraint: Class, Path: path,
						Expect: want, Value: sid, Severity: SeverityViolation,
						Message: "value is not a member of the required class",
					})
				}
			}
		}
	}

	if dt, ok := shape.Ref(Datatype); ok {
		if vn.IsRef || vn.Datatype != dt {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: Datatype, Path: path,
				Expect: dt, Value: vn.Value, Severity: SeverityViolation,
				Message: "value does not have the required datatype",
			})
		}
	}

	if nk, ok := shape.Ref(NodeKind); ok && !nodeKindMatches(nk, vn) {
		report.Add(ViolationResult{
			Subject: focus, Shape: shape.ID, Constraint: NodeKind, Path: path,
			Expect: nk, Value: vn.Value, Severity: SeverityViolation,
			Message: "value does not match the required node kind",
		})
	}

	if !vn.IsRef {
		if minLen, ok := shape.Int(MinLength); ok && len(stringForm(vn)) < minLen {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: MinLength, Path: path,
				Expect: minLen, Value: vn.Value, Severity: SeverityViolation,
				Message: "value is shorter than sh:minLength",
			})
		}
		if maxLen, ok := shape.Int(MaxLength); ok && len(stringForm(vn)) > maxLen {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: MaxLength, Path: path,
				Expect: maxLen, Value: vn.Value, Severity: SeverityViolation,
				Message: "value is longer than sh:maxLength",
			})
		}
		if pat, ok := shape.String(Pattern); ok {
			flags, _ := shape.String(Flags)
			re, err := compilePattern(pat, flags)
			if err == nil && !re.MatchString(stringForm(vn)) {
				report.Add(ViolationResult{
					Subject: focus, Shape: shape.ID, Constraint: Pattern, Path: path,
					Expect: pat, Value: vn.Value, Severity: SeverityViolation,
					Message: "value does not match sh:pattern",
				})
			}
		}
		if langs := shape.Scalars(LanguageIn); len(langs) > 0 && !langInList(vn.Lang, langs) {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: LanguageIn, Path: path,
				Expect: langs, Value: vn.Lang, Severity: SeverityViolation,
				Message: "value's language tag is not in sh:languageIn",
			})
		}
	}

	if minI, ok := shape.Float(MinInclusive); ok {
		if n, isNum := numericValue(vn); !isNum || n < minI {
			report.Add(numericViolation(shape, focus, MinInclusive, path, minI, vn))
		}
	}
	if maxI, ok := shape.Float(MaxInclusive); ok {
		if n, isNum := numericValue(vn); !isNum || n > maxI {
			report.Add(numericViolation(shape, focus, MaxInclusive, path, maxI, vn))
		}
	}
	if minE, ok := shape.Float(MinExclusive); ok {
		if n, isNum := numericValue(vn); !isNum || n <= minE {
			report.Add(numericViolation(shape, focus, MinExclusive, path, minE, vn))
		}
	}
	if maxE, ok := shape.Float(MaxExclusive); ok {
		if n, isNum := numericValue(vn); !isNum || n >= maxE {
			report.Add(numericViolation(shape, focus, MaxExclusive, path, maxE, vn))
		}
	}

	if inFlakes := shape.values[In]; len(inFlakes) > 0 {
		match := false
		for _, f := range inFlakes {
			if valueEquals(vn, termOfFlake(f)) {
				match = true
				break
			}
		}
		if !match {
			report.Add(ViolationResult{
				Subject: focus, Shape: shape.ID, Constraint: In, Path: path,
				Value: vn.Value, Severity: SeverityViolation,
				Message: "value is not in sh:in's list",
			})
		}
	}
}

func numericViolation(shape *Shape, focus iri.SID, constraint iri.SID, path Path, bound float64, vn ValueNode) ViolationResult {
	return ViolationResult{
		Subject: focus, Shape: shape.ID, Constraint: constraint, Path: path,
		Expect: bound, Value: vn.Value, Severity: SeverityViolation,
		Message: "value is outside the required numeric bound",
	}
}

// checkClosed rejects any predicate asserted on focus that is neither
// reached by one of shape's direct-predicate property shapes nor listed
// in sh:ignoredProperties.
func (v *Validator) checkClosed(shape *Shape, focus iri.SID, report *Report) {
	allowed := make(map[iri.SID]bool)
	for _, id := range shape.Refs(PropertyConstraint) {
		propShape := v.Cache.Get(id)
		if len(propShape.PathSegs) == 1 && !propShape.PathSegs[0].Inverse && len(propShape.PathSegs[0].Alternatives) == 0 {
			allowed[propShape.PathSegs[0].Predicate] = true
		}
	}
	for _, ignored := range shape.Refs(IgnoredProperties) {
		allowed[ignored] = true
	}
	for _, f := range v.Novelty.BySubject(focus) {
		if f.IsIRIFlake() || allowed[f.P] {
			continue
		}
		report.Add(ViolationResult{
			Subject: focus, Shape: shape.ID, Constraint: Closed,
			Path: Path{{Predicate: f.P}}, Value: f.O, Severity: SeverityViolation,
			Message: fmt.Sprintf("disallowed path %s with values %v", f.P.Name, f.O),
		})
	}
}

// checkQualified counts how many of the resolved value nodes conform to
// sh:qualifiedValueShape and checks that count against
// sh:qualifiedMinCount/qualifiedMaxCount. sh:qualifiedValueShapesDisjoint
// (excluding values claimed by sibling qualified shapes on the same
// shape) is not implemented: this engine validates one property shape
// at a time and has no notion of "sibling" shapes sharing a path.
func (v *Validator) checkQualified(shape *Shape, focus iri.SID, values []ValueNode, depth int, report *Report) {
	qID, ok := shape.Ref(QualifiedValueShape)
	if !ok {
		return
	}
	qShape := v.Cache.Get(qID)
	count := 0
	for _, vn := range values {
		sid, ok := vn.Value.(iri.SID)
		if !vn.IsRef || !ok {
			continue
		}
		sub := &Report{}
		v.validateShape(qShape, sid, depth+1, sub)
		if sub.Conforms() {
			count++
		}
	}
	path := shape.PathSegs
	if minC, ok := shape.Int(QualifiedMinCount); ok && count < minC {
		report.Add(ViolationResult{
			Subject: focus, Shape: shape.ID, Constraint: QualifiedMinCount, Path: path,
			Expect: minC, Value: count, Severity: SeverityViolation,
			Message: fmt.Sprintf("expected at least %d value(s) conforming to sh:qualifiedValueShape, got %d", minC, count),
		})
	}
	if maxC, ok := shape.Int(QualifiedMaxCount); ok && count > maxC {
		report.Add(ViolationResult{
			Subject: focus, Shape: shape.ID, Constraint: QualifiedMaxCount, Path: path,
			Expect: maxC, Value: count, Severity: SeverityViolation,
			Message: fmt.Sprintf("expected at most %d value(s) conforming to sh:qualifiedValueShape, got %d", maxC, count),
		})
	}
}

// companionSet resolves the value nodes reached from focus via a single
// direct predicate, used by sh:equals/disjoint/lessThan/lessThanOrEquals
// to find the companion property's values.
func companionSet(n *novelty.Novelty, focus iri.SID, predicate iri.SID) []ValueNode {
	var out []ValueNode
	for _, f := range n.BySubjectPredicate(focus, predicate) {
		out = append(out, valueNodeFromFlake(f, false))
	}
	return out
}

func sameValueSet(a, b []ValueNode) bool {
	if len(a) != len(b) {
		return false
	}
	return valueSetsOverlap(a, b) && len(a) == len(intersectCount(a, b))
}

// intersectCount returns one ValueNode from a for every element of a
// that has a matching element in b, used only to size the intersection
// in sameValueSet.
func intersectCount(a, b []ValueNode) []ValueNode {
	var out []ValueNode
	for _, va := range a {
		for _, vb := range b {
			if valueEquals(va, vb.Value) {
				out = append(out, va)
				break
			}
		}
	}
	return out
}

func valueSetsOverlap(a, b []ValueNode) bool {
	for _, va := range a {
		for _, vb := range b {
			if valueEquals(va, vb.Value) {
				return true
			}
		}
	}
	return false
}

func allLessThan(values, companions []ValueNode, orEqual bool) bool {
	for _, vn := range values {
		n, isNum := numericValue(vn)
		if !isNum {
			return false
		}
		for _, cn := range companions {
			cv, isNum := numericValue(cn)
			if !isNum {
				return false
			}
			if orEqual {
				if n > cv {
					return false
				}
			} else if n >= cv {
				return false
			}
		}
	}
	return true
}

func valueEquals(vn ValueNode, want any) bool {
	if vn.IsRef {
		sid, ok := vn.Value.(iri.SID)
		wantSID, ok2 := want.(iri.SID)
		return ok && ok2 && sid == wantSID
	}
	return vn.Value == want
}

func termOfFlake(f flake.Flake) any {
	if sid, ok := f.ORef(); ok {
		return sid
	}
	return f.O
}

func typesOf(n *novelty.Novelty, sid iri.SID) []iri.SID {
	var out []iri.SID
	for _, f := range n.BySubjectPredicate(sid, vocab.RDFType) {
		if t, ok := f.ORef(); ok {
			out = append(out, t)
		}
	}
	return out
}

func hasClass(types []iri.SID, want iri.SID, schema *vocab.Schema) bool {
	for _, t := range types {
		if t == want {
			return true
		}
		if schema != nil {
			if _, ok := schema.Subclasses(want)[t]; ok {
				return true
			}
		}
	}
	return false
}

func nodeKindMatches(nk iri.SID, vn ValueNode) bool {
	isBlank := vn.IsRef && isBlankValue(vn)
	isIRI := vn.IsRef && !isBlankValue(vn)
	isLiteral := !vn.IsRef
	switch nk {
	case NodeKindIRI:
		return isIRI
	case NodeKindLiteral:
		return isLiteral
	case NodeKindBlankNode:
		return isBlank
	case NodeKindIRIOrLiteral:
		return isIRI || isLiteral
	case NodeKindBlankNodeOrIRI:
		return isBlank || isIRI
	case NodeKindBlankNodeOrLiteral:
		return isBlank || isLiteral
	default:
		return true
	}
}

func isBlankValue(vn ValueNode) bool {
	sid, ok := vn.Value.(iri.SID)
	return ok && sid.IsBlank()
}

func stringForm(vn ValueNode) string {
	return fmt.Sprintf("%v", vn.Value)
}

func numericValue(vn ValueNode) (float64, bool) {
	if vn.IsRef {
		return 0, false
	}
	switch n := vn.Value.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func langInList(lang string, allowed []any) bool {
	for _, a := range allowed {
		if s, ok := a.(string); ok && s == lang {
			return true
		}
	}
	return false
}

func compilePattern(pat, flags string) (*regexp.Regexp, error) {
	if flags == "" {
		return regexp.Compile(pat)
	}
	return regexp.Compile("(?" + flags + ")" + pat)
}
