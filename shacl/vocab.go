// Package shacl implements shape discovery, target selection and
// constraint validation over a staged transaction's novelty, producing
// a validation report that aborts the transaction when non-empty.
package shacl

import "github.com/fluree/fluree-core/iri"

func sh(name string) iri.SID { return iri.SID{Namespace: iri.NamespaceSHACL, Name: name} }

// Shape class and type predicates.
var (
	NodeShape     = sh("NodeShape")
	PropertyShape = sh("PropertyShape")
)

// Target predicates.
var (
	TargetClass      = sh("targetClass")
	TargetNode       = sh("targetNode")
	TargetSubjectsOf = sh("targetSubjectsOf")
	TargetObjectsOf  = sh("targetObjectsOf")
)

// Path predicates.
var (
	Path            = sh("path")
	InversePath     = sh("inversePath")
	AlternativePath = sh("alternativePath")
)

// Constraint predicates, matching the catalogue of supported SHACL
// constraint components.
var (
	Class                        = sh("class")
	Datatype                     = sh("datatype")
	NodeKind                     = sh("nodeKind")
	MinCount                     = sh("minCount")
	MaxCount                     = sh("maxCount")
	MinInclusive                 = sh("minInclusive")
	MaxInclusive                 = sh("maxInclusive")
	MinExclusive                 = sh("minExclusive")
	MaxExclusive                 = sh("maxExclusive")
	MinLength                    = sh("minLength")
	MaxLength                    = sh("maxLength")
	Pattern                      = sh("pattern")
	Flags                        = sh("flags")
	LanguageIn                   = sh("languageIn")
	UniqueLang                   = sh("uniqueLang")
	Equals                       = sh("equals")
	Disjoint                     = sh("disjoint")
	LessThan                     = sh("lessThan")
	LessThanOrEquals             = sh("lessThanOrEquals")
	In                           = sh("in")
	HasValue                     = sh("hasValue")
	Not                          = sh("not")
	And                          = sh("and")
	Or                           = sh("or")
	Xone                         = sh("xone")
	Node                         = sh("node")
	PropertyConstraint           = sh("property")
	QualifiedValueShape          = sh("qualifiedValueShape")
	QualifiedMinCount            = sh("qualifiedMinCount")
	QualifiedMaxCount            = sh("qualifiedMaxCount")
	QualifiedValueShapesDisjoint = sh("qualifiedValueShapesDisjoint")
	Closed                       = sh("closed")
	IgnoredProperties            = sh("ignoredProperties")
	Contains                     = sh("contains")
)

// Node kinds recognised by sh:nodeKind.
var (
	NodeKindIRI                = sh("IRI")
	NodeKindLiteral            = sh("Literal")
	NodeKindBlankNode          = sh("BlankNode")
	NodeKindIRIOrLiteral       = sh("IRIOrLiteral")
	NodeKindBlankNodeOrIRI     = sh("BlankNodeOrIRI")
	NodeKindBlankNodeOrLiteral = sh("BlankNodeOrLiteral")
)

// Result vocabulary used when rendering a ValidationReport.
var (
	ValidationReport = sh("ValidationReport")
	Conforms         = sh("conforms")
	Result           = sh("result")
	ValidationResult = sh("ValidationResult")
	FocusNode        = sh("focusNode")
	ResultPath       = sh("resultPath")
	Value            = sh("value")
	ResultMessage    = sh("resultMessage")
	ResultSeverity   = sh("resultSeverity")
	SourceConstraint = sh("sourceConstraintComponent")
	SourceShape      = sh("sourceShape")
	Violation        = sh("Violation")
)

// constraintPredicates lists every predicate this engine dispatches on.
// Materialize does not consult it: every flake on a shape subject other
// than rdf:type, the target predicates and sh:path goes into the
// shape's constraint map, whatever its predicate.
var constraintPredicates = map[iri.SID]bool{
	Class: true, Datatype: true, NodeKind: true,
	MinCount: true, MaxCount: true,
	MinInclusive: true, MaxInclusive: true, MinExclusive: true, MaxExclusive: true,
	MinLength: true, MaxLength: true,
	Pattern: true, Flags: true,
	LanguageIn: true, UniqueLang: true,
	Equals: true, Disjoint: true, LessThan: true, LessThanOrEquals: true,
	In: true, HasValue: true,
	Not: true, And: true, Or: true, Xone: true,
	Node: true, PropertyConstraint: true,
	QualifiedValueShape: true, QualifiedMinCount: true, QualifiedMaxCount: true, QualifiedValueShapesDisjoint: true,
	Closed: true, IgnoredProperties: true,
	Contains: true,
}
