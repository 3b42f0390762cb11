// Package policy implements attribute-based access control over a
// novelty overlay: policy/allow-rule discovery, compilation for a given
// requesting identity and role set, and read/write enforcement.
package policy

import "github.com/fluree/fluree-core/iri"

func f(name string) iri.SID { return iri.SID{Namespace: iri.NamespaceFlureePolicy, Name: name} }

// Policy graph predicates.
var (
	PolicyClass  = f("Policy")
	TargetClass  = f("targetClass")
	TargetNode   = f("targetNode")
	AllowPred    = f("allow")
	TargetRole   = f("targetRole")
	EqualsPred   = f("equals")
	ContainsPred = f("contains")
	PropertyPred = f("property")
	ActionPred   = f("action")
)

// Action marker values asserted as the object of f:action.
var (
	ViewAction   = f("view")
	ModifyAction = f("modify")
)

// Action names used throughout the compiled rule tables.
const (
	ActionView   = "view"
	ActionModify = "modify"
)
