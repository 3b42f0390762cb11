package policy

import (
	"github.com/fluree/fluree-core/iri"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// Context identifies the requester a policy set is compiled for: an
// identity SID, the roles held, and a privileged-bypass flag mirroring
// the reserved `{:f/view :root?}` shortcut -- a caller-supplied escape
// hatch, not anything stored in the policy graph itself.
type Context struct {
	Identity iri.SID
	Roles    map[iri.SID]bool
	Root     bool
}

// Predicate is a compiled per-flake check: given the overlay and the
// focus node (the flake's subject), does this allow rule grant access?
type Predicate func(n *novelty.Novelty, focus iri.SID) bool

// Rule is the compiled leaf for one (action, class|node) pair: a
// property-scoped predicate set plus the unscoped defaults that apply
// to every other predicate. Multiple allow entries targeting the same
// class/node compose with OR -- any one granting predicate permits.
type Rule struct {
	defaults   []Predicate
	properties map[iri.SID][]Predicate
}

func newRule() *Rule { return &Rule{properties: make(map[iri.SID][]Predicate)} }

func (r *Rule) addDefault(p Predicate) { r.defaults = append(r.defaults, p) }

func (r *Rule) addProperty(prop iri.SID, p Predicate) {
	r.properties[prop] = append(r.properties[prop], p)
}

// Permits evaluates the rule for a single flake's subject/predicate.
func (r *Rule) Permits(n *novelty.Novelty, focus, predicate iri.SID) bool {
	if r == nil {
		return false
	}
	if ps, ok := r.properties[predicate]; ok {
		for _, p := range ps {
			if p(n, focus) {
				return true
			}
		}
		return false
	}
	for _, p := range r.defaults {
		if p(n, focus) {
			return true
		}
	}
	return false
}

// Compiled is the nested action -> (class|node) -> Rule table produced
// by Compile, ready to check every flake touched during a read or
// write without re-walking the policy graph.
type Compiled struct {
	Root bool

	viewByClass, viewByNode     map[iri.SID]*Rule
	modifyByClass, modifyByNode map[iri.SID]*Rule
}

// Compile discovers every f:Policy in n and builds the compiled rule
// table for ctx's identity and roles. A root context short-circuits to
// an always-permit Compiled without touching the policy graph.
func Compile(n *novelty.Novelty, ctx Context) *Compiled {
	c := &Compiled{
		Root:          ctx.Root,
		viewByClass:   make(map[iri.SID]*Rule),
		viewByNode:    make(map[iri.SID]*Rule),
		modifyByClass: make(map[iri.SID]*Rule),
		modifyByNode:  make(map[iri.SID]*Rule),
	}
	if ctx.Root {
		return c
	}
	for _, polID := range DiscoverPolicies(n) {
		pol := Materialize(polID, n)
		for _, allow := range pol.Allows {
			if !roleMatches(allow.TargetRole, ctx.Roles) {
				continue
			}
			pred := conditionPredicate(allow, ctx.Identity)
			for _, action := range allow.Actions {
				byClass, byNode := c.tablesFor(action)
				for _, class := range pol.TargetClass {
					addRule(byClass, class, allow.Properties, pred)
				}
				for _, node := range pol.TargetNode {
					addRule(byNode, node, allow.Properties, pred)
				}
			}
		}
	}
	return c
}

func (c *Compiled) tablesFor(action string) (map[iri.SID]*Rule, map[iri.SID]*Rule) {
	if action == ActionModify {
		return c.modifyByClass, c.modifyByNode
	}
	return c.viewByClass, c.viewByNode
}

func addRule(table map[iri.SID]*Rule, key iri.SID, properties []iri.SID, pred Predicate) {
	rule, ok := table[key]
	if !ok {
		rule = newRule()
		table[key] = rule
	}
	if len(properties) == 0 {
		rule.addDefault(pred)
		return
	}
	for _, p := range properties {
		rule.addProperty(p, pred)
	}
}

// roleMatches reports whether an allow entry's required roles intersect
// the requester's roles; an entry with no targetRole applies to anyone.
func roleMatches(required []iri.SID, have map[iri.SID]bool) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if have[r] {
			return true
		}
	}
	return false
}

func conditionPredicate(allow AllowRule, identity iri.SID) Predicate {
	switch {
	case len(allow.Equals) > 0:
		path := allow.Equals
		return func(n *novelty.Novelty, focus iri.SID) bool {
			values := resolvePathValues(n, focus, path)
			return len(values) == 1 && values[0] == identity
		}
	case len(allow.Contains) > 0:
		path := allow.Contains
		return func(n *novelty.Novelty, focus iri.SID) bool {
			for _, v := range resolvePathValues(n, focus, path) {
				if v == identity {
					return true
				}
			}
			return false
		}
	default:
		return func(*novelty.Novelty, iri.SID) bool { return true }
	}
}

// permits checks focus/predicate against a node-scoped rule first and
// then every class-scoped rule whose class (or one of its schema
// ancestors) focus is typed with; any one rule that permits grants
// access, so a node-scoped rule that denies does not block a class rule.
func (c *Compiled) permits(byClass, byNode map[iri.SID]*Rule, n *novelty.Novelty, schema *vocab.Schema, focus, predicate iri.SID) bool {
	if rule, ok := byNode[focus]; ok && rule.Permits(n, focus, predicate) {
		return true
	}
	types := typesOf(n, focus)
	for class, rule := range byClass {
		if !typedAs(types, class, schema) {
			continue
		}
		if rule.Permits(n, focus, predicate) {
			return true
		}
	}
	return false
}

func typesOf(n *novelty.Novelty, sid iri.SID) []iri.SID {
	var out []iri.SID
	for _, fl := range n.BySubjectPredicate(sid, vocab.RDFType) {
		if t, ok := fl.ORef(); ok {
			out = append(out, t)
		}
	}
	return out
}

func typedAs(types []iri.SID, class iri.SID, schema *vocab.Schema) bool {
	for _, t := range types {
		if t == class {
			return true
		}
		if schema != nil {
			if _, ok := schema.Subclasses(class)[t]; ok {
				return true
			}
		}
	}
	return false
}
