package policy

import (
	"go.uber.org/zap"

	"github.com/fluree/fluree-core/ferrors"
	"github.com/fluree/fluree-core/flake"
	"github.com/fluree/fluree-core/novelty"
	"github.com/fluree/fluree-core/vocab"
)

// Enforcer applies a Compiled rule table to the read and write paths,
// logging denials to an audit trail.
type Enforcer struct {
	Compiled *Compiled
	Schema   *vocab.Schema
	audit    *zap.SugaredLogger
}

// NewEnforcer returns an Enforcer; a nil audit logger falls back to the
// global zap logger (`zap.L().Sugar()`).
func NewEnforcer(compiled *Compiled, schema *vocab.Schema, audit *zap.SugaredLogger) *Enforcer {
	if audit == nil {
		audit = zap.L().Sugar()
	}
	return &Enforcer{Compiled: compiled, Schema: schema, audit: audit}
}

// FilterRead drops every flake the view policy does not permit.
func (e *Enforcer) FilterRead(n *novelty.Novelty, flakes []flake.Flake) []flake.Flake {
	if e.Compiled.Root {
		return flakes
	}
	out := make([]flake.Flake, 0, len(flakes))
	dropped := 0
	for _, fl := range flakes {
		if e.Compiled.permits(e.Compiled.viewByClass, e.Compiled.viewByNode, n, e.Schema, fl.S, fl.P) {
			out = append(out, fl)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		e.audit.Infow("policy: dropped flakes on read", "count", dropped)
	}
	return out
}

// CheckWrite rejects the whole staged batch if any flake fails the
// modify policy, returning the first offending flake's tagged error.
func (e *Enforcer) CheckWrite(n *novelty.Novelty, flakes []flake.Flake) error {
	if e.Compiled.Root {
		return nil
	}
	for _, fl := range flakes {
		if !e.Compiled.permits(e.Compiled.modifyByClass, e.Compiled.modifyByNode, n, e.Schema, fl.S, fl.P) {
			e.audit.Warnw("policy: rejected transaction", "subject", fl.S, "predicate", fl.P)
			return ferrors.New(ferrors.InvalidPolicy, "policy denied write to subject/predicate")
		}
	}
	return nil
}
