// Package graph builds the population DAG from a validated gating
// template: one node per derived population, parent edges carrying
// method descriptors, and ordering-only edges for reference nodes.
package graph

import (
	"strings"

	"github.com/vk/cytograph/internal/gateargs"
)

// Kind discriminates the method-descriptor variants.
type Kind int

const (
	// KindPlain is an ordinary processing step.
	KindPlain Kind = iota
	// KindReference depends on a colon-joined list of other nodes.
	KindReference
	// KindBoolean combines referenced nodes with logical operators.
	KindBoolean
	// KindPolyfunctional is a boolean variant expanded later by an
	// external collaborator.
	KindPolyfunctional
	// KindSubsets marks a polyfunctional node after reference
	// resolution, flagging it for that later expansion.
	KindSubsets
	// KindPlaceholder is a no-op node that lets a multi-output method's
	// extra outputs be referenced elsewhere.
	KindPlaceholder
)

// String returns the kind's template-facing name.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindReference:
		return "reference"
	case KindBoolean:
		return "boolean"
	case KindPolyfunctional:
		return "polyfunctional"
	case KindSubsets:
		return "subsets"
	case KindPlaceholder:
		return "placeholder"
	}
	return "unknown"
}

// referenceKinds maps the fixed set of reference-family method names,
// matched case-insensitively, to their descriptor kind.
var referenceKinds = map[string]Kind{
	"boolgate":      KindBoolean,
	"polyfunctions": KindPolyfunctional,
	"refgate":       KindReference,
	"dummy_gate":    KindPlaceholder,
}

// KindOf classifies a method name, falling through to KindPlain.
func KindOf(method string) Kind {
	if k, ok := referenceKinds[strings.ToLower(strings.TrimSpace(method))]; ok {
		return k
	}
	return KindPlain
}

// MethodDescriptor describes one method invocation attached to an edge.
// Reference-family kinds carry the raw dependency expression and, once
// resolved, the referenced node paths; Args is then a single symbolic
// entry rather than a parsed list.
type MethodDescriptor struct {
	Kind     Kind
	Name     string
	Dims     []string
	Args     gateargs.List
	RefExpr  string
	Refs     []string
	GroupBy  string
	Collapse bool
}

// IsReference reports whether the descriptor belongs to the reference
// family (anything but plain).
func (d *MethodDescriptor) IsReference() bool {
	return d.Kind != KindPlain
}

// Node is one population. Path is its identity; Aliases holds several
// names only for multi-output rows.
type Node struct {
	Path    string
	Name    string
	Aliases []string
}

// Edge connects a parent population to a child. The processing edge
// carries the gating descriptor plus an optional preprocessing
// descriptor; ordering-only edges carry neither and exist purely to
// constrain the topological order.
type Edge struct {
	Parent        string
	Child         string
	Gating        *MethodDescriptor
	Preprocessing *MethodDescriptor
	OrderOnly     bool
}
