// Package boolgate implements the built-in boolean combination method.
// The real set algebra runs in the population store downstream; here the
// method materializes the combination descriptor so dependents and
// re-runs can resolve it.
package boolgate

import (
	"context"
	"fmt"

	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the gating method with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterGating("boolGate", OnGateBool)
}

// OnGateBool materializes a boolean combination of referenced populations.
func OnGateBool(ctx context.Context, call *registry.Call) (cty.Value, error) {
	desc := call.Descriptor
	if len(desc.Refs) == 0 {
		return cty.NilVal, fmt.Errorf("boolean gate %q has no resolved references", call.Group.Key)
	}

	refs := make([]cty.Value, len(desc.Refs))
	for i, ref := range desc.Refs {
		refs[i] = cty.StringVal(ref)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"expression": cty.StringVal(desc.RefExpr),
		"refs":       cty.TupleVal(refs),
	}), nil
}
