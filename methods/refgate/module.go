// Package refgate implements the reference-list built-ins: refGate,
// which materializes a colon-referenced dependency list, and dummy_gate,
// the no-op placeholder that only exists so a multi-output method's
// extra outputs can be referenced elsewhere in the graph.
package refgate

import (
	"context"
	"fmt"

	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers both gating methods with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterGating("refGate", OnGateRef)
	r.RegisterGating("dummy_gate", OnGateDummy)
}

// OnGateRef materializes the resolved reference list.
func OnGateRef(ctx context.Context, call *registry.Call) (cty.Value, error) {
	desc := call.Descriptor
	if len(desc.Refs) == 0 {
		return cty.NilVal, fmt.Errorf("reference gate %q has no resolved references", call.Group.Key)
	}

	refs := make([]cty.Value, len(desc.Refs))
	for i, ref := range desc.Refs {
		refs[i] = cty.StringVal(ref)
	}
	return cty.ObjectVal(map[string]cty.Value{"refs": cty.TupleVal(refs)}), nil
}

// OnGateDummy is the placeholder no-op.
func OnGateDummy(ctx context.Context, call *registry.Call) (cty.Value, error) {
	return cty.NullVal(cty.DynamicPseudoType), nil
}
