// Package quantile implements the built-in quantile gating method: the
// cut point is the empirical quantile of the group's pooled values on
// the first dimension.
package quantile

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the gating method with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterGating("quantile", OnGateQuantile)
}

// OnGateQuantile places the cut at the probs quantile (default 0.99).
func OnGateQuantile(ctx context.Context, call *registry.Call) (cty.Value, error) {
	if len(call.Dims) == 0 {
		return cty.NilVal, fmt.Errorf("quantile needs at least one dimension")
	}
	dim := call.Dims[0]

	probs := 0.99
	if v, ok := call.Args["probs"]; ok && !v.IsNull() && v.Type() == cty.Number {
		probs, _ = v.AsBigFloat().Float64()
	}
	if probs <= 0 || probs >= 1 {
		return cty.NilVal, fmt.Errorf("probs must be in (0, 1), got %v", probs)
	}

	var values []float64
	for _, s := range call.Group.Samples {
		col, err := s.Frame.Column(dim)
		if err != nil {
			return cty.NilVal, fmt.Errorf("sample %q: %w", s.ID, err)
		}
		values = append(values, col...)
	}
	if len(values) == 0 {
		return cty.NilVal, fmt.Errorf("group %q has no events on %s", call.Group.Key, dim)
	}

	sort.Float64s(values)
	idx := int(math.Ceil(probs*float64(len(values)))) - 1
	if idx < 0 {
		idx = 0
	}

	return cty.ObjectVal(map[string]cty.Value{
		"channel":   cty.StringVal(dim),
		"probs":     cty.NumberFloatVal(probs),
		"threshold": cty.NumberFloatVal(values[idx]),
	}), nil
}
