// Package standardize implements the built-in preprocessing method: per
// dimension, the group's pooled mean and standard deviation, handed to
// the gating call that follows.
package standardize

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the preprocessing method with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterPreprocessing("standardize", OnPreprocessStandardize)
}

// OnPreprocessStandardize computes group-level location and scale per
// dimension.
func OnPreprocessStandardize(ctx context.Context, call *registry.Call) (cty.Value, error) {
	if len(call.Dims) == 0 {
		return cty.NilVal, fmt.Errorf("standardize needs at least one dimension")
	}

	out := make(map[string]cty.Value, len(call.Dims))
	for _, dim := range call.Dims {
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

		var mean float64
		for _, v := range values {
			mean += v
		}
		mean /= float64(len(values))
		var sd float64
		for _, v := range values {
			sd += (v - mean) * (v - mean)
		}
		sd = math.Sqrt(sd / float64(len(values)))

		out[dim] = cty.ObjectVal(map[string]cty.Value{
			"mean": cty.NumberFloatVal(mean),
			"sd":   cty.NumberFloatVal(sd),
		})
	}
	return cty.ObjectVal(out), nil
}
