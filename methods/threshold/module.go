// Package threshold implements the built-in threshold gating method: a
// cut point on the first dimension, either fixed via the T argument or
// derived from the group's pooled mean and standard deviation.
package threshold

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/cytograph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the gating method with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterGating("threshold", OnGateThreshold)
}

// OnGateThreshold gates the group's pooled events on the first dimension.
func OnGateThreshold(ctx context.Context, call *registry.Call) (cty.Value, error) {
	if len(call.Dims) == 0 {
		return cty.NilVal, fmt.Errorf("threshold needs at least one dimension")
	}
	dim := call.Dims[0]

	values, err := pool(call, dim)
	if err != nil {
		return cty.NilVal, err
	}
	if len(values) == 0 {
		return cty.NilVal, fmt.Errorf("group %q has no events on %s", call.Group.Key, dim)
	}

	cut, ok := argFloat(call.Args, "T")
	if !ok {
		k, haveK := argFloat(call.Args, "k")
		if !haveK {
			k = 2
		}
		mean, sd := meanSD(values)
		cut = mean + k*sd
	}

	above := 0
	for _, v := range values {
		if v > cut {
			above++
		}
	}

	return cty.ObjectVal(map[string]cty.Value{
		"channel":    cty.StringVal(dim),
		"threshold":  cty.NumberFloatVal(cut),
		"proportion": cty.NumberFloatVal(float64(above) / float64(len(values))),
	}), nil
}

// pool concatenates the dimension's values across every sample in the group.
func pool(call *registry.Call, dim string) ([]float64, error) {
	var out []float64
	for _, s := range call.Group.Samples {
		col, err := s.Frame.Column(dim)
		if err != nil {
			return nil, fmt.Errorf("sample %q: %w", s.ID, err)
		}
		out = append(out, col...)
	}
	return out, nil
}

func meanSD(values []float64) (mean, sd float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		sd += (v - mean) * (v - mean)
	}
	sd = math.Sqrt(sd / float64(len(values)))
	return mean, sd
}

// argFloat extracts a numeric argument if present and convertible.
func argFloat(args map[string]cty.Value, name string) (float64, bool) {
	v, ok := args[name]
	if !ok || v.IsNull() || v.Type() != cty.Number {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}
